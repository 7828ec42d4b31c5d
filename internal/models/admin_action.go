package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminAction is an audit record written by every maintenance operation.
type AdminAction struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID uuid.UUID `gorm:"type:uuid;index;not null" json:"actor_id"`

	Action   string         `gorm:"type:varchar(60);not null;index" json:"action"`
	Params   datatypes.JSON `json:"params"`
	Affected int64          `json:"affected"`

	CreatedAt time.Time `json:"created_at"`

	Actor *User `gorm:"foreignKey:ActorID" json:"-"`
}

func (a *AdminAction) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
