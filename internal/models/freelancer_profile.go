// internal/models/freelancer_profile.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReviewStatus string

const (
	StatusDraft         ReviewStatus = "draft"
	StatusPendingReview ReviewStatus = "pending_review"
	StatusApproved      ReviewStatus = "approved"
	StatusRejected      ReviewStatus = "rejected"
)

type FreelancerProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	DisplayName string `gorm:"type:varchar(120)" json:"display_name"`
	PhotoURL    string `gorm:"type:text" json:"photo_url"`
	Bio         string `gorm:"type:text" json:"bio"`

	// Skills is a JSON string list, e.g. ["tennis coaching", "strength training"]
	Skills datatypes.JSON `json:"skills"`

	// Documents is a JSON list of uploaded verification document URLs
	Documents datatypes.JSON `json:"documents"`

	// IsVerified here and User.IsVerified are tracked independently and
	// may diverge. There is no reconciliation rule; check both where it
	// matters.
	IsVerified   bool         `gorm:"default:false" json:"is_verified"`
	ReviewStatus ReviewStatus `gorm:"type:varchar(30);not null;default:'draft'" json:"review_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *FreelancerProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
