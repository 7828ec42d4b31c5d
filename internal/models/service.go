package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DefaultDurationMinutes replaces zero/negative stored durations.
const DefaultDurationMinutes = 60

type Service struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProviderID uuid.UUID `gorm:"type:uuid;not null;index" json:"provider_id"`

	Title    string `json:"title"`
	Category string `json:"category"` // Kategori (Personal Training, Coaching, dll)
	Sport    string `gorm:"type:varchar(60);index" json:"sport"`

	DurationMinutes int   `json:"duration_minutes"`
	BasePrice       int64 `json:"base_price"`

	// Packages disimpan sebagai JSON biar fleksibel dulu
	Packages datatypes.JSON `json:"packages"` // { basic: {...}, standard: {...}, premium: {...} }
	CoverURL string         `json:"cover_url"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	// Aggregated metrics, overwritten as a unit so readers never see a
	// partially updated set.
	Rating      float64 `gorm:"default:0" json:"rating"`
	ReviewCount int64   `gorm:"default:0" json:"review_count"`
	TotalOrders int64   `gorm:"default:0" json:"total_orders"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Provider *User `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
}

// NormalizeDuration returns the stored duration when it is positive,
// otherwise DefaultDurationMinutes.
func (s *Service) NormalizeDuration() int {
	if s.DurationMinutes > 0 {
		return s.DurationMinutes
	}
	return DefaultDurationMinutes
}
