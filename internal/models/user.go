package models

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

// internal/models/user.go
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`
	// Phone is nullable so absent phones do not collide on the unique
	// index.
	Phone *string `gorm:"type:varchar(30);uniqueIndex" json:"phone,omitempty"`

	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// Account-level verification. Tracked separately from
	// FreelancerProfile.IsVerified; anything that gates on verification
	// must check both flags.
	IsVerified bool `gorm:"default:false" json:"is_verified"`

	// ReferralCode identifies this user as a referrer.
	// ReferredByID is a lookup-only back-reference, set at most once.
	ReferralCode string     `gorm:"type:varchar(12);uniqueIndex" json:"referral_code"`
	ReferredByID *uuid.UUID `gorm:"type:uuid;index" json:"referred_by_id,omitempty"`

	// Coordinates is a serialized {lat, lng} pair filled from the
	// frontend's geocoding provider.
	Coordinates datatypes.JSON `json:"coordinates,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// HAS ONE freelancer_profile (freelancer_profiles.user_id -> users.id)
	FreelancerProfile *FreelancerProfile `gorm:"foreignKey:UserID;references:ID" json:"freelancer_profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

// GenerateReferralCode generates a random alphanumeric code
func GenerateReferralCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 8)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
