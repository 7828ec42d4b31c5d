package models

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Menunggu konfirmasi
	BookingStatusConfirmed BookingStatus = "confirmed" // Dikonfirmasi provider
	BookingStatusCompleted BookingStatus = "completed" // Selesai
	BookingStatusCancelled BookingStatus = "cancelled" // Dibatalkan
)

type Booking struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderCode string    `gorm:"unique;size:10" json:"order_code"` // e.g., L9POKTVJ

	ClientID  uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	ServiceID uint      `gorm:"index" json:"service_id"`

	Status     BookingStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	TotalPrice int64         `json:"total_price"`
	Note       string        `gorm:"type:text" json:"note"`

	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Client  *User    `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Service *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

// GenerateOrderCode generates a random alphanumeric code
func GenerateOrderCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 8)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
