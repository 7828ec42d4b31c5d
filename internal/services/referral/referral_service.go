package referral

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/models"
)

var (
	ErrCodeNotFound = errors.New("referral code not found")
	ErrSelfReferral = errors.New("cannot use own referral code")
)

const (
	visitorKeyPrefix = "referral:visitor:"
	captureTTL       = 30 * 24 * time.Hour
)

type Service struct {
	DB  *gorm.DB
	RDB *redis.Client
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, RDB: rdb}
}

// Capture stores a referral code against an opaque visitor key. SETNX
// keeps the first capture; later codes for the same visitor are ignored.
func (s *Service) Capture(ctx context.Context, visitorKey, code string) (bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if visitorKey == "" || code == "" {
		return false, errors.New("visitor key and code are required")
	}
	return s.RDB.SetNX(ctx, visitorKeyPrefix+visitorKey, code, captureTTL).Result()
}

// CapturedCode returns the code captured for a visitor, or "" when none.
func (s *Service) CapturedCode(ctx context.Context, visitorKey string) string {
	if visitorKey == "" {
		return ""
	}
	code, err := s.RDB.Get(ctx, visitorKeyPrefix+visitorKey).Result()
	if err != nil {
		return ""
	}
	return code
}

// Attach sets referred_by on a user from a referral code. The update is
// conditional on referred_by_id being null, so a referral already
// attached is never overwritten. Returns false when the user already had
// a referrer.
func (s *Service) Attach(db *gorm.DB, userID uuid.UUID, code string) (bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return false, ErrCodeNotFound
	}

	var referrer models.User
	if err := db.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, ErrCodeNotFound
		}
		return false, err
	}

	if referrer.ID == userID {
		return false, ErrSelfReferral
	}

	result := db.Model(&models.User{}).
		Where("id = ? AND referred_by_id IS NULL", userID).
		Update("referred_by_id", referrer.ID)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReferredCount counts users referred by the given user.
func (s *Service) ReferredCount(db *gorm.DB, userID uuid.UUID) (int64, error) {
	var n int64
	err := db.Model(&models.User{}).
		Where("referred_by_id = ?", userID).
		Count(&n).Error
	return n, err
}
