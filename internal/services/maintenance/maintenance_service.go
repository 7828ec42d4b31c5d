// Package maintenance replaces ad-hoc operator scripts with audited,
// idempotent, parameterized operations. Every operation writes an
// AdminAction row recording the actor, parameters and affected count.
package maintenance

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/models"
)

var (
	ErrInvalidRating = errors.New("rating must be within [0, 5]")
	ErrNegativeCount = errors.New("counts must be non-negative")
	ErrInvalidScope  = errors.New("scope must be user, profile or both")
	ErrInvalidRole   = errors.New("role must be client, freelancer or admin")
)

type MaintenanceService struct {
	DB *gorm.DB
}

func NewMaintenanceService(db *gorm.DB) *MaintenanceService {
	return &MaintenanceService{DB: db}
}

func (s *MaintenanceService) audit(tx *gorm.DB, actorID uuid.UUID, action string, params any, affected int64) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	rec := models.AdminAction{
		ActorID:  actorID,
		Action:   action,
		Params:   datatypes.JSON(raw),
		Affected: affected,
	}
	return tx.Create(&rec).Error
}

// NormalizeDurations fixes listings with zero or negative durations.
// Re-running affects zero rows.
func (s *MaintenanceService) NormalizeDurations(actorID uuid.UUID) (int64, error) {
	var affected int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Service{}).
			Where("duration_minutes <= 0 OR duration_minutes IS NULL").
			Update("duration_minutes", models.DefaultDurationMinutes)
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		return s.audit(tx, actorID, "normalize-durations", map[string]any{}, affected)
	})
	return affected, err
}

// RecordMetrics overwrites a listing's aggregate counters in one UPDATE
// so concurrent readers never see a partial set. Out-of-range inputs are
// a validation failure, not a silent clamp.
func (s *MaintenanceService) RecordMetrics(actorID uuid.UUID, serviceID uint, orders, reviews int64, rating float64) error {
	if rating < 0 || rating > 5 {
		return ErrInvalidRating
	}
	if orders < 0 || reviews < 0 {
		return ErrNegativeCount
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Service{}).
			Where("id = ?", serviceID).
			Updates(map[string]interface{}{
				"rating":       rating,
				"review_count": reviews,
				"total_orders": orders,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return s.audit(tx, actorID, "record-metrics", map[string]any{
			"service_id": serviceID,
			"orders":     orders,
			"reviews":    reviews,
			"rating":     rating,
		}, result.RowsAffected)
	})
}

// RecountMetrics recomputes aggregates from reviews and completed
// bookings, for one listing or for all of them.
func (s *MaintenanceService) RecountMetrics(actorID uuid.UUID, serviceID *uint) (int64, error) {
	var affected int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		q := tx.Model(&models.Service{})
		if serviceID != nil {
			q = q.Where("id = ?", *serviceID)
		}
		if err := q.Pluck("id", &ids).Error; err != nil {
			return err
		}
		if serviceID != nil && len(ids) == 0 {
			return gorm.ErrRecordNotFound
		}

		for _, id := range ids {
			var stats struct {
				AvgRating   float64
				ReviewCount int64
			}
			if err := tx.Model(&models.Review{}).
				Where("service_id = ?", id).
				Select("COALESCE(AVG(rating), 0) as avg_rating, COUNT(*) as review_count").
				Scan(&stats).Error; err != nil {
				return err
			}

			var completed int64
			if err := tx.Model(&models.Booking{}).
				Where("service_id = ? AND status = ?", id, models.BookingStatusCompleted).
				Count(&completed).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.Service{}).
				Where("id = ?", id).
				Updates(map[string]interface{}{
					"rating":       stats.AvgRating,
					"review_count": stats.ReviewCount,
					"total_orders": completed,
				}).Error; err != nil {
				return err
			}
			affected++
		}

		params := map[string]any{"service_id": nil}
		if serviceID != nil {
			params["service_id"] = *serviceID
		}
		return s.audit(tx, actorID, "recount-metrics", params, affected)
	})
	return affected, err
}

// PromoteRole changes a user's role. Idempotent: promoting to the
// current role affects zero rows.
func (s *MaintenanceService) PromoteRole(actorID, userID uuid.UUID, role models.Role) (int64, error) {
	switch role {
	case models.RoleClient, models.RoleFreelancer, models.RoleAdmin:
	default:
		return 0, ErrInvalidRole
	}

	var affected int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return err
		}

		result := tx.Model(&models.User{}).
			Where("id = ? AND role <> ?", userID, role).
			Update("role", role)
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		return s.audit(tx, actorID, "promote-role", map[string]any{
			"user_id": userID,
			"role":    role,
		}, affected)
	})
	return affected, err
}

// VerifyFreelancer sets the verification flag on the user record, the
// freelancer profile, or both. The two flags are independent; the scope
// makes the operator say which one they mean.
func (s *MaintenanceService) VerifyFreelancer(actorID, userID uuid.UUID, scope string) (int64, error) {
	if scope != "user" && scope != "profile" && scope != "both" {
		return 0, ErrInvalidScope
	}

	var affected int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if scope == "user" || scope == "both" {
			result := tx.Model(&models.User{}).
				Where("id = ? AND is_verified = ?", userID, false).
				Update("is_verified", true)
			if result.Error != nil {
				return result.Error
			}
			affected += result.RowsAffected
		}

		if scope == "profile" || scope == "both" {
			result := tx.Model(&models.FreelancerProfile{}).
				Where("user_id = ? AND is_verified = ?", userID, false).
				Updates(map[string]interface{}{
					"is_verified":   true,
					"review_status": models.StatusApproved,
				})
			if result.Error != nil {
				return result.Error
			}
			affected += result.RowsAffected
		}

		return s.audit(tx, actorID, "verify-freelancer", map[string]any{
			"user_id": userID,
			"scope":   scope,
		}, affected)
	})
	return affected, err
}

// Actions lists the audit trail, newest first.
func (s *MaintenanceService) Actions(limit int) ([]models.AdminAction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var actions []models.AdminAction
	err := s.DB.Order("created_at DESC").Limit(limit).Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("list admin actions: %w", err)
	}
	return actions, nil
}
