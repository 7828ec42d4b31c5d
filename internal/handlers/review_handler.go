package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/models"
)

type ReviewHandler struct {
	DB *gorm.DB
}

func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{DB: db}
}

type CreateReviewReq struct {
	BookingID string `json:"booking_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// Create lets the booking's client review a completed booking. The
// review insert and the listing's aggregate refresh happen in one
// transaction so the counters never drift from the rows.
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	userUUID, ok := currentUserUUID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req CreateReviewReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Rating < 1 || req.Rating > 5 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Rating must be between 1 and 5",
		})
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid booking ID",
		})
	}

	var booking models.Booking
	if err := h.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Booking not found",
		})
	}

	if booking.ClientID != userUUID {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Only the booking's client can leave a review",
		})
	}

	if booking.Status != models.BookingStatusCompleted {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Booking must be completed before reviewing",
		})
	}

	var existing models.Review
	if h.DB.Where("booking_id = ?", booking.ID).First(&existing).Error == nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Booking already reviewed",
		})
	}

	review := models.Review{
		BookingID: booking.ID,
		ClientID:  userUUID,
		ServiceID: booking.ServiceID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			return err
		}

		var stats struct {
			AvgRating   float64
			ReviewCount int64
		}
		if err := tx.Model(&models.Review{}).
			Where("service_id = ?", booking.ServiceID).
			Select("COALESCE(AVG(rating), 0) as avg_rating, COUNT(*) as review_count").
			Scan(&stats).Error; err != nil {
			return err
		}

		return tx.Model(&models.Service{}).
			Where("id = ?", booking.ServiceID).
			Updates(map[string]interface{}{
				"rating":       stats.AvgRating,
				"review_count": stats.ReviewCount,
			}).Error
	})
	if err != nil {
		log.Println("Error creating review:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to save review",
		})
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":      review.ID,
			"rating":  review.Rating,
			"comment": review.Comment,
		},
	})
}
