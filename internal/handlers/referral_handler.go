package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/models"
	"github.com/sportsgig/backend/internal/services/referral"
)

type ReferralHandler struct {
	DB        *gorm.DB
	Referrals *referral.Service
}

func NewReferralHandler(db *gorm.DB, referrals *referral.Service) *ReferralHandler {
	return &ReferralHandler{DB: db, Referrals: referrals}
}

type CaptureReq struct {
	VisitorKey string `json:"visitor_key"`
	Code       string `json:"code"`
}

// Capture records a referral code for an anonymous visitor on first
// page view. First capture wins; later codes are ignored.
func (h *ReferralHandler) Capture(c *fiber.Ctx) error {
	var req CaptureReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.VisitorKey == "" || req.Code == "" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "visitor_key and code are required",
		})
	}

	stored, err := h.Referrals.Capture(c.Context(), req.VisitorKey, req.Code)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to capture referral",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"captured": stored, // false means an earlier code already won
		},
	})
}

type ApplyReq struct {
	Code string `json:"code"`
}

// Apply attaches a referral code to the authenticated user. A referrer
// already attached is never overwritten.
func (h *ReferralHandler) Apply(c *fiber.Ctx) error {
	userUUID, ok := currentUserUUID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req ApplyReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	attached, err := h.Referrals.Attach(h.DB, userUUID, req.Code)
	if err == referral.ErrCodeNotFound {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Referral code not found",
		})
	}
	if err == referral.ErrSelfReferral {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "You cannot use your own referral code",
		})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to apply referral",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"attached": attached, // false means a referrer was already set
		},
	})
}

// Me returns the user's own referral code and how many users it brought
// in.
func (h *ReferralHandler) Me(c *fiber.Ctx) error {
	userUUID, ok := currentUserUUID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userUUID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	count, err := h.Referrals.ReferredCount(h.DB, userUUID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to count referrals",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"referral_code":  user.ReferralCode,
			"referred_count": count,
			"referred_by_id": user.ReferredByID,
		},
	})
}
