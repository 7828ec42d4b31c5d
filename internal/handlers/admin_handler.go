package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/models"
	"github.com/sportsgig/backend/internal/services/maintenance"
)

// AdminHandler exposes the maintenance interface. Each operation is
// idempotent, takes explicit parameters, and leaves an audit record.
type AdminHandler struct {
	Maintenance *maintenance.MaintenanceService
}

func NewAdminHandler(m *maintenance.MaintenanceService) *AdminHandler {
	return &AdminHandler{Maintenance: m}
}

func maintenanceResult(c *fiber.Ctx, affected int64, err error) error {
	if err == gorm.ErrRecordNotFound {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Record not found",
		})
	}
	switch err {
	case maintenance.ErrInvalidRating, maintenance.ErrNegativeCount,
		maintenance.ErrInvalidScope, maintenance.ErrInvalidRole:
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}
	if err != nil {
		log.Println("Maintenance operation failed:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Operation failed",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"affected": affected},
	})
}

func (h *AdminHandler) NormalizeDurations(c *fiber.Ctx) error {
	actor, ok := currentUserUUID(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	affected, err := h.Maintenance.NormalizeDurations(actor)
	return maintenanceResult(c, affected, err)
}

type RecordMetricsReq struct {
	ServiceID uint    `json:"service_id"`
	Orders    int64   `json:"orders"`
	Reviews   int64   `json:"reviews"`
	Rating    float64 `json:"rating"`
}

func (h *AdminHandler) RecordMetrics(c *fiber.Ctx) error {
	actor, ok := currentUserUUID(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	var req RecordMetricsReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	err := h.Maintenance.RecordMetrics(actor, req.ServiceID, req.Orders, req.Reviews, req.Rating)
	return maintenanceResult(c, 1, err)
}

type RecountMetricsReq struct {
	ServiceID *uint `json:"service_id"` // nil recounts every listing
}

func (h *AdminHandler) RecountMetrics(c *fiber.Ctx) error {
	actor, ok := currentUserUUID(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	var req RecountMetricsReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	affected, err := h.Maintenance.RecountMetrics(actor, req.ServiceID)
	return maintenanceResult(c, affected, err)
}

type PromoteRoleReq struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (h *AdminHandler) PromoteRole(c *fiber.Ctx) error {
	actor, ok := currentUserUUID(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	var req PromoteRoleReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user ID",
		})
	}

	affected, err := h.Maintenance.PromoteRole(actor, userID, models.Role(req.Role))
	return maintenanceResult(c, affected, err)
}

type VerifyFreelancerReq struct {
	UserID string `json:"user_id"`
	Scope  string `json:"scope"` // user | profile | both
}

func (h *AdminHandler) VerifyFreelancer(c *fiber.Ctx) error {
	actor, ok := currentUserUUID(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	var req VerifyFreelancerReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user ID",
		})
	}

	affected, err := h.Maintenance.VerifyFreelancer(actor, userID, req.Scope)
	return maintenanceResult(c, affected, err)
}

func (h *AdminHandler) ListActions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	actions, err := h.Maintenance.Actions(limit)
	if err != nil {
		log.Println("Error listing admin actions:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list actions",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    actions,
	})
}
