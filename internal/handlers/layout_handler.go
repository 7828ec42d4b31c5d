package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sportsgig/backend/internal/layout"
)

// LayoutConfig resolves header/navbar visibility for a frontend route.
// The rules live in a fixed table; nothing here mutates shared state.
func LayoutConfig(c *fiber.Ctx) error {
	route := c.Query("route", "/")
	cfg := layout.Resolve(route)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    cfg,
	})
}
