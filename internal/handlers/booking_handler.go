package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/models"
	"github.com/sportsgig/backend/internal/realtime"
	"github.com/sportsgig/backend/internal/utils"
)

type BookingHandler struct {
	DB        *gorm.DB
	Hub       *realtime.Hub
	IDKey     string
	JWTSecret string
}

func NewBookingHandler(db *gorm.DB, hub *realtime.Hub, idKey, jwtSecret string) *BookingHandler {
	return &BookingHandler{DB: db, Hub: hub, IDKey: idKey, JWTSecret: jwtSecret}
}

// currentUserUUID reads the user id resolved by the JWT middleware.
func currentUserUUID(c *fiber.Ctx) (uuid.UUID, bool) {
	raw, ok := c.Locals("userId").(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// viewerRoles resolves which sides of a booking a user may see. A
// self-booking yields both roles; both entries are kept, not
// deduplicated. A missing client or service relation fails closed: the
// corresponding role is simply not granted.
func viewerRoles(userID uuid.UUID, b *models.Booking) []string {
	roles := []string{}
	if b.Client != nil && b.Client.ID == userID {
		roles = append(roles, "client")
	}
	if b.Service != nil && b.Service.ProviderID == userID {
		roles = append(roles, "provider")
	}
	return roles
}

// uniqueOrderCode retries until a free code is found. Collisions loop;
// any other lookup error aborts instead of spinning.
func uniqueOrderCode(db *gorm.DB) (string, error) {
	for {
		code := models.GenerateOrderCode()
		var existing models.Booking
		err := db.Where("order_code = ?", code).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
}

type CreateBookingReq struct {
	ServiceID   string `json:"service_id"` // encrypted catalog ID
	ScheduledAt string `json:"scheduled_at"`
	Note        string `json:"note"`
}

func bookingResponse(b *models.Booking) fiber.Map {
	out := fiber.Map{
		"id":           b.ID,
		"order_code":   b.OrderCode,
		"client_id":    b.ClientID,
		"service_id":   b.ServiceID,
		"status":       b.Status,
		"total_price":  b.TotalPrice,
		"note":         b.Note,
		"scheduled_at": b.ScheduledAt,
		"created_at":   b.CreatedAt,
	}
	if b.Service != nil {
		out["service"] = fiber.Map{
			"id":               b.ServiceID,
			"title":            b.Service.Title,
			"sport":            b.Service.Sport,
			"duration_minutes": b.Service.NormalizeDuration(),
			"provider_id":      b.Service.ProviderID,
		}
	}
	if b.Client != nil {
		out["client"] = fiber.Map{
			"id":   b.Client.ID,
			"name": b.Client.Name,
		}
	}
	return out
}

// Create books an active listing for the authenticated client.
func (h *BookingHandler) Create(c *fiber.Ctx) error {
	userUUID, ok := currentUserUUID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req CreateBookingReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	serviceID, err := utils.DecryptID(req.ServiceID, h.IDKey)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid service ID",
		})
	}

	var service models.Service
	if err := h.DB.First(&service, "id = ?", serviceID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Service not found",
		})
	}

	if !service.IsActive {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Service is not available for booking",
		})
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		scheduledAt = time.Now().Add(24 * time.Hour)
	}

	orderCode, err := uniqueOrderCode(h.DB)
	if err != nil {
		log.Println("Error generating order code:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create booking",
		})
	}

	booking := models.Booking{
		ID:          uuid.New(),
		OrderCode:   orderCode,
		ClientID:    userUUID,
		ServiceID:   service.ID,
		Status:      models.BookingStatusPending,
		TotalPrice:  service.BasePrice,
		Note:        req.Note,
		ScheduledAt: scheduledAt,
	}

	if err := h.DB.Create(&booking).Error; err != nil {
		log.Println("Error creating booking:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create booking",
		})
	}

	h.DB.Preload("Client").Preload("Service").First(&booking, "id = ?", booking.ID)

	h.Hub.SendToBooking(booking.ClientID, service.ProviderID, fiber.Map{
		"type":    "booking_created",
		"booking": bookingResponse(&booking),
	})

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data":    bookingResponse(&booking),
	})
}

// ListAsClient returns bookings where the viewer is the client.
func (h *BookingHandler) ListAsClient(c *fiber.Ctx) error {
	userUUID, ok := currentUserUUID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var bookings []models.Booking
	if err := h.DB.
		Preload("Client").
		Preload("Service").
		Where("client_id = ?", userUUID).
		Order("created_at DESC").
		Find(&bookings).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch bookings",
		})
	}

	out := make([]fiber.Map, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookingResponse(&bookings[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

// ListAsProvider returns bookings against the viewer's listings.
func (h *BookingHandler) ListAsProvider(c *fiber.Ctx) error {
	userUUID, ok := currentUserUUID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var bookings []models.Booking
	if err := h.DB.
		Preload("Client").
		Preload("Service").
		Joins("JOIN services ON services.id = bookings.service_id").
		Where("services.provider_id = ?", userUUID).
		Order("bookings.created_at DESC").
		Find(&bookings).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch bookings",
		})
	}

	out := make([]fiber.Map, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookingResponse(&bookings[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

// Get returns a single booking with the viewer's roles. A user matching
// neither relation gets a 403; a booking whose service or client record
// is gone grants no role for that side.
func (h *BookingHandler) Get(c *fiber.Ctx) error {
	userUUID, ok := currentUserUUID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid booking ID",
		})
	}

	var booking models.Booking
	if err := h.DB.
		Preload("Client").
		Preload("Service").
		First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Booking not found",
		})
	}

	roles := viewerRoles(userUUID, &booking)
	if len(roles) == 0 {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	out := bookingResponse(&booking)
	out["viewer_roles"] = roles

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

type UpdateStatusReq struct {
	Status string `json:"status"`
}

// statusTransition returns the statuses a booking may move FROM for the
// requested target, per viewer role.
func statusTransition(target models.BookingStatus, isClient, isProvider bool) []models.BookingStatus {
	switch target {
	case models.BookingStatusConfirmed:
		if isProvider {
			return []models.BookingStatus{models.BookingStatusPending}
		}
	case models.BookingStatusCompleted:
		if isProvider {
			return []models.BookingStatus{models.BookingStatusConfirmed}
		}
	case models.BookingStatusCancelled:
		if isClient {
			return []models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed}
		}
		if isProvider {
			return []models.BookingStatus{models.BookingStatusPending}
		}
	}
	return nil
}

// UpdateStatus moves a booking through its lifecycle. The write is one
// UPDATE guarded by the current status, so concurrent transitions
// cannot both win.
func (h *BookingHandler) UpdateStatus(c *fiber.Ctx) error {
	userUUID, ok := currentUserUUID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid booking ID",
		})
	}

	var req UpdateStatusReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	target := models.BookingStatus(req.Status)

	var booking models.Booking
	if err := h.DB.
		Preload("Client").
		Preload("Service").
		First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Booking not found",
		})
	}

	roles := viewerRoles(userUUID, &booking)
	if len(roles) == 0 {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	isClient := false
	isProvider := false
	for _, r := range roles {
		if r == "client" {
			isClient = true
		}
		if r == "provider" {
			isProvider = true
		}
	}

	from := statusTransition(target, isClient, isProvider)
	if from == nil {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "You cannot set this status",
		})
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Booking{}).
			Where("id = ? AND status IN ?", booking.ID, from).
			Update("status", target)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrInvalidData
		}

		// Completion counts toward the listing's order total.
		if target == models.BookingStatusCompleted {
			if err := tx.Model(&models.Service{}).
				Where("id = ?", booking.ServiceID).
				Update("total_orders", gorm.Expr("total_orders + ?", 1)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err == gorm.ErrInvalidData {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid status transition from " + string(booking.Status),
		})
	}
	if err != nil {
		log.Println("Error updating booking status:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update booking status",
		})
	}

	booking.Status = target

	if booking.Service != nil {
		h.Hub.SendToBooking(booking.ClientID, booking.Service.ProviderID, fiber.Map{
			"type":    "booking_status_update",
			"booking": bookingResponse(&booking),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    bookingResponse(&booking),
	})
}

// WebSocketHandler streams booking events to the authenticated user.
// Auth is a JWT in the token query param since websocket upgrades skip
// the cookie middleware chain.
func (h *BookingHandler) WebSocketHandler(c *websocket.Conn) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		log.Println("WebSocket: token parameter missing")
		c.Close()
		return
	}

	claims, err := utils.VerifyJWT(h.JWTSecret, tokenStr)
	if err != nil {
		log.Println("WebSocket: invalid token:", err)
		c.Close()
		return
	}

	userUUID, err := uuid.Parse(claims.UserID)
	if err != nil {
		log.Println("WebSocket: invalid user id in token:", err)
		c.Close()
		return
	}

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer func() {
		h.Hub.UnregisterClient(client)
		log.Printf("WebSocket: user %s disconnected\n", userUUID)
	}()

	// Send messages from hub to client
	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Println("WebSocket write error:", err)
				return
			}
		}
	}()

	// Read loop keeps the connection alive
	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			break
		}
		if msgType, ok := payload["type"].(string); ok && msgType == "pong" {
			continue
		}
	}
}
