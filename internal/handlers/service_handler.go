package handlers

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/models"
	"github.com/sportsgig/backend/internal/services/classify"
	"github.com/sportsgig/backend/internal/utils"
)

type ServiceHandler struct {
	DB         *gorm.DB
	Classifier *classify.ClassifyService
	IDKey      string
}

func NewServiceHandler(db *gorm.DB, classifier *classify.ClassifyService, idKey string) *ServiceHandler {
	return &ServiceHandler{DB: db, Classifier: classifier, IDKey: idKey}
}

// ==== REQUEST STRUCTS ====

type PackageReq struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Sessions    int      `json:"sessions"`
	Price       int64    `json:"price"`
	Benefits    []string `json:"benefits"`
}

type ServiceReq struct {
	Title           string `json:"title"`
	Category        string `json:"category"`
	Sport           string `json:"sport"`
	DurationMinutes int    `json:"duration_minutes"`
	BasePrice       int64  `json:"base_price"`
	CoverURL        string `json:"cover_url"`

	Basic    PackageReq `json:"basic"`
	Standard PackageReq `json:"standard"`
	Premium  PackageReq `json:"premium"`

	IsActive *bool `json:"is_active"`
}

// ServiceUpdateReq carries pointer fields so an omitted field keeps its
// stored value instead of being replaced by a zero.
type ServiceUpdateReq struct {
	Title           *string `json:"title,omitempty"`
	Category        *string `json:"category,omitempty"`
	Sport           *string `json:"sport,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	BasePrice       *int64  `json:"base_price,omitempty"`
	CoverURL        *string `json:"cover_url,omitempty"`

	Basic    *PackageReq `json:"basic,omitempty"`
	Standard *PackageReq `json:"standard,omitempty"`
	Premium  *PackageReq `json:"premium,omitempty"`

	IsActive *bool `json:"is_active,omitempty"`
}

// ListingMutation is one entry of the bulk listings PATCH.
type ListingMutation struct {
	ID              uint    `json:"id"`
	Title           *string `json:"title,omitempty"`
	BasePrice       *int64  `json:"base_price,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// ==== HANDLER ====

// bothVerified reports whether the account flag and the profile flag are
// both set. The two flags diverge; activation needs both.
func (h *ServiceHandler) bothVerified(userID uuid.UUID) bool {
	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		return false
	}
	if !user.IsVerified {
		return false
	}
	var profile models.FreelancerProfile
	if err := h.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return false
	}
	return profile.IsVerified
}

func (h *ServiceHandler) Create(c *fiber.Ctx) error {
	var req ServiceReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Title == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Title is required",
		})
	}

	uid := c.Locals("userId")

	var user models.User
	if err := h.DB.First(&user, "id = ?", uid).Error; err != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	category := strings.TrimSpace(req.Category)
	if category == "" && h.Classifier != nil {
		// Best effort; a classification failure falls back to General.
		cat, err := h.Classifier.Categorize(req.Title)
		if err != nil {
			log.Println("classify listing:", err)
		}
		category = cat
	}
	if category == "" {
		category = classify.DefaultCategory
	}

	packagesPayload := map[string]PackageReq{
		"basic":    req.Basic,
		"standard": req.Standard,
		"premium":  req.Premium,
	}
	packagesJSON, err := json.Marshal(packagesPayload)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to process packages",
		})
	}

	active := false
	if req.IsActive != nil && *req.IsActive {
		if !h.bothVerified(user.ID) {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Verification required before publishing a listing",
			})
		}
		active = true
	}

	service := models.Service{
		ProviderID:      user.ID,
		Title:           req.Title,
		Category:        category,
		Sport:           req.Sport,
		DurationMinutes: req.DurationMinutes,
		BasePrice:       req.BasePrice,
		CoverURL:        req.CoverURL,
		Packages:        datatypes.JSON(packagesJSON),
		IsActive:        active,
	}

	if err := h.DB.Create(&service).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to save listing",
		})
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Listing saved",
		"data": fiber.Map{
			"id":               service.ID,
			"title":            service.Title,
			"category":         service.Category,
			"sport":            service.Sport,
			"duration_minutes": service.NormalizeDuration(),
			"is_active":        service.IsActive,
		},
	})
}

func (h *ServiceHandler) ListMine(c *fiber.Ctx) error {
	uid := c.Locals("userId")

	var services []models.Service
	if err := h.DB.
		Where("provider_id = ?", uid).
		Order("created_at DESC").
		Find(&services).Error; err != nil {

		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch listings",
		})
	}

	out := make([]fiber.Map, 0, len(services))
	for _, s := range services {
		enc, _ := utils.EncryptID(s.ID, h.IDKey)
		out = append(out, fiber.Map{
			"id":               enc,
			"real_id":          s.ID,
			"title":            s.Title,
			"category":         s.Category,
			"sport":            s.Sport,
			"base_price":       s.BasePrice,
			"duration_minutes": s.NormalizeDuration(),
			"cover_url":        s.CoverURL,
			"is_active":        s.IsActive,
			"rating":           s.Rating,
			"review_count":     s.ReviewCount,
			"total_orders":     s.TotalOrders,
			"created_at":       s.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

func (h *ServiceHandler) GetOne(c *fiber.Ctx) error {
	uid := c.Locals("userId")

	rawID, err := utils.DecryptID(c.Params("id"), h.IDKey)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid listing ID",
		})
	}

	var service models.Service
	if err := h.DB.First(&service, "id = ? AND provider_id = ?", rawID, uid).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Listing not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    service,
	})
}

// Update applies the fields present in the body; omitted fields keep
// their stored values.
func (h *ServiceHandler) Update(c *fiber.Ctx) error {
	rawID, err := utils.DecryptID(c.Params("id"), h.IDKey)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid listing ID",
		})
	}

	uid := c.Locals("userId")

	var service models.Service
	if err := h.DB.First(&service, "id = ? AND provider_id = ?", rawID, uid).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Listing not found",
		})
	}

	var req ServiceUpdateReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		service.Title = strings.TrimSpace(*req.Title)
	}
	if req.Category != nil && *req.Category != "" {
		service.Category = *req.Category
	}
	if req.Sport != nil {
		service.Sport = *req.Sport
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Duration must be positive",
			})
		}
		service.DurationMinutes = *req.DurationMinutes
	}
	if req.BasePrice != nil {
		service.BasePrice = *req.BasePrice
	}
	if req.CoverURL != nil {
		service.CoverURL = *req.CoverURL
	}

	if req.Basic != nil || req.Standard != nil || req.Premium != nil {
		packages := map[string]PackageReq{}
		if len(service.Packages) > 0 {
			_ = json.Unmarshal(service.Packages, &packages)
		}
		if req.Basic != nil {
			packages["basic"] = *req.Basic
		}
		if req.Standard != nil {
			packages["standard"] = *req.Standard
		}
		if req.Premium != nil {
			packages["premium"] = *req.Premium
		}
		packagesJSON, _ := json.Marshal(packages)
		service.Packages = datatypes.JSON(packagesJSON)
	}

	if req.IsActive != nil {
		if *req.IsActive && !service.IsActive && !h.bothVerified(service.ProviderID) {
			return c.Status(403).JSON(fiber.Map{
				"success": false,
				"message": "Verification required before publishing a listing",
			})
		}
		service.IsActive = *req.IsActive
	}

	if err := h.DB.Save(&service).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update listing",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Listing updated",
	})
}

// Deactivate takes a listing off the catalog. Listings are never hard
// deleted; bookings keep pointing at them.
func (h *ServiceHandler) Deactivate(c *fiber.Ctx) error {
	uid := c.Locals("userId")

	rawID, err := utils.DecryptID(c.Params("id"), h.IDKey)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid listing ID",
		})
	}

	result := h.DB.Model(&models.Service{}).
		Where("id = ? AND provider_id = ?", rawID, uid).
		Update("is_active", false)

	if result.Error != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to deactivate listing",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Listing not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Listing deactivated",
	})
}

// BulkPatch applies a replacement list of listing mutations for the
// authenticated provider and reports a per-id result.
func (h *ServiceHandler) BulkPatch(c *fiber.Ctx) error {
	uid := c.Locals("userId")

	var req struct {
		Listings []ListingMutation `json:"listings"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	results := make([]fiber.Map, 0, len(req.Listings))
	for _, m := range req.Listings {
		updates := map[string]interface{}{}
		if m.Title != nil {
			updates["title"] = *m.Title
		}
		if m.BasePrice != nil {
			updates["base_price"] = *m.BasePrice
		}
		if m.DurationMinutes != nil {
			if *m.DurationMinutes <= 0 {
				results = append(results, fiber.Map{
					"id": m.ID, "ok": false, "message": "duration must be positive",
				})
				continue
			}
			updates["duration_minutes"] = *m.DurationMinutes
		}
		if m.IsActive != nil {
			updates["is_active"] = *m.IsActive
		}
		if len(updates) == 0 {
			results = append(results, fiber.Map{
				"id": m.ID, "ok": false, "message": "no fields to update",
			})
			continue
		}

		result := h.DB.Model(&models.Service{}).
			Where("id = ? AND provider_id = ?", m.ID, uid).
			Updates(updates)

		if result.Error != nil {
			results = append(results, fiber.Map{
				"id": m.ID, "ok": false, "message": "update failed",
			})
			continue
		}
		if result.RowsAffected == 0 {
			results = append(results, fiber.Map{
				"id": m.ID, "ok": false, "message": "listing not found",
			})
			continue
		}
		results = append(results, fiber.Map{"id": m.ID, "ok": true})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    results,
	})
}

func (h *ServiceHandler) ListPublic(c *fiber.Ctx) error {
	type Result struct {
		ID              uint
		Title           string
		Category        string
		Sport           string
		BasePrice       int64
		DurationMinutes int
		CoverURL        string
		ProviderID      uuid.UUID

		DisplayName string
		PhotoURL    string
		AvgRating   float64
		ReviewCount int64
		Sold        int64
	}

	// ===== FILTER =====
	qSearch := c.Query("q")
	category := c.Query("cat")
	sport := c.Query("sport")
	minPrice := c.QueryInt("min", 0)
	maxPrice := c.QueryInt("max", 0)
	sortParam := c.Query("sort") // latest | price_low | price_high | rating

	filters := func(db *gorm.DB) *gorm.DB {
		if qSearch != "" {
			db = db.Where("LOWER(services.title) LIKE ?", "%"+strings.ToLower(qSearch)+"%")
		}
		if category != "" {
			db = db.Where("services.category = ?", category)
		}
		if sport != "" {
			db = db.Where("services.sport = ?", sport)
		}
		if minPrice > 0 {
			db = db.Where("services.base_price >= ?", minPrice)
		}
		if maxPrice > 0 {
			db = db.Where("services.base_price <= ?", maxPrice)
		}
		return db
	}

	q := h.DB.
		Table("services").
		Select(`
			services.id,
			services.title,
			services.category,
			services.sport,
			services.base_price,
			services.duration_minutes,
			services.cover_url,
			services.provider_id,
			fp.display_name,
			fp.photo_url,
			(SELECT COALESCE(AVG(rating), 0) FROM reviews r WHERE r.service_id = services.id) as avg_rating,
			(SELECT COUNT(*) FROM reviews r WHERE r.service_id = services.id) as review_count,
			(SELECT COUNT(*) FROM bookings b WHERE b.service_id = services.id AND b.status = 'completed') as sold
		`).
		Joins(`
			LEFT JOIN freelancer_profiles fp
			ON fp.user_id = services.provider_id
		`).
		Where("services.is_active = ?", true)

	q = filters(q)

	// ===== SORTING =====
	switch sortParam {
	case "price_low":
		q = q.Order("services.base_price ASC")
	case "price_high":
		q = q.Order("services.base_price DESC")
	case "rating":
		q = q.Order("avg_rating DESC")
	default:
		q = q.Order("services.created_at DESC")
	}

	// ===== PAGINATION =====
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	var totalItems int64
	if err := filters(h.DB.Table("services").
		Where("services.is_active = ?", true)).
		Count(&totalItems).Error; err != nil {

		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to count listings",
		})
	}

	var rows []Result
	if err := q.
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error; err != nil {

		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch listings",
		})
	}

	out := make([]fiber.Map, 0, len(rows))
	for _, r := range rows {
		encID, err := utils.EncryptID(r.ID, h.IDKey)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{
				"success": false,
				"message": "Failed to encode listing ID",
			})
		}

		name := r.DisplayName
		if name == "" {
			name = "Coach"
		}

		duration := r.DurationMinutes
		if duration <= 0 {
			duration = models.DefaultDurationMinutes
		}

		out = append(out, fiber.Map{
			"id":               encID,
			"title":            r.Title,
			"category":         r.Category,
			"sport":            r.Sport,
			"price":            r.BasePrice,
			"duration_minutes": duration,
			"cover":            r.CoverURL,
			"rating":           r.AvgRating,
			"sold":             r.Sold,
			"review_count":     r.ReviewCount,
			"provider": fiber.Map{
				"name":      name,
				"photo_url": r.PhotoURL,
			},
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
		"meta": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total_items": totalItems,
			"total_pages": int(math.Ceil(float64(totalItems) / float64(limit))),
		},
	})
}

func (h *ServiceHandler) GetDetail(c *fiber.Ctx) error {
	rawID, err := utils.DecryptID(c.Params("id"), h.IDKey)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid listing ID",
		})
	}

	var service models.Service
	if err := h.DB.First(&service, "id = ?", rawID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Listing not found",
		})
	}

	if !service.IsActive {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Listing is not available",
		})
	}

	var profile models.FreelancerProfile
	_ = h.DB.Where("user_id = ?", service.ProviderID).First(&profile).Error

	var packages map[string]interface{}
	if len(service.Packages) > 0 {
		_ = json.Unmarshal(service.Packages, &packages)
	}

	providerName := profile.DisplayName
	if providerName == "" {
		providerName = "Coach"
	}

	var ratingStats struct {
		AvgRating   float64
		ReviewCount int64
	}
	h.DB.Model(&models.Review{}).
		Where("service_id = ?", service.ID).
		Select("COALESCE(AVG(rating), 0) as avg_rating, COUNT(*) as review_count").
		Scan(&ratingStats)

	var soldCount int64
	h.DB.Model(&models.Booking{}).
		Where("service_id = ? AND status = ?", service.ID, models.BookingStatusCompleted).
		Count(&soldCount)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":               service.ID,
			"title":            service.Title,
			"category":         service.Category,
			"sport":            service.Sport,
			"base_price":       service.BasePrice,
			"duration_minutes": service.NormalizeDuration(),
			"cover_url":        service.CoverURL,
			"packages":         packages,
			"rating":           ratingStats.AvgRating,
			"review_count":     ratingStats.ReviewCount,
			"sold":             soldCount,
			"provider": fiber.Map{
				"id":          service.ProviderID,
				"name":        providerName,
				"photo_url":   profile.PhotoURL,
				"is_verified": profile.IsVerified,
			},
			"created_at": service.CreatedAt,
			"updated_at": service.UpdatedAt,
		},
	})
}

func (h *ServiceHandler) GetCategories(c *fiber.Ctx) error {
	var categories []string

	err := h.DB.
		Table("services").
		Where("is_active = ?", true).
		Distinct("category").
		Pluck("category", &categories).
		Error

	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch categories",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    categories,
	})
}

func (h *ServiceHandler) GetReviews(c *fiber.Ctx) error {
	rawID, err := utils.DecryptID(c.Params("id"), h.IDKey)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid listing ID",
		})
	}

	var reviews []models.Review
	if err := h.DB.
		Where("service_id = ?", rawID).
		Preload("Client").
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch reviews",
		})
	}

	out := make([]fiber.Map, 0, len(reviews))
	for _, r := range reviews {
		reviewerName := "User"
		if r.Client != nil {
			reviewerName = r.Client.Name
		}

		out = append(out, fiber.Map{
			"id":         r.ID,
			"rating":     r.Rating,
			"comment":    r.Comment,
			"created_at": r.CreatedAt,
			"reviewer": fiber.Map{
				"name": reviewerName,
			},
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}
