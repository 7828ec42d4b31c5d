package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/models"
)

type FreelancerProfileHandler struct {
	DB         *gorm.DB
	UploadDir  string
	AppBaseURL string
}

func NewFreelancerProfileHandler(db *gorm.DB, uploadDir, appBaseURL string) *FreelancerProfileHandler {
	return &FreelancerProfileHandler{DB: db, UploadDir: uploadDir, AppBaseURL: appBaseURL}
}

func (h *FreelancerProfileHandler) getOrCreate(c *fiber.Ctx) (*models.FreelancerProfile, error) {
	userUUID, ok := currentUserUUID(c)
	if !ok {
		return nil, fiber.ErrUnauthorized
	}

	var profile models.FreelancerProfile
	err := h.DB.Where("user_id = ?", userUUID).First(&profile).Error
	if err == gorm.ErrRecordNotFound {
		profile = models.FreelancerProfile{
			UserID:       userUUID,
			ReviewStatus: models.StatusDraft,
		}
		if err := h.DB.Create(&profile).Error; err != nil {
			return nil, err
		}
		return &profile, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (h *FreelancerProfileHandler) Get(c *fiber.Ctx) error {
	profile, err := h.getOrCreate(c)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load profile",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    profile,
	})
}

type UpdateProfileReq struct {
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	Skills      []string `json:"skills"`
}

func (h *FreelancerProfileHandler) Update(c *fiber.Ctx) error {
	profile, err := h.getOrCreate(c)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load profile",
		})
	}

	var req UpdateProfileReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.DisplayName != "" {
		profile.DisplayName = strings.TrimSpace(req.DisplayName)
	}
	profile.Bio = req.Bio
	if req.Skills != nil {
		skillsJSON, err := json.Marshal(req.Skills)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{
				"success": false,
				"message": "Failed to process skills",
			})
		}
		profile.Skills = datatypes.JSON(skillsJSON)
	}

	if err := h.DB.Save(profile).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update profile",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    profile,
	})
}

// UploadDocument stores a verification document and appends its URL to
// the profile's document list.
func (h *FreelancerProfileHandler) UploadDocument(c *fiber.Ctx) error {
	profile, err := h.getOrCreate(c)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load profile",
		})
	}

	file, err := c.FormFile("document")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Document file is required",
		})
	}

	if file.Size <= 0 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file size",
		})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".pdf" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Unsupported document format",
		})
	}

	uploadDir := filepath.Join(h.UploadDir, "documents")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create upload folder",
		})
	}

	filename := fmt.Sprintf("doc_%s_%d%s", profile.UserID, time.Now().UnixNano(), ext)
	savePath := filepath.Join(uploadDir, filename)

	if err := c.SaveFile(file, savePath); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to save document",
		})
	}

	publicPath := "/uploads/documents/" + filename
	fullURL := publicPath
	if h.AppBaseURL != "" {
		fullURL = strings.TrimRight(h.AppBaseURL, "/") + publicPath
	}

	var docs []string
	if len(profile.Documents) > 0 {
		_ = json.Unmarshal(profile.Documents, &docs)
	}
	docs = append(docs, fullURL)
	docsJSON, _ := json.Marshal(docs)
	profile.Documents = datatypes.JSON(docsJSON)

	if err := h.DB.Save(profile).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update profile",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"url":     fullURL,
	})
}

// Submit sends the profile for verification review. Verification itself
// happens through the admin maintenance interface.
func (h *FreelancerProfileHandler) Submit(c *fiber.Ctx) error {
	profile, err := h.getOrCreate(c)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load profile",
		})
	}

	if profile.DisplayName == "" || len(profile.Documents) == 0 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Display name and at least one document are required",
		})
	}

	profile.ReviewStatus = models.StatusPendingReview
	if err := h.DB.Save(profile).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to submit profile",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile submitted for review",
		"data": fiber.Map{
			"review_status": profile.ReviewStatus,
		},
	})
}

type UpdateLocationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateLocation stores the user's coordinate pair. Geocoding happens on
// the frontend; only the resolved pair is persisted.
func (h *FreelancerProfileHandler) UpdateLocation(c *fiber.Ctx) error {
	userUUID, ok := currentUserUUID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req UpdateLocationReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Coordinates out of range",
		})
	}

	coords, _ := json.Marshal(map[string]float64{"lat": req.Lat, "lng": req.Lng})

	if err := h.DB.Model(&models.User{}).
		Where("id = ?", userUUID).
		Update("coordinates", datatypes.JSON(coords)).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update location",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Location updated",
	})
}
