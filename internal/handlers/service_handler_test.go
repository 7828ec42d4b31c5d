package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/middleware"
	"github.com/sportsgig/backend/internal/models"
	"github.com/sportsgig/backend/internal/utils"
)

func newServiceApp(db *gorm.DB) *fiber.App {
	h := NewServiceHandler(db, nil, testIDKey)

	app := fiber.New()
	protected := app.Group("/api", middleware.JWTFromRequest(testSecret), middleware.AttachJWTLocals())
	protected.Put("/freelancer/services/:id",
		middleware.RequireRoles("freelancer"),
		h.Update,
	)
	return app
}

func encServiceID(t *testing.T, id uint) string {
	t.Helper()
	enc, err := utils.EncryptID(id, testIDKey)
	if err != nil {
		t.Fatalf("encrypt id: %v", err)
	}
	return enc
}

func TestUpdateListingPartial(t *testing.T) {
	db := setupTestDB(t)
	app := newServiceApp(db)

	provider := seedTestUser(t, db, "provider", models.RoleFreelancer)
	service := seedTestService(t, db, provider.ID, true)
	url := "/api/freelancer/services/" + encServiceID(t, service.ID)

	// Only base_price in the body; every omitted field keeps its value.
	resp, err := app.Test(authedReq(t, "PUT", url, map[string]any{
		"base_price": 750,
	}, provider), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got models.Service
	if err := db.First(&got, "id = ?", service.ID).Error; err != nil {
		t.Fatalf("reload service: %v", err)
	}
	if got.BasePrice != 750 {
		t.Errorf("base_price = %d, want 750", got.BasePrice)
	}
	if got.Title != service.Title {
		t.Errorf("title changed to %q", got.Title)
	}
	if got.Sport != service.Sport {
		t.Errorf("sport changed to %q", got.Sport)
	}
	if got.DurationMinutes != service.DurationMinutes {
		t.Errorf("duration_minutes changed to %d", got.DurationMinutes)
	}
	if !got.IsActive {
		t.Error("is_active changed without being in the body")
	}
}

func TestUpdateListingRejectsBadDuration(t *testing.T) {
	db := setupTestDB(t)
	app := newServiceApp(db)

	provider := seedTestUser(t, db, "provider", models.RoleFreelancer)
	service := seedTestService(t, db, provider.ID, true)
	url := "/api/freelancer/services/" + encServiceID(t, service.ID)

	for _, d := range []int{0, -30} {
		resp, err := app.Test(authedReq(t, "PUT", url, map[string]any{
			"duration_minutes": d,
		}, provider), -1)
		if err != nil {
			t.Fatalf("duration %d: %v", d, err)
		}
		if resp.StatusCode != 400 {
			t.Errorf("duration %d status = %d, want 400", d, resp.StatusCode)
		}
	}

	var got models.Service
	db.First(&got, "id = ?", service.ID)
	if got.DurationMinutes != service.DurationMinutes {
		t.Errorf("duration_minutes changed to %d", got.DurationMinutes)
	}
}

func TestUpdateListingActivationNeedsVerification(t *testing.T) {
	db := setupTestDB(t)
	app := newServiceApp(db)

	provider := seedTestUser(t, db, "provider", models.RoleFreelancer)
	service := seedTestService(t, db, provider.ID, false)
	url := "/api/freelancer/services/" + encServiceID(t, service.ID)

	// Neither the account nor the profile flag is set.
	resp, err := app.Test(authedReq(t, "PUT", url, map[string]any{
		"is_active": true,
	}, provider), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}

	// Both flags set; activation goes through.
	db.Model(&models.User{}).Where("id = ?", provider.ID).Update("is_verified", true)
	db.Create(&models.FreelancerProfile{
		UserID:       provider.ID,
		DisplayName:  "Coach",
		IsVerified:   true,
		ReviewStatus: models.StatusApproved,
	})

	resp, err = app.Test(authedReq(t, "PUT", url, map[string]any{
		"is_active": true,
	}, provider), -1)
	if err != nil {
		t.Fatalf("verified request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("verified status = %d, want 200", resp.StatusCode)
	}

	var got models.Service
	db.First(&got, "id = ?", service.ID)
	if !got.IsActive {
		t.Error("listing not activated")
	}
}

func TestUpdateListingNotOwned(t *testing.T) {
	db := setupTestDB(t)
	app := newServiceApp(db)

	owner := seedTestUser(t, db, "owner", models.RoleFreelancer)
	other := seedTestUser(t, db, "other", models.RoleFreelancer)
	service := seedTestService(t, db, owner.ID, true)

	resp, err := app.Test(authedReq(t, "PUT", "/api/freelancer/services/"+encServiceID(t, service.ID),
		map[string]any{"base_price": 1}, other), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
