package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/middleware"
	"github.com/sportsgig/backend/internal/models"
	"github.com/sportsgig/backend/internal/utils"
)

const (
	testSecret = "test-secret"
	testIDKey  = "0123456789abcdef"
)

var testSchema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT UNIQUE,
		password TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		is_verified BOOLEAN NOT NULL DEFAULT false,
		referral_code TEXT UNIQUE,
		referred_by_id TEXT,
		coordinates TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE freelancer_profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		display_name TEXT,
		photo_url TEXT,
		bio TEXT,
		skills TEXT,
		documents TEXT,
		is_verified BOOLEAN NOT NULL DEFAULT false,
		review_status TEXT NOT NULL DEFAULT 'draft',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE services (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider_id TEXT NOT NULL,
		title TEXT,
		category TEXT,
		sport TEXT,
		duration_minutes INTEGER,
		base_price INTEGER,
		packages TEXT,
		cover_url TEXT,
		is_active BOOLEAN NOT NULL DEFAULT true,
		rating REAL NOT NULL DEFAULT 0,
		review_count INTEGER NOT NULL DEFAULT 0,
		total_orders INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE bookings (
		id TEXT PRIMARY KEY,
		order_code TEXT UNIQUE,
		client_id TEXT,
		service_id INTEGER,
		status TEXT NOT NULL DEFAULT 'pending',
		total_price INTEGER,
		note TEXT,
		scheduled_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE reviews (
		id TEXT PRIMARY KEY,
		booking_id TEXT UNIQUE,
		client_id TEXT,
		service_id INTEGER,
		rating INTEGER NOT NULL,
		comment TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE system_configs (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME
	)`,
	`CREATE TABLE admin_actions (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		params TEXT,
		affected INTEGER,
		created_at DATETIME
	)`,
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	// A pooled second connection would see an empty in-memory database.
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range testSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func seedTestUser(t *testing.T, db *gorm.DB, name string, role models.Role) models.User {
	t.Helper()
	u := models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        name + "@example.com",
		Role:         role,
		IsActive:     true,
		ReferralCode: models.GenerateReferralCode(),
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

func seedTestService(t *testing.T, db *gorm.DB, providerID uuid.UUID, active bool) models.Service {
	t.Helper()
	s := models.Service{
		ProviderID:      providerID,
		Title:           "Tennis coaching",
		Sport:           "tennis",
		DurationMinutes: 60,
		BasePrice:       500,
		IsActive:        active,
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}
	return s
}

func seedTestBooking(t *testing.T, db *gorm.DB, clientID uuid.UUID, serviceID uint, status models.BookingStatus) models.Booking {
	t.Helper()
	b := models.Booking{
		ID:        uuid.New(),
		OrderCode: models.GenerateOrderCode(),
		ClientID:  clientID,
		ServiceID: serviceID,
		Status:    status,
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func jsonReq(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// authedReq builds a request carrying the user's session cookie.
func authedReq(t *testing.T, method, target string, body any, u models.User) *http.Request {
	t.Helper()
	req := jsonReq(t, method, target, body)
	token, err := utils.SignJWT(testSecret, u.ID.String(), string(u.Role), 60)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookieName, Value: token})
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}
