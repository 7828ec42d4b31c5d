package referral

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
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

	if err := db.Exec(`CREATE TABLE users (
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
	)`).Error; err != nil {
		t.Fatalf("create users table: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, code string) models.User {
	t.Helper()
	u := models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        name + "@example.com",
		Role:         models.RoleClient,
		IsActive:     true,
		ReferralCode: code,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

func TestAttach(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, nil)

	referrer := seedUser(t, db, "anna", "ANNA1234")
	referee := seedUser(t, db, "ben", "BEN12345")

	attached, err := svc.Attach(db, referee.ID, "ANNA1234")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !attached {
		t.Fatal("expected first attach to report attached=true")
	}

	var got models.User
	if err := db.First(&got, "id = ?", referee.ID).Error; err != nil {
		t.Fatalf("reload referee: %v", err)
	}
	if got.ReferredByID == nil || *got.ReferredByID != referrer.ID {
		t.Fatalf("referred_by_id = %v, want %s", got.ReferredByID, referrer.ID)
	}
}

func TestAttachLowercaseCode(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, nil)

	seedUser(t, db, "anna", "ANNA1234")
	referee := seedUser(t, db, "ben", "BEN12345")

	attached, err := svc.Attach(db, referee.ID, "  anna1234 ")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !attached {
		t.Fatal("code matching should be case and whitespace insensitive")
	}
}

func TestAttachOnlyOnce(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, nil)

	first := seedUser(t, db, "anna", "ANNA1234")
	seedUser(t, db, "carl", "CARL1234")
	referee := seedUser(t, db, "ben", "BEN12345")

	if _, err := svc.Attach(db, referee.ID, "ANNA1234"); err != nil {
		t.Fatalf("first attach: %v", err)
	}

	// Second code for the same user must not overwrite the first.
	attached, err := svc.Attach(db, referee.ID, "CARL1234")
	if err != nil {
		t.Fatalf("second attach: %v", err)
	}
	if attached {
		t.Fatal("second attach should report attached=false")
	}

	var got models.User
	if err := db.First(&got, "id = ?", referee.ID).Error; err != nil {
		t.Fatalf("reload referee: %v", err)
	}
	if got.ReferredByID == nil || *got.ReferredByID != first.ID {
		t.Fatalf("referred_by_id changed, got %v want %s", got.ReferredByID, first.ID)
	}
}

func TestAttachUnknownCode(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, nil)

	referee := seedUser(t, db, "ben", "BEN12345")

	if _, err := svc.Attach(db, referee.ID, "NOPE0000"); err != ErrCodeNotFound {
		t.Fatalf("err = %v, want ErrCodeNotFound", err)
	}
	if _, err := svc.Attach(db, referee.ID, ""); err != ErrCodeNotFound {
		t.Fatalf("empty code err = %v, want ErrCodeNotFound", err)
	}
}

func TestAttachSelfReferral(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, nil)

	u := seedUser(t, db, "anna", "ANNA1234")

	if _, err := svc.Attach(db, u.ID, "ANNA1234"); err != ErrSelfReferral {
		t.Fatalf("err = %v, want ErrSelfReferral", err)
	}

	var got models.User
	db.First(&got, "id = ?", u.ID)
	if got.ReferredByID != nil {
		t.Fatal("self referral must not set referred_by_id")
	}
}

func TestReferredCount(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, nil)

	referrer := seedUser(t, db, "anna", "ANNA1234")
	a := seedUser(t, db, "ben", "BEN12345")
	b := seedUser(t, db, "carl", "CARL1234")
	seedUser(t, db, "dina", "DINA1234")

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		if _, err := svc.Attach(db, id, "ANNA1234"); err != nil {
			t.Fatalf("attach %s: %v", id, err)
		}
	}

	n, err := svc.ReferredCount(db, referrer.ID)
	if err != nil {
		t.Fatalf("ReferredCount: %v", err)
	}
	if n != 2 {
		t.Errorf("ReferredCount = %d, want 2", n)
	}
}
