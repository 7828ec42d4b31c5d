package handlers

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/middleware"
	"github.com/sportsgig/backend/internal/models"
	"github.com/sportsgig/backend/internal/utils"
)

func newAuthApp(db *gorm.DB) *fiber.App {
	h := &AuthHandler{DB: db, JWTSecret: testSecret, Expires: 60}

	app := fiber.New()
	app.Post("/api/auth/register", h.Register)
	app.Post("/api/auth/login", h.Login)
	app.Post("/api/auth/logout", h.Logout)
	app.Get("/api/auth/session", h.Session)
	return app
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.TokenCookieName {
			return c
		}
	}
	return nil
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	app := newAuthApp(db)

	resp, err := app.Test(jsonReq(t, "POST", "/api/auth/register", map[string]any{
		"name":     "Priya",
		"email":    "priya@example.com",
		"password": "secret123",
		"phone":    "9876543210",
	}), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	if c := sessionCookie(resp); c == nil || c.Value == "" {
		t.Error("expected session cookie on register")
	}

	body := decodeBody(t, resp)
	user := body["data"].(map[string]any)["user"].(map[string]any)
	if user["role"] != "client" {
		t.Errorf("role = %v, want client", user["role"])
	}
	if code, _ := user["referral_code"].(string); len(code) != 8 {
		t.Errorf("referral_code = %v, want 8 chars", user["referral_code"])
	}

	var u models.User
	if err := db.First(&u, "email = ?", "priya@example.com").Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if u.Password == "secret123" || u.Password == "" {
		t.Error("password must be stored hashed")
	}
	if u.Phone == nil || *u.Phone != "9876543210" {
		t.Errorf("phone = %v, want 9876543210", u.Phone)
	}
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	app := newAuthApp(db)

	resp, err := app.Test(jsonReq(t, "POST", "/api/auth/register", map[string]any{
		"name":     "",
		"email":    "not-an-email",
		"password": "123",
		"phone":    "99999999",
	}), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	// Validation failures come back 200 with success=false.
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != false {
		t.Fatal("expected success=false")
	}
	errs := body["errors"].(map[string]any)
	for _, field := range []string{"name", "email", "password", "phone"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("missing validation error for %s", field)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	app := newAuthApp(db)

	seedTestUser(t, db, "priya", models.RoleClient)

	resp, err := app.Test(jsonReq(t, "POST", "/api/auth/register", map[string]any{
		"name":     "Other Priya",
		"email":    "priya@example.com",
		"password": "secret123",
	}), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body := decodeBody(t, resp)
	if body["success"] != false {
		t.Fatal("duplicate email must not register")
	}
	errs := body["errors"].(map[string]any)
	if _, ok := errs["email"]; !ok {
		t.Error("expected email error")
	}
}

func TestRegisterWithoutPhone(t *testing.T) {
	db := setupTestDB(t)
	app := newAuthApp(db)

	// Two phone-less signups must not collide on the unique phone index.
	for _, email := range []string{"a@example.com", "b@example.com"} {
		resp, err := app.Test(jsonReq(t, "POST", "/api/auth/register", map[string]any{
			"name":     "User",
			"email":    email,
			"password": "secret123",
		}), -1)
		if err != nil {
			t.Fatalf("request %s: %v", email, err)
		}
		if resp.StatusCode != 201 {
			t.Fatalf("register %s status = %d, want 201", email, resp.StatusCode)
		}
	}
}

func TestUniqueReferralCode(t *testing.T) {
	db := setupTestDB(t)

	code, err := uniqueReferralCode(db)
	if err != nil {
		t.Fatalf("uniqueReferralCode: %v", err)
	}
	if len(code) != 8 {
		t.Errorf("code = %q, want 8 chars", code)
	}

	// A failing lookup must surface as an error, not loop forever.
	if err := db.Exec("DROP TABLE users").Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}
	if _, err := uniqueReferralCode(db); err == nil {
		t.Fatal("expected error when the lookup fails")
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	app := newAuthApp(db)

	pw, err := utils.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := seedTestUser(t, db, "priya", models.RoleClient)
	if err := db.Model(&models.User{}).Where("id = ?", u.ID).Update("password", pw).Error; err != nil {
		t.Fatalf("set password: %v", err)
	}

	resp, err := app.Test(jsonReq(t, "POST", "/api/auth/login", map[string]any{
		"email":    "priya@example.com",
		"password": "secret123",
	}), -1)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("login failed: %v", body["message"])
	}
	if c := sessionCookie(resp); c == nil || c.Value == "" {
		t.Error("expected session cookie on login")
	}

	// Wrong password and unknown email share one message.
	resp, err = app.Test(jsonReq(t, "POST", "/api/auth/login", map[string]any{
		"email":    "priya@example.com",
		"password": "wrong",
	}), -1)
	if err != nil {
		t.Fatalf("bad login: %v", err)
	}
	body = decodeBody(t, resp)
	if body["success"] != false {
		t.Fatal("wrong password must fail")
	}
	wrongMsg := body["message"]

	resp, err = app.Test(jsonReq(t, "POST", "/api/auth/login", map[string]any{
		"email":    "nobody@example.com",
		"password": "secret123",
	}), -1)
	if err != nil {
		t.Fatalf("unknown email login: %v", err)
	}
	body = decodeBody(t, resp)
	if body["message"] != wrongMsg {
		t.Errorf("unknown email message %q differs from wrong password message %q", body["message"], wrongMsg)
	}
}

func assertUnauthenticated(t *testing.T, resp *http.Response, label string) {
	t.Helper()
	if resp.StatusCode != 401 {
		t.Fatalf("%s: status = %d, want 401", label, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != false {
		t.Errorf("%s: expected success=false", label)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("%s: missing data object", label)
	}
	if user, present := data["user"]; !present || user != nil {
		t.Errorf("%s: user = %v, want explicit null", label, user)
	}
}

func TestSession(t *testing.T) {
	db := setupTestDB(t)
	app := newAuthApp(db)

	u := seedTestUser(t, db, "priya", models.RoleClient)

	// No token at all.
	resp, err := app.Test(jsonReq(t, "GET", "/api/auth/session", nil), -1)
	if err != nil {
		t.Fatalf("no token: %v", err)
	}
	assertUnauthenticated(t, resp, "no token")

	// Garbage token.
	req := jsonReq(t, "GET", "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookieName, Value: "not.a.token"})
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("garbage token: %v", err)
	}
	assertUnauthenticated(t, resp, "garbage token")

	// Expired token.
	expired, err := utils.SignJWT(testSecret, u.ID.String(), string(u.Role), -10)
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}
	req = jsonReq(t, "GET", "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookieName, Value: expired})
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("expired token: %v", err)
	}
	assertUnauthenticated(t, resp, "expired token")

	// Token signed with another secret.
	forged, err := utils.SignJWT("other-secret", u.ID.String(), string(u.Role), 60)
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	req = jsonReq(t, "GET", "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookieName, Value: forged})
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("forged token: %v", err)
	}
	assertUnauthenticated(t, resp, "forged token")

	// Valid token, deactivated account.
	inactive := seedTestUser(t, db, "gone", models.RoleClient)
	db.Model(&models.User{}).Where("id = ?", inactive.ID).Update("is_active", false)
	resp, err = app.Test(authedReq(t, "GET", "/api/auth/session", nil, inactive), -1)
	if err != nil {
		t.Fatalf("inactive user: %v", err)
	}
	assertUnauthenticated(t, resp, "inactive user")

	// Valid session via cookie.
	resp, err = app.Test(authedReq(t, "GET", "/api/auth/session", nil, u), -1)
	if err != nil {
		t.Fatalf("valid cookie: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("valid cookie status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	user := body["data"].(map[string]any)["user"].(map[string]any)
	if user["email"] != "priya@example.com" {
		t.Errorf("email = %v", user["email"])
	}
	if user["role"] != "client" {
		t.Errorf("role = %v", user["role"])
	}
	if user["expiry"] == nil {
		t.Error("expected expiry in session payload")
	}

	// Valid session via Authorization header.
	token, err := utils.SignJWT(testSecret, u.ID.String(), string(u.Role), 60)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req = jsonReq(t, "GET", "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("bearer: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("bearer status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutClearsCookie(t *testing.T) {
	db := setupTestDB(t)
	app := newAuthApp(db)

	resp, err := app.Test(jsonReq(t, "POST", "/api/auth/logout", nil), -1)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	c := sessionCookie(resp)
	if c == nil {
		t.Fatal("expected cookie header on logout")
	}
	if c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("logout cookie = {value: %q, maxAge: %d}, want cleared", c.Value, c.MaxAge)
	}
	resp.Body.Close()
}
