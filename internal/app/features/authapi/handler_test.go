package authapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/combinefoundation/portal/internal/app/features/authapi"
	"github.com/combinefoundation/portal/internal/app/store/passwordreset"
	userstore "github.com/combinefoundation/portal/internal/app/store/users"
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/mailer"
	"github.com/combinefoundation/portal/internal/app/system/passwords"
	"github.com/combinefoundation/portal/internal/app/system/ratelimit"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/domain/models"
	"github.com/combinefoundation/portal/internal/testutil"
	"go.uber.org/zap"
)

// captureMailer records outbound email instead of sending it.
type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (c *captureMailer) Send(e mailer.Email) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, e)
	return nil
}

func (c *captureMailer) waitFor(t *testing.T, n int) []mailer.Email {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.sent) >= n {
			out := append([]mailer.Email(nil), c.sent...)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d sent emails", n)
	return nil
}

func newTestHandler(t *testing.T) (*authapi.Handler, *captureMailer) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	sessions, err := auth.NewSessionManager("test-token-secret-for-tests-0123456789", time.Hour, "test_session", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	mail := &captureMailer{}
	return &authapi.Handler{
		Log:      zap.NewNop(),
		Resp:     &respond.Writer{},
		Sessions: sessions,
		Users:    userstore.New(db),
		Resets:   passwordreset.New(db),
		Mail:     mail,
		Logins:   ratelimit.NewLoginLimiter(100, time.Minute, 100, time.Minute),
		SiteName: "Combine Foundation",
		LoginURL: "https://portal.example.org/login",
	}, mail
}

func createAccount(t *testing.T, users *userstore.Store, role, email, password string) models.User {
	t.Helper()
	hash, err := passwords.Hash(password)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	// The same shape the admin/trustee create handlers pass; the store is
	// responsible for making the account active.
	u, err := users.Create(context.Background(), models.User{
		FullName:     "Test Account",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return u
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	r := httptest.NewRequest("POST", path, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	handler(rec, r)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) respond.Envelope {
	t.Helper()
	var env respond.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestHandleLogin(t *testing.T) {
	h, _ := newTestHandler(t)
	createAccount(t, h.Users, models.RoleAdmin, "admin@example.com", "correct-pass-1")

	rec := postJSON(t, h.HandleLogin, "/login", map[string]string{
		"email": "admin@example.com", "password": "correct-pass-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Token string      `json:"token"`
			User  models.User `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Data.Token == "" {
		t.Error("response missing session token")
	}
	if env.Data.User.PasswordHash != "" {
		t.Error("response leaked the password hash")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == "" {
		t.Error("session cookie was not set")
	}
}

func TestHandleLogin_UniformCredentialFailure(t *testing.T) {
	h, _ := newTestHandler(t)
	createAccount(t, h.Users, models.RoleAdmin, "admin@example.com", "correct-pass-1")

	// Wrong password and unknown account produce the same status and
	// message.
	wrongPass := postJSON(t, h.HandleLogin, "/login", map[string]string{
		"email": "admin@example.com", "password": "wrong",
	})
	noAccount := postJSON(t, h.HandleLogin, "/login", map[string]string{
		"email": "ghost@example.com", "password": "wrong",
	})

	if wrongPass.Code != http.StatusUnauthorized || noAccount.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d, want 401, 401", wrongPass.Code, noAccount.Code)
	}
	if envelope(t, wrongPass).Message != envelope(t, noAccount).Message {
		t.Error("failure messages must not distinguish the two cases")
	}
}

func TestHandleLogin_PendingVolunteer(t *testing.T) {
	h, _ := newTestHandler(t)
	createAccount(t, h.Users, models.RoleVolunteer, "pending@example.com", "some-pass-123")

	rec := postJSON(t, h.HandleLogin, "/login", map[string]string{
		"email": "pending@example.com", "password": "some-pass-123",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestHandleLogin_RateLimited(t *testing.T) {
	h, _ := newTestHandler(t)
	h.Logins = ratelimit.NewLoginLimiter(2, time.Minute, 100, time.Minute)

	payload := map[string]string{"email": "ghost@example.com", "password": "x-pass-123"}
	postJSON(t, h.HandleLogin, "/login", payload)
	postJSON(t, h.HandleLogin, "/login", payload)

	rec := postJSON(t, h.HandleLogin, "/login", payload)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	h, mail := newTestHandler(t)
	createAccount(t, h.Users, models.RoleAdmin, "admin@example.com", "old-pass-123")

	rec := postJSON(t, h.HandleForgotPassword, "/forgot-password", map[string]string{
		"email": "admin@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot-password status = %d", rec.Code)
	}

	sent := mail.waitFor(t, 1)
	if sent[0].To != "admin@example.com" {
		t.Errorf("OTP sent to %q", sent[0].To)
	}

	// The handler does not expose the code; issue a fresh one through the
	// store, which invalidates the mailed code.
	pr, err := h.Resets.Issue(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := pr.Code

	rec = postJSON(t, h.HandleVerifyOTP, "/verify-otp", map[string]string{
		"email": "admin@example.com", "code": code,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify-otp status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, h.HandleResetPassword, "/reset-password", map[string]string{
		"email": "admin@example.com", "code": code, "new_password": "new-pass-456",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset-password status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Old credential is dead, new one works.
	rec = postJSON(t, h.HandleLogin, "/login", map[string]string{
		"email": "admin@example.com", "password": "old-pass-123",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("old password: status = %d, want 401", rec.Code)
	}
	rec = postJSON(t, h.HandleLogin, "/login", map[string]string{
		"email": "admin@example.com", "password": "new-pass-456",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("new password: status = %d, want 200", rec.Code)
	}

	// The consumed code cannot be replayed.
	rec = postJSON(t, h.HandleResetPassword, "/reset-password", map[string]string{
		"email": "admin@example.com", "code": code, "new_password": "another-789",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("replayed code: status = %d, want 400", rec.Code)
	}
}

func TestHandleForgotPassword_UnknownEmail(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.HandleForgotPassword, "/forgot-password", map[string]string{
		"email": "ghost@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for an unknown email", rec.Code)
	}
	if env := envelope(t, rec); env.Message == "" {
		t.Error("expected the uniform sent message")
	}
}

func TestHandleVerifyOTP_BadShape(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, code := range []string{"12345", "1234567", "abcdef"} {
		rec := postJSON(t, h.HandleVerifyOTP, "/verify-otp", map[string]string{
			"email": "a@example.com", "code": code,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code %q: status = %d, want 400", code, rec.Code)
		}
	}
}
