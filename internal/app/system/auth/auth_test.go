package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecret = "test-token-secret-for-tests-0123456789"

func newManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(testSecret, time.Hour, "test_session", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return sm
}

func testUser() *models.User {
	return &models.User{
		ID:       primitive.NewObjectID(),
		FullName: "Ayesha Khan",
		Email:    "ayesha@example.com",
		Role:     models.RoleAdmin,
		IsActive: true,
	}
}

func TestNewSessionManager_RejectsEmptySecret(t *testing.T) {
	if _, err := auth.NewSessionManager("", time.Hour, "", "", false, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	sm := newManager(t)
	u := testUser()

	token, expires, err := sm.Issue(u)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if time.Until(expires) < 55*time.Minute {
		t.Errorf("expiry too soon: %v", expires)
	}

	claims, err := sm.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != u.ID.Hex() {
		t.Errorf("subject: got %q, want %q", claims.Subject, u.ID.Hex())
	}
	if claims.Role != models.RoleAdmin {
		t.Errorf("role: got %q, want %q", claims.Role, models.RoleAdmin)
	}
	if claims.Email != u.Email {
		t.Errorf("email: got %q, want %q", claims.Email, u.Email)
	}
}

func TestVerify_RejectsTamperedToken(t *testing.T) {
	sm := newManager(t)
	token, _, err := sm.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := sm.Verify(tampered); err == nil {
		t.Fatal("expected tampered token to fail verification")
	}
}

func TestVerify_RejectsTokenFromOtherSecret(t *testing.T) {
	sm := newManager(t)
	other, err := auth.NewSessionManager("another-secret-entirely-0123456789abcd", time.Hour, "test_session", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	token, _, err := other.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := sm.Verify(token); err == nil {
		t.Fatal("expected cross-secret token to fail verification")
	}
}

func TestClearCookie_Expires(t *testing.T) {
	sm := newManager(t)
	rec := httptest.NewRecorder()
	sm.ClearCookie(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if c := cookies[0]; c.MaxAge != -1 || c.Value != "" {
		t.Errorf("cookie not cleared: MaxAge=%d Value=%q", c.MaxAge, c.Value)
	}
}

func TestLoadSession_BearerHeader(t *testing.T) {
	sm := newManager(t)
	u := testUser()
	sm.SetUserFetcher(func(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
		return u, nil
	})

	token, _, err := sm.Issue(u)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	var got *auth.SessionUser
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	sm.LoadSession(next).ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("expected a session user in context")
	}
	if got.ID != u.ID.Hex() {
		t.Errorf("session user ID: got %q, want %q", got.ID, u.ID.Hex())
	}
}

func TestRequireSignedIn_NoSession(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	auth.RequireSignedIn(next).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if called {
		t.Error("handler should not run without a session")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLoadSession_RevokedAccount(t *testing.T) {
	sm := newManager(t)
	completed := testUser()
	completed.Role = models.RoleVolunteer
	completed.Volunteer = &models.VolunteerProfile{Status: models.VolunteerCompleted}
	sm.SetUserFetcher(func(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
		return completed, nil
	})

	token, _, err := sm.Issue(completed)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler := sm.LoadSession(auth.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for a revoked account")
	})))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusForbidden)
	}
}
