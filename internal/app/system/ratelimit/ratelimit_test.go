package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/combinefoundation/portal/internal/app/system/ratelimit"
)

func TestAllow_WithinBudget(t *testing.T) {
	l := ratelimit.New(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("request over budget should be denied")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	if !l.Allow("a") {
		t.Fatal("first request for a should pass")
	}
	if !l.Allow("b") {
		t.Error("b should not share a's window")
	}
	if l.Allow("a") {
		t.Error("a is over budget")
	}
}

func TestAllow_WindowExpires(t *testing.T) {
	l := ratelimit.New(1, 20*time.Millisecond)
	if !l.Allow("k") {
		t.Fatal("first request should pass")
	}
	if l.Allow("k") {
		t.Fatal("second request should be denied")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.Allow("k") {
		t.Error("request after window expiry should pass")
	}
}

func TestRemaining(t *testing.T) {
	l := ratelimit.New(5, time.Minute)
	if got := l.Remaining("k"); got != 5 {
		t.Errorf("fresh key remaining = %d, want 5", got)
	}
	l.Allow("k")
	l.Allow("k")
	if got := l.Remaining("k"); got != 3 {
		t.Errorf("remaining after 2 = %d, want 3", got)
	}
}

func TestReset(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("over budget before reset")
	}
	l.Reset("k")
	if !l.Allow("k") {
		t.Error("reset should clear the window")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded-for wins", "203.0.113.9, 10.0.0.1", "198.51.100.2", "192.0.2.1:1234", "203.0.113.9"},
		{"real-ip fallback", "", "198.51.100.2", "192.0.2.1:1234", "198.51.100.2"},
		{"remote addr", "", "", "192.0.2.1:1234", "192.0.2.1"},
		{"remote addr without port", "", "", "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ratelimit.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware_RejectsWith429(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	handler := ratelimit.Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request: got %d, want 429", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestLoginLimiter_EmailWindow(t *testing.T) {
	ll := ratelimit.NewLoginLimiter(100, time.Minute, 2, time.Minute)

	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	for i := 0; i < 2; i++ {
		if ok, _ := ll.Check(req, "User@Example.com"); !ok {
			t.Fatalf("attempt %d should pass", i+1)
		}
	}
	// Email matching is case and whitespace insensitive.
	if ok, reason := ll.Check(req, " user@example.com "); ok {
		t.Error("third attempt for the same email should be denied")
	} else if reason == "" {
		t.Error("denial should carry a client-safe reason")
	}

	ll.ResetEmail("user@example.com")
	if ok, _ := ll.Check(req, "user@example.com"); !ok {
		t.Error("attempt after ResetEmail should pass")
	}
}

func TestLoginLimiter_IPWindow(t *testing.T) {
	ll := ratelimit.NewLoginLimiter(2, time.Minute, 100, time.Minute)

	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "192.0.2.7:1234"

	// Distinct emails do not help: the IP window trips on the third hit.
	if ok, _ := ll.Check(req, "a@example.com"); !ok {
		t.Fatal("first attempt should pass")
	}
	if ok, _ := ll.Check(req, "b@example.com"); !ok {
		t.Fatal("second attempt should pass")
	}
	if ok, _ := ll.Check(req, "c@example.com"); ok {
		t.Error("third attempt from the same IP should be denied")
	}
}
