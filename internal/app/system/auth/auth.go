// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/combinefoundation/portal/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultTokenTTL is how long a session token lives unless configured.
const DefaultTokenTTL = 7 * 24 * time.Hour

// DefaultCookieName is the session cookie. The same token is also accepted
// as an Authorization bearer header for non-browser clients.
const DefaultCookieName = "portal_session"

// SessionUser is the principal view cached in the request context.
type SessionUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	revokedKey     ctxKey = "sessionRevoked"
)

// Claims are the JWT claims carried by a session token.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserFetcher loads the fresh user record for a token subject. Wired to the
// user store at boot so deactivations and volunteer completions take effect
// on the next request, not at token expiry.
type UserFetcher func(ctx context.Context, id primitive.ObjectID) (*models.User, error)

// SessionManager signs and verifies session tokens and owns the cookie.
type SessionManager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	domain     string
	secure     bool
	fetcher    UserFetcher
	log        *zap.Logger
}

// NewSessionManager validates the signing secret and builds a manager.
// secure controls the cookie Secure flag and should be true in production.
func NewSessionManager(secret string, ttl time.Duration, cookieName, domain string, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is empty; provide 32+ random chars")
	}
	if len(secret) < 32 {
		logger.Warn("token secret is short; 32+ chars recommended", zap.Int("length", len(secret)))
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &SessionManager{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: cookieName,
		domain:     domain,
		secure:     secure,
		log:        logger,
	}, nil
}

// SetUserFetcher wires the per-request fresh-user lookup.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// TTL returns the configured token lifetime.
func (sm *SessionManager) TTL() time.Duration { return sm.ttl }

// Issue signs a session token for the user.
func (sm *SessionManager) Issue(u *models.User) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(sm.ttl)
	claims := Claims{
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify parses and validates a token, returning its claims.
func (sm *SessionManager) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return sm.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

// SetCookie writes the session cookie. SameSite is Strict: the SPA and the
// API share an origin in every deployment of this portal.
func (sm *SessionManager) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    token,
		Path:     "/",
		Domain:   sm.domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie overwrites the session cookie with an expired empty value.
func (sm *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		Domain:   sm.domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// tokenFromRequest pulls the token from the cookie, falling back to an
// Authorization bearer header.
func (sm *SessionManager) tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(sm.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// LoadSession verifies the request's token, loads the fresh user record,
// and injects a SessionUser into the context. Requests without a valid
// token pass through unauthenticated; access revocation (deactivated
// account, completed volunteer) is flagged so RequireSignedIn can report
// it distinctly from a missing session.
func (sm *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sm.tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := sm.Verify(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		su := &SessionUser{
			ID:    claims.Subject,
			Name:  claims.Name,
			Email: claims.Email,
			Role:  claims.Role,
		}

		if sm.fetcher != nil {
			oid, err := primitive.ObjectIDFromHex(claims.Subject)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			u, err := sm.fetcher(r.Context(), oid)
			if err != nil {
				// Deleted account or store error; treat as unauthenticated.
				next.ServeHTTP(w, r)
				return
			}
			if !u.CanLogin() {
				r = r.WithContext(context.WithValue(r.Context(), revokedKey, true))
				next.ServeHTTP(w, r)
				return
			}
			su.Name = u.FullName
			su.Email = u.Email
			su.Role = u.Role
		}

		next.ServeHTTP(w, withUser(r, su))
	})
}

// CurrentUser returns the authenticated principal, if any.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// SessionRevoked reports whether the request carried a valid token for an
// account whose access has been revoked.
func SessionRevoked(r *http.Request) bool {
	revoked, _ := r.Context().Value(revokedKey).(bool)
	return revoked
}

// RequireSignedIn rejects unauthenticated requests with a 401 envelope, or
// a 403 when the session is valid but access has been revoked.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		if SessionRevoked(r) {
			writeEnvelope(w, http.StatusForbidden, "account access has been revoked")
			return
		}
		writeEnvelope(w, http.StatusUnauthorized, "authentication required")
	})
}

func writeEnvelope(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": msg,
	})
}

// WithTestUser injects a user into the request context. Test helper only.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}
