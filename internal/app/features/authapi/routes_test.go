package authapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/combinefoundation/portal/internal/app/features/authapi"
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestRoutes_LogoutAcceptsGetAndPost(t *testing.T) {
	sm, err := auth.NewSessionManager("0123456789abcdef0123456789abcdef", time.Hour, "", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	h := &authapi.Handler{Log: zap.NewNop(), Resp: &respond.Writer{}, Sessions: sm}
	router := authapi.Routes(h)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req := httptest.NewRequest(method, "/logout", nil)
		req = auth.WithTestUser(req, &auth.SessionUser{
			ID:   primitive.NewObjectID().Hex(),
			Role: models.RoleAdmin,
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s /logout = %d, want 200: %s", method, rec.Code, rec.Body.String())
		}
	}

	// Still behind the signed-in gate.
	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous GET /logout = %d, want 401", rec.Code)
	}
}
