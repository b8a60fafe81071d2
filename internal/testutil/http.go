package testutil

import (
	"context"
	"net/http"

	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// WithSession injects a signed-in principal into the request context,
// bypassing token verification.
func WithSession(r *http.Request, id primitive.ObjectID, name, email, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:    id.Hex(),
		Name:  name,
		Email: email,
		Role:  role,
	})
}
