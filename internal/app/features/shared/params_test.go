package shared_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/combinefoundation/portal/internal/app/features/shared"
	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

type samplePayload struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
}

func TestDecodeJSON(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		var p samplePayload
		err := shared.DecodeJSON(jsonRequest(`{"name":"Ayesha","email":"a@example.com"}`), &p)
		if err != nil {
			t.Fatalf("DecodeJSON failed: %v", err)
		}
		if p.Name != "Ayesha" {
			t.Errorf("name = %q", p.Name)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		var p samplePayload
		err := shared.DecodeJSON(jsonRequest(""), &p)
		e := httperr.From(err)
		if e == nil || e.Status != http.StatusBadRequest {
			t.Fatalf("expected a 400 httperr, got %v", err)
		}
		if e.Message != "request body is empty" {
			t.Errorf("message = %q", e.Message)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		var p samplePayload
		err := shared.DecodeJSON(jsonRequest(`{"name":"Ayesha","email":"a@example.com","role":"superadmin"}`), &p)
		if err == nil {
			t.Error("unknown fields should be rejected")
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		var p samplePayload
		err := shared.DecodeJSON(jsonRequest(`{"name":"A","email":"not-an-email"}`), &p)
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("expected validator.ValidationErrors, got %v", err)
		}
		if len(verrs) != 2 {
			t.Errorf("failure count = %d, want 2", len(verrs))
		}
	})
}

func TestURLObjectID(t *testing.T) {
	oid := primitive.NewObjectID()

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", oid.Hex())
	r := httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	got, err := shared.URLObjectID(r, "id")
	if err != nil {
		t.Fatalf("URLObjectID failed: %v", err)
	}
	if got != oid {
		t.Errorf("got %s, want %s", got.Hex(), oid.Hex())
	}

	rctx = chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-hex")
	r = httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	_, err = shared.URLObjectID(r, "id")
	if !errors.Is(err, primitive.ErrInvalidHex) {
		t.Errorf("malformed id: got %v, want ErrInvalidHex", err)
	}
}

func TestURLObjectID_MalformedMapsTo404(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "zzzz")
	r := httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	_, err := shared.URLObjectID(r, "id")
	wr := &respond.Writer{}
	rec := httptest.NewRecorder()
	wr.Fail(rec, r, err)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPaging(t *testing.T) {
	tests := []struct {
		query  string
		page   int64
		limit  int64
		offset int64
	}{
		{"", 1, 20, 0},
		{"?page=3&limit=10", 3, 10, 20},
		{"?page=0&limit=-5", 1, 20, 0},
		{"?limit=500", 1, 100, 0},
		{"?page=abc&limit=xyz", 1, 20, 0},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/"+tt.query, nil)
		page, limit, offset := shared.Paging(r)
		if page != tt.page || limit != tt.limit || offset != tt.offset {
			t.Errorf("Paging(%q) = (%d, %d, %d), want (%d, %d, %d)",
				tt.query, page, limit, offset, tt.page, tt.limit, tt.offset)
		}
	}
}
