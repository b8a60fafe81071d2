package respond_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) respond.Envelope {
	t.Helper()
	var env respond.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.OK(rec, map[string]string{"hello": "world"})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	env := decode(t, rec)
	if !env.Success {
		t.Error("success should be true")
	}
	if env.Data == nil {
		t.Error("data should be present")
	}
}

func TestList_CarriesCountAndPagination(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.List(rec, []string{"a", "b"}, 42, &respond.Pagination{Page: 2, Limit: 20, Total: 42})

	env := decode(t, rec)
	if env.Count == nil || *env.Count != 42 {
		t.Errorf("count = %v, want 42", env.Count)
	}
	if env.Pagination == nil || env.Pagination.Page != 2 {
		t.Errorf("pagination = %+v, want page 2", env.Pagination)
	}
}

func TestFail_Classification(t *testing.T) {
	wr := &respond.Writer{} // nil ErrLog is a no-op sink

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"httperr status", httperr.Conflict("email already registered"), http.StatusConflict, "email already registered"},
		{"wrapped httperr", fmt.Errorf("load user: %w", httperr.Forbidden("permission denied")), http.StatusForbidden, "permission denied"},
		{"mongo not found", mongo.ErrNoDocuments, http.StatusNotFound, "resource not found"},
		{"bad object id", primitive.ErrInvalidHex, http.StatusNotFound, "resource not found"},
		{"unknown error", errors.New("disk on fire"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/api/v1/anything", nil)
			wr.Fail(rec, req, tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			env := decode(t, rec)
			if env.Success {
				t.Error("success should be false")
			}
			if env.Message != tt.message {
				t.Errorf("message = %q, want %q", env.Message, tt.message)
			}
		})
	}
}

func TestFail_DoesNotLeakInternalCause(t *testing.T) {
	wr := &respond.Writer{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/users", nil)

	wr.Fail(rec, req, httperr.Internal(errors.New("dial tcp 10.0.0.5: connection refused")))

	env := decode(t, rec)
	if env.Message != "internal server error" {
		t.Errorf("message = %q, want generic 500 message", env.Message)
	}
}

func TestFail_ValidationFields(t *testing.T) {
	wr := &respond.Writer{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/admins", nil)

	wr.Fail(rec, req, httperr.Validation([]string{"email must be a valid email address"}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	env := decode(t, rec)
	if len(env.Errors) != 1 || env.Errors[0] != "email must be a valid email address" {
		t.Errorf("errors = %v", env.Errors)
	}
}

func TestRecoverer(t *testing.T) {
	wr := &respond.Writer{}
	handler := wr.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	env := decode(t, rec)
	if env.Success || env.Message != "internal server error" {
		t.Errorf("envelope = %+v", env)
	}
}
