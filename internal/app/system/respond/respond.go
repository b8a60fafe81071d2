// internal/app/system/respond/respond.go

// Package respond owns the uniform response envelope:
//
//	{ "success": bool, "message"?, "data"?, "count"?, "pagination"?, "errors"?, "stack"? }
//
// Handlers return data through OK/Created/List and failures through Fail,
// which maps known error shapes to status codes and persists an error-log
// entry for server-side failures.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/combinefoundation/portal/internal/app/store/errorlog"
	"github.com/combinefoundation/portal/internal/app/system/errlog"
	"github.com/combinefoundation/portal/internal/app/system/httperr"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Pagination mirrors the page/limit the client asked for plus the total.
type Pagination struct {
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
	Total int64 `json:"total"`
}

// Envelope is the single response shape for success and failure.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Count      *int64      `json:"count,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
	Stack      string      `json:"stack,omitempty"`
}

// Writer carries the pieces Fail needs; constructed once in bootstrap and
// shared by all handlers.
type Writer struct {
	ErrLog      *errlog.Logger
	ExposeStack bool // include stacks in responses outside production
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// OK writes a 200 with data.
func OK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// OKMessage writes a 200 with a message and optional data.
func OKMessage(w http.ResponseWriter, msg string, data interface{}) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: msg, Data: data})
}

// Created writes a 201 with data.
func Created(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// List writes a 200 with data, a count, and pagination.
func List(w http.ResponseWriter, data interface{}, count int64, p *Pagination) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Count: &count, Pagination: p})
}

// Fail maps err to a status and writes the failure envelope. Known shapes:
// malformed ObjectID → 404, document not found → 404, duplicate key → 400,
// validation failure → 400 with flattened field messages, *httperr.E → its
// own status. Anything else is a 500, persisted to the error log with the
// endpoint and (non-production only) exposed stack.
func (wr *Writer) Fail(w http.ResponseWriter, r *http.Request, err error) {
	status, env := classify(err)

	if status >= http.StatusInternalServerError {
		wr.ErrLog.Log(r.Context(), errorlog.Entry{
			Level:      errorlog.LevelError,
			Message:    err.Error(),
			Stack:      string(debug.Stack()),
			Source:     "http",
			Endpoint:   r.Method + " " + r.URL.Path,
			StatusCode: status,
		})
		if wr.ExposeStack {
			env.Stack = string(debug.Stack())
		}
	}
	writeJSON(w, status, env)
}

func classify(err error) (int, Envelope) {
	if e := httperr.From(err); e != nil {
		return e.Status, Envelope{Success: false, Message: e.Message, Errors: e.Fields}
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return http.StatusNotFound, Envelope{Success: false, Message: "resource not found"}
	}
	if errors.Is(err, primitive.ErrInvalidHex) {
		return http.StatusNotFound, Envelope{Success: false, Message: "resource not found"}
	}
	if wafflemongo.IsDup(err) {
		return http.StatusBadRequest, Envelope{Success: false, Message: "duplicate value for a unique field"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return http.StatusBadRequest, Envelope{Success: false, Message: "validation failed", Errors: msgs}
	}

	return http.StatusInternalServerError, Envelope{Success: false, Message: "internal server error"}
}

// fieldMessage renders one validator failure as a client-readable message.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// Recoverer converts panics into the standard 500 envelope and records them
// in the error log. Mounted before any route handling.
func (wr *Writer) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				wr.ErrLog.Log(r.Context(), errorlog.Entry{
					Level:      errorlog.LevelError,
					Message:    "panic in handler",
					Stack:      string(debug.Stack()),
					Source:     "panic",
					Endpoint:   r.Method + " " + r.URL.Path,
					StatusCode: http.StatusInternalServerError,
					Metadata:   map[string]string{"panic": toString(rec)},
				})
				env := Envelope{Success: false, Message: "internal server error"}
				if wr.ExposeStack {
					env.Stack = string(debug.Stack())
				}
				writeJSON(w, http.StatusInternalServerError, env)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func toString(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}
