// internal/app/system/httperr/httperr.go

// Package httperr defines the error taxonomy handlers speak in. Every error
// that should surface with a specific status code is wrapped in an *E; the
// response middleware in respond maps anything else to a 500.
package httperr

import (
	"errors"
	"fmt"
	"net/http"
)

// E is an error carrying an HTTP status and a client-safe message. Fields
// holds flattened per-field validation messages when the error came from
// payload validation.
type E struct {
	Status  int
	Message string
	Fields  []string
	err     error // wrapped cause, not shown to clients
}

func (e *E) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *E) Unwrap() error { return e.err }

// New returns an error with an explicit status.
func New(status int, msg string) *E {
	return &E{Status: status, Message: msg}
}

// Wrap attaches a cause that is logged but never sent to the client.
func Wrap(status int, msg string, err error) *E {
	return &E{Status: status, Message: msg, err: err}
}

// BadRequest is a 400 with a message.
func BadRequest(msg string) *E { return New(http.StatusBadRequest, msg) }

// Validation is a 400 carrying flattened per-field messages.
func Validation(msgs []string) *E {
	return &E{Status: http.StatusBadRequest, Message: "validation failed", Fields: msgs}
}

// Unauthorized is a 401 with a message.
func Unauthorized(msg string) *E { return New(http.StatusUnauthorized, msg) }

// Forbidden is a 403 with a message.
func Forbidden(msg string) *E { return New(http.StatusForbidden, msg) }

// NotFound is a 404 with a message.
func NotFound(msg string) *E { return New(http.StatusNotFound, msg) }

// Conflict is a 409 with a message.
func Conflict(msg string) *E { return New(http.StatusConflict, msg) }

// Internal is a 500 whose cause is kept server-side.
func Internal(err error) *E {
	return &E{Status: http.StatusInternalServerError, Message: "internal server error", err: err}
}

// From extracts an *E from err, or nil if err carries no status.
func From(err error) *E {
	var e *E
	if errors.As(err, &e) {
		return e
	}
	return nil
}
