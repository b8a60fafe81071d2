// internal/app/features/shared/params.go

// Package shared holds the request-parsing helpers every feature handler
// uses: URL ObjectID extraction, validated JSON decoding, and paging.
package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// validate is shared; validator instances cache struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// URLObjectID parses the named chi URL parameter as a Mongo ObjectID.
// A malformed id surfaces as ErrInvalidHex, which the response writer
// maps to 404: a resource behind an id that cannot exist is not found.
func URLObjectID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, primitive.ErrInvalidHex
	}
	return id, nil
}

// DecodeJSON reads and validates a JSON request body into dst. Validation
// failures surface as validator.ValidationErrors so the response writer
// can flatten them per field.
func DecodeJSON(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return httperr.BadRequest("request body is empty")
		}
		return httperr.Wrap(http.StatusBadRequest, "invalid JSON body", err)
	}
	return validate.Struct(dst)
}

// Validate runs struct validation outside of DecodeJSON, for values built
// from multipart form fields.
func Validate(v interface{}) error {
	return validate.Struct(v)
}

// Paging reads page/limit query parameters. Page starts at 1; limit
// defaults to 20 and caps at 100.
func Paging(r *http.Request) (page, limit, offset int64) {
	page = queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit = queryInt(r, "limit", 20)
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}

// PaginationFor builds the envelope pagination block.
func PaginationFor(page, limit, total int64) *respond.Pagination {
	return &respond.Pagination{Page: page, Limit: limit, Total: total}
}

func queryInt(r *http.Request, name string, def int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}
