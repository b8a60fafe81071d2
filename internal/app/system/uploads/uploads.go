// internal/app/system/uploads/uploads.go

// Package uploads parses multipart image uploads ahead of the general
// error handler, so oversize and wrong-type files map to specific 400
// messages instead of a generic failure.
package uploads

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/combinefoundation/portal/internal/app/system/httperr"
)

// MaxImageBytes caps uploaded images at 5MB.
const MaxImageBytes = 5 << 20

// allowedTypes are the image MIME types accepted for upload, detected by
// content sniffing rather than trusting the client's header.
var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// Image is a parsed, validated upload.
type Image struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Reader returns a fresh reader over the image bytes.
func (i *Image) Reader() io.Reader { return bytes.NewReader(i.Data) }

// FromRequest extracts an image file from the named multipart field.
// Returns (nil, nil) when the field is absent and required is false.
func FromRequest(r *http.Request, field string, required bool) (*Image, error) {
	// +1KB of slack for the multipart framing around the capped file.
	if err := r.ParseMultipartForm(MaxImageBytes + 1024); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			if required {
				return nil, httperr.BadRequest("expected a multipart form with an image upload")
			}
			return nil, nil
		}
		return nil, httperr.BadRequest("upload too large: images are limited to 5MB")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			if required {
				return nil, httperr.BadRequest("missing file field: " + field)
			}
			return nil, nil
		}
		return nil, httperr.BadRequest("unexpected file field; use field name: " + field)
	}
	defer file.Close()

	if header.Size > MaxImageBytes {
		return nil, httperr.BadRequest("upload too large: images are limited to 5MB")
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		return nil, httperr.Wrap(http.StatusBadRequest, "could not read uploaded file", err)
	}
	if len(data) > MaxImageBytes {
		return nil, httperr.BadRequest("upload too large: images are limited to 5MB")
	}
	if len(data) == 0 {
		return nil, httperr.BadRequest("uploaded file is empty")
	}

	contentType := http.DetectContentType(data)
	if _, ok := allowedTypes[contentType]; !ok {
		return nil, httperr.BadRequest("unsupported file type: only jpeg, png, gif, and webp images are accepted")
	}

	return &Image{Data: data, Filename: header.Filename, ContentType: contentType}, nil
}
