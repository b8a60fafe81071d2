package uploads_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/uploads"
)

// pngBytes is a minimal valid PNG header plus padding, enough for content
// sniffing to classify it as image/png.
func pngBytes() []byte {
	magic := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	return append(magic, bytes.Repeat([]byte{0}, 64)...)
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	r := httptest.NewRequest("POST", "/upload", &body)
	r.Header.Set("Content-Type", w.FormDataContentType())
	return r
}

func TestFromRequest_ValidPNG(t *testing.T) {
	r := multipartRequest(t, "photo", "me.png", pngBytes())
	img, err := uploads.FromRequest(r, "photo", true)
	if err != nil {
		t.Fatalf("FromRequest failed: %v", err)
	}
	if img.ContentType != "image/png" {
		t.Errorf("content type = %q, want image/png", img.ContentType)
	}
	if img.Filename != "me.png" {
		t.Errorf("filename = %q, want me.png", img.Filename)
	}
	if len(img.Data) == 0 {
		t.Error("image data is empty")
	}
}

func TestFromRequest_RejectsNonImage(t *testing.T) {
	r := multipartRequest(t, "photo", "notes.txt", []byte("plain text, not an image"))
	_, err := uploads.FromRequest(r, "photo", true)
	if err == nil {
		t.Fatal("expected a rejection for a text upload")
	}
	if e := httperr.From(err); e == nil || e.Status != http.StatusBadRequest {
		t.Errorf("expected a 400 httperr, got %v", err)
	}
}

func TestFromRequest_MissingField(t *testing.T) {
	t.Run("required", func(t *testing.T) {
		r := multipartRequest(t, "other", "me.png", pngBytes())
		if _, err := uploads.FromRequest(r, "photo", true); err == nil {
			t.Error("expected an error for a missing required field")
		}
	})

	t.Run("optional", func(t *testing.T) {
		r := multipartRequest(t, "other", "me.png", pngBytes())
		img, err := uploads.FromRequest(r, "photo", false)
		if err != nil {
			t.Errorf("optional missing field should not error: %v", err)
		}
		if img != nil {
			t.Error("expected nil image for an absent optional field")
		}
	})
}

func TestFromRequest_NotMultipart(t *testing.T) {
	r := httptest.NewRequest("POST", "/upload", bytes.NewBufferString(`{"photo":"x"}`))
	r.Header.Set("Content-Type", "application/json")

	if _, err := uploads.FromRequest(r, "photo", true); err == nil {
		t.Error("required upload on a JSON body should error")
	}

	r = httptest.NewRequest("POST", "/upload", bytes.NewBufferString(`{}`))
	r.Header.Set("Content-Type", "application/json")
	img, err := uploads.FromRequest(r, "photo", false)
	if err != nil || img != nil {
		t.Errorf("optional upload on a JSON body: img=%v err=%v, want nil, nil", img, err)
	}
}

func TestFromRequest_EmptyFile(t *testing.T) {
	r := multipartRequest(t, "photo", "empty.png", nil)
	if _, err := uploads.FromRequest(r, "photo", true); err == nil {
		t.Error("expected a rejection for an empty file")
	}
}
