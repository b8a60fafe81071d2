package idcard

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/combinefoundation/portal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 1x1 transparent PNG.
var tinyPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

// pageCount counts page objects in the rendered document.
func pageCount(out []byte) int {
	return bytes.Count(out, []byte("/Type /Page")) - bytes.Count(out, []byte("/Type /Pages"))
}

func TestRenderPDF(t *testing.T) {
	now := time.Now()
	u := &models.User{
		ID:       primitive.NewObjectID(),
		FullName: "Ayesha Khan",
		Role:     models.RoleVolunteer,
	}
	card := &models.IDCard{
		UserID:    u.ID,
		IDNumber:  "48213",
		QRPayload: "Combine Foundation|48213|" + u.ID.Hex() + "|volunteer",
		ValidFrom: now,
		ValidThru: now.Add(models.VolunteerCardValidity),
	}

	out, err := renderPDF(u, card, "Combine Foundation")
	if err != nil {
		t.Fatalf("renderPDF failed: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("empty PDF output")
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF: %q", out[:8])
	}
	if got := pageCount(out); got != 2 {
		t.Errorf("page count = %d, want 2 (front and back)", got)
	}
}

func TestRenderPDF_WithPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(tinyPNG)
	}))
	defer srv.Close()

	now := time.Now()
	u := &models.User{
		ID:       primitive.NewObjectID(),
		FullName: "Ayesha Khan",
		Role:     models.RoleVolunteer,
		PhotoURL: srv.URL + "/photo.png",
		Phone:    "+92 300 1234567",
		CNIC:     "42101-1234567-1",
	}
	u.CreatedAt = now
	card := &models.IDCard{
		UserID:    u.ID,
		IDNumber:  "48213",
		QRPayload: "Combine Foundation|48213|" + u.ID.Hex() + "|volunteer",
		ValidFrom: now,
		ValidThru: now.Add(models.VolunteerCardValidity),
	}

	out, err := renderPDF(u, card, "Combine Foundation")
	if err != nil {
		t.Fatalf("renderPDF failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("photo render should still produce a PDF")
	}
	if got := pageCount(out); got != 2 {
		t.Errorf("page count = %d, want 2", got)
	}
}

func TestRenderPDF_PhotoFetchFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	now := time.Now()
	u := &models.User{
		ID:       primitive.NewObjectID(),
		FullName: "Bilal Ahmed",
		Role:     models.RoleAdmin,
		PhotoURL: srv.URL + "/photo.png",
	}
	card := &models.IDCard{
		UserID:    u.ID,
		IDNumber:  "91230",
		QRPayload: "Combine Foundation|91230|" + u.ID.Hex() + "|admin",
		ValidFrom: now,
		ValidThru: now.Add(models.DefaultCardValidity),
	}

	// A dead photo URL degrades to the placeholder box, never an error.
	out, err := renderPDF(u, card, "Combine Foundation")
	if err != nil {
		t.Fatalf("renderPDF failed: %v", err)
	}
	if got := pageCount(out); got != 2 {
		t.Errorf("page count = %d, want 2", got)
	}
}

func TestRenderPDF_EmptyQRPayload(t *testing.T) {
	// qrcode.Encode rejects an empty payload; the card should still render
	// with the placeholder box.
	u := &models.User{ID: primitive.NewObjectID(), FullName: "Bilal Ahmed", Role: models.RoleAdmin}
	card := &models.IDCard{
		UserID:    u.ID,
		IDNumber:  "91230",
		ValidFrom: time.Now(),
		ValidThru: time.Now().Add(models.DefaultCardValidity),
	}

	out, err := renderPDF(u, card, "Combine Foundation")
	if err != nil {
		t.Fatalf("renderPDF failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("placeholder render should still produce a PDF")
	}
}
