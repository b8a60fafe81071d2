// internal/domain/models/idcard.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Card validity durations by role. Volunteers get the shorter window.
const (
	VolunteerCardValidity = 6 * 30 * 24 * time.Hour
	DefaultCardValidity   = 12 * 30 * 24 * time.Hour
)

// CardValidityFor returns the validity window length for a role.
func CardValidityFor(role string) time.Duration {
	if role == RoleVolunteer {
		return VolunteerCardValidity
	}
	return DefaultCardValidity
}

// IDCard is the one-to-one issued card for a principal. IDNumber is stable
// for the life of the principal; the validity window and QR payload are
// recomputed on regenerate and silently resynced on read if they drift.
type IDCard struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	IDNumber     string             `bson:"id_number" json:"id_number"` // 5-6 digit, globally unique
	QRPayload    string             `bson:"qr_payload" json:"qr_payload"`
	ValidFrom    time.Time          `bson:"valid_from" json:"valid_from"`
	ValidThru    time.Time          `bson:"valid_thru" json:"valid_thru"`
	IsValid      bool               `bson:"is_valid" json:"is_valid"`
	IssuedAt     time.Time          `bson:"issued_at" json:"issued_at"`
	Downloads    int64              `bson:"downloads" json:"downloads"`
	DownloadedAt *time.Time         `bson:"downloaded_at,omitempty" json:"downloaded_at,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}
