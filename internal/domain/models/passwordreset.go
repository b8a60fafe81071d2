// internal/domain/models/passwordreset.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PasswordReset is a transient OTP record for the forgot-password flow.
// Expired records are removed by a TTL index; consumed records are kept
// with Used=true so the trail survives until the TTL fires.
type PasswordReset struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Email     string             `bson:"email" json:"-"`
	Code      string             `bson:"code" json:"-"` // 6-digit numeric
	ExpiresAt time.Time          `bson:"expires_at" json:"-"`
	Used      bool               `bson:"used" json:"-"`
	CreatedAt time.Time          `bson:"created_at" json:"-"`
}
