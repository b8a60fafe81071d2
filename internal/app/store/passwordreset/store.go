// internal/app/store/passwordreset/store.go
package passwordreset

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/combinefoundation/portal/internal/app/system/clock"
	"github.com/combinefoundation/portal/internal/app/system/normalize"
	"github.com/combinefoundation/portal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OTPTTL is how long a reset code stays usable after it is issued.
const OTPTTL = 10 * time.Minute

// ErrCodeInvalid is returned when no live, unused code matches.
var ErrCodeInvalid = errors.New("invalid or expired code")

// Store manages the password_resets collection.
type Store struct {
	c   *mongo.Collection
	now clock.Func
}

// New creates a Store over the password_resets collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("password_resets"), now: clock.Real()}
}

// WithClock overrides the time source. Tests pin it to probe the expiry
// boundary.
func (s *Store) WithClock(now clock.Func) *Store {
	s.now = now
	return s
}

// EnsureIndexes creates the lookup index and a TTL index that reaps stale
// records roughly an hour past expiry.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "code", Value: 1}},
			Options: options.Index().SetName("idx_resets_email_code"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_resets_ttl").SetExpireAfterSeconds(3600),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Issue creates a fresh OTP for the email, invalidating any prior codes.
// Only one code per email is live at a time.
func (s *Store) Issue(ctx context.Context, email string) (*models.PasswordReset, error) {
	email = normalize.Email(email)
	if _, err := s.c.DeleteMany(ctx, bson.M{"email": email}); err != nil {
		return nil, err
	}
	now := s.now()
	pr := models.PasswordReset{
		ID:        primitive.NewObjectID(),
		Email:     email,
		Code:      randomCode(),
		ExpiresAt: now.Add(OTPTTL),
		Used:      false,
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// Verify checks that a live, unused code exists for the email without
// consuming it. The code stays valid for the follow-up reset request.
func (s *Store) Verify(ctx context.Context, email, code string) error {
	err := s.c.FindOne(ctx, s.liveFilter(email, code)).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrCodeInvalid
	}
	return err
}

// Consume marks the code used. The flag, not deletion, enforces single
// use: a replay of the same code fails the liveFilter match.
func (s *Store) Consume(ctx context.Context, email, code string) error {
	res, err := s.c.UpdateOne(ctx, s.liveFilter(email, code), bson.M{"$set": bson.M{"used": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrCodeInvalid
	}
	return nil
}

func (s *Store) liveFilter(email, code string) bson.M {
	return bson.M{
		"email":      normalize.Email(email),
		"code":       code,
		"used":       false,
		"expires_at": bson.M{"$gt": s.now()},
	}
}

// randomCode produces a 6 digit numeric OTP, zero padded.
func randomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return fmt.Sprintf("%06d", n.Int64())
}
