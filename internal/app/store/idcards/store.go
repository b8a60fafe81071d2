// internal/app/store/idcards/store.go
package idcards

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/combinefoundation/portal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxIDAttempts bounds the retry loop when a generated card number collides.
// Uniqueness is enforced by the unique index, not a pre-check, so a
// concurrent issuance that wins the race simply shows up as a duplicate-key
// error and triggers the next attempt.
const maxIDAttempts = 8

// ErrIDExhausted is returned when repeated card-number candidates collided.
// With a 5-6 digit space this only happens when the space is nearly full.
var ErrIDExhausted = errors.New("could not allocate a unique card number")

// Store manages the id_cards collection.
type Store struct {
	c *mongo.Collection
}

// New creates a Store over the id_cards collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("id_cards")}
}

// EnsureIndexes creates the unique card-number and per-user indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id_number", Value: 1}},
			Options: options.Index().SetName("idx_idcards_number_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_idcards_user_unique").SetUnique(true),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// GetByUser loads a user's card. Returns mongo.ErrNoDocuments when the
// card has not been issued yet.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.IDCard, error) {
	var card models.IDCard
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&card); err != nil {
		return nil, err
	}
	return &card, nil
}

// Create issues a new card for a user, allocating a fresh unique 5-6 digit
// number. A duplicate on id_number retries with a new candidate; a
// duplicate on user_id means another request created the card first, and
// the existing card is returned instead.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, qrPayload string, validity time.Duration) (*models.IDCard, error) {
	now := time.Now()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		card := models.IDCard{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			IDNumber:  randomCardNumber(),
			QRPayload: qrPayload,
			ValidFrom: now,
			ValidThru: now.Add(validity),
			IsValid:   true,
			IssuedAt:  now,
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, err := s.c.InsertOne(ctx, card)
		if err == nil {
			return &card, nil
		}
		if !wafflemongo.IsDup(err) {
			return nil, err
		}
		// The user_id dup means we lost a concurrent first-issue race;
		// the id_number dup means the candidate was taken.
		if existing, getErr := s.GetByUser(ctx, userID); getErr == nil {
			return existing, nil
		}
	}
	return nil, ErrIDExhausted
}

// Resync patches a card whose QR payload or validity window drifted from
// current policy. Only the drifted fields are written.
func (s *Store) Resync(ctx context.Context, id primitive.ObjectID, qrPayload string, validThru time.Time) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"qr_payload": qrPayload,
		"valid_thru": validThru,
		"is_valid":   true,
		"updated_at": time.Now(),
	}})
	return err
}

// Regenerate re-issues a card: new validity window anchored at now, fresh
// QR payload, bumped issue timestamp. The card number never changes.
func (s *Store) Regenerate(ctx context.Context, id primitive.ObjectID, qrPayload string, validity time.Duration) (*models.IDCard, error) {
	now := time.Now()
	var card models.IDCard
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"qr_payload": qrPayload,
			"valid_from": now,
			"valid_thru": now.Add(validity),
			"is_valid":   true,
			"issued_at":  now,
			"updated_at": now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&card)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// CountDownload bumps the download counter and stamps the download time.
func (s *Store) CountDownload(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"downloads": 1},
		"$set": bson.M{"downloaded_at": now, "updated_at": now},
	})
	return err
}

// Delete removes a user's card. Used when the principal is deleted.
func (s *Store) Delete(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}

// randomCardNumber picks a uniform number in [10000, 999999], covering the
// 5-6 digit space.
func randomCardNumber() string {
	const lo, hi = 10000, 999999
	n, err := rand.Int(rand.Reader, big.NewInt(hi-lo+1))
	if err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return fmt.Sprintf("%d", lo+n.Int64())
}
