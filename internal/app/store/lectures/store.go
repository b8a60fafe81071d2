// internal/app/store/lectures/store.go
package lectures

import (
	"context"
	"time"

	"github.com/combinefoundation/portal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the lectures collection.
type Store struct {
	c *mongo.Collection
}

// New creates a Store over the lectures collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("lectures")}
}

// EnsureIndexes creates listing and category indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "is_public", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a lecture.
func (s *Store) Create(ctx context.Context, l models.Lecture) (models.Lecture, error) {
	l.ID = primitive.NewObjectID()
	now := time.Now()
	l.CreatedAt = now
	l.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return models.Lecture{}, err
	}
	return l, nil
}

// GetByID loads a lecture without touching the view counter.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Lecture, error) {
	var l models.Lecture
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetAndCountView loads a public lecture and increments its view counter
// in one atomic find-and-modify, returning the post-increment document.
// The visibility filter keeps 404'd reads of private lectures from
// inflating the counter; a private or missing lecture is ErrNoDocuments
// either way.
func (s *Store) GetAndCountView(ctx context.Context, id primitive.ObjectID) (*models.Lecture, error) {
	var l models.Lecture
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_public": true},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&l)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Update holds the editable lecture fields.
type Update struct {
	Title    string
	Subtitle string
	Body     string
	WatchURL string
	Category string
	Tags     []string
	IsPublic bool
	ImageURL string // empty means keep the existing image
	ImageID  string
}

// Update patches a lecture.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	set := bson.M{
		"title":      upd.Title,
		"subtitle":   upd.Subtitle,
		"body":       upd.Body,
		"watch_url":  upd.WatchURL,
		"category":   upd.Category,
		"tags":       upd.Tags,
		"is_public":  upd.IsPublic,
		"updated_at": time.Now(),
	}
	if upd.ImageURL != "" {
		set["image_url"] = upd.ImageURL
		set["image_id"] = upd.ImageID
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a lecture. Returns deleted count (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	PublicOnly bool
	Category   string
	Tag        string
	Limit      int64
	Offset     int64
}

// List returns lectures newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]models.Lecture, int64, error) {
	query := bson.M{}
	if filter.PublicOnly {
		query["is_public"] = true
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Tag != "" {
		query["tags"] = filter.Tag
	}

	total, err := s.c.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.Lecture
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Count returns the total number of lectures.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
