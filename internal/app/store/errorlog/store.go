// internal/app/store/errorlog/store.go
package errorlog

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Levels for stored entries.
const (
	LevelError = "error"
	LevelWarn  = "warn"
	LevelInfo  = "info"
	LevelDebug = "debug"
)

// Entry is one recorded failure or notable event.
type Entry struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Level      string              `bson:"level" json:"level"`
	Message    string              `bson:"message" json:"message"`
	Stack      string              `bson:"stack,omitempty" json:"stack,omitempty"`
	Source     string              `bson:"source,omitempty" json:"source,omitempty"`
	Endpoint   string              `bson:"endpoint,omitempty" json:"endpoint,omitempty"`
	StatusCode int                 `bson:"status_code,omitempty" json:"status_code,omitempty"`
	UserID     *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Metadata   map[string]string   `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Timestamp  time.Time           `bson:"timestamp" json:"timestamp"`
}

// QueryFilter narrows List results.
type QueryFilter struct {
	Level     string
	Source    string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

// Store manages error log entries.
type Store struct {
	c *mongo.Collection
}

// New creates a Store over the error_logs collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("error_logs")}
}

// EnsureIndexes creates indexes for time-ordered and filtered queries.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "level", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "source", Value: 1}, {Key: "timestamp", Value: -1}}},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Insert records an entry, stamping ID and timestamp if unset.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// List returns entries matching the filter, most recent first, and the
// total match count for pagination.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]Entry, int64, error) {
	query := bson.M{}
	if filter.Level != "" {
		query["level"] = filter.Level
	}
	if filter.Source != "" {
		query["source"] = filter.Source
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		rng := bson.M{}
		if filter.StartTime != nil {
			rng["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			rng["$lte"] = *filter.EndTime
		}
		query["timestamp"] = rng
	}

	total, err := s.c.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var entries []Entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// PurgeOlderThan bulk-deletes entries older than the cutoff and returns the
// number removed.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
