// internal/app/store/tasks/store.go
package tasks

import (
	"context"
	"time"

	"github.com/combinefoundation/portal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the tasks collection. Every operation is scoped to the
// owning user; there is no cross-user task access.
type Store struct {
	c *mongo.Collection
}

// New creates a Store over the tasks collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

// EnsureIndexes creates the owner index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "due_date", Value: 1}}},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a task.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	t.ID = primitive.NewObjectID()
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// GetByID loads a task owned by the given user.
func (s *Store) GetByID(ctx context.Context, id, owner primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "created_by": owner}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Update holds the editable task fields.
type Update struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    string
	Completed   bool
}

// Update patches a task owned by the given user.
func (s *Store) Update(ctx context.Context, id, owner primitive.ObjectID, upd Update) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "created_by": owner},
		bson.M{"$set": bson.M{
			"title":       upd.Title,
			"description": upd.Description,
			"due_date":    upd.DueDate,
			"priority":    upd.Priority,
			"completed":   upd.Completed,
			"updated_at":  time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a task owned by the given user. Returns deleted count.
func (s *Store) Delete(ctx context.Context, id, owner primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "created_by": owner})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// List returns the user's tasks, due date ascending so overdue work sorts
// first.
func (s *Store) List(ctx context.Context, owner primitive.ObjectID, includeCompleted bool) ([]models.Task, error) {
	query := bson.M{"created_by": owner}
	if !includeCompleted {
		query["completed"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}, {Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Task
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
