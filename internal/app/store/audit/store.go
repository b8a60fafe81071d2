// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Action tags form a closed enumeration: adding a new privileged action
// means adding a constant here, not inventing strings at call sites.
const (
	ActionLogin               = "login"
	ActionLogout              = "logout"
	ActionPasswordChanged     = "password_changed"
	ActionPasswordReset       = "password_reset"
	ActionVolunteerApplied    = "volunteer_applied"
	ActionVolunteerCreated    = "volunteer_created"
	ActionVolunteerUpdated    = "volunteer_updated"
	ActionVolunteerDeleted    = "volunteer_deleted"
	ActionVolunteerApproved   = "volunteer_approved"
	ActionVolunteerRejected   = "volunteer_rejected"
	ActionVolunteerCompleted  = "volunteer_completed"
	ActionVolunteerInvited    = "volunteer_invited"
	ActionAdminCreated        = "admin_created"
	ActionAdminUpdated        = "admin_updated"
	ActionAdminDeleted        = "admin_deleted"
	ActionPermissionsChanged  = "permissions_changed"
	ActionTrusteeCreated      = "trustee_created"
	ActionTrusteeUpdated      = "trustee_updated"
	ActionTrusteeDeleted      = "trustee_deleted"
	ActionCourseCreated       = "course_created"
	ActionCourseUpdated       = "course_updated"
	ActionCourseDeleted       = "course_deleted"
	ActionPostCreated         = "post_created"
	ActionPostUpdated         = "post_updated"
	ActionPostDeleted         = "post_deleted"
	ActionLectureCreated      = "lecture_created"
	ActionLectureUpdated      = "lecture_updated"
	ActionLectureDeleted      = "lecture_deleted"
	ActionCategoryCreated     = "category_created"
	ActionCategoryUpdated     = "category_updated"
	ActionCategoryDeleted     = "category_deleted"
	ActionIDCardGenerated     = "idcard_generated"
	ActionIDCardDownloaded    = "idcard_downloaded"
	ActionLogsPurged          = "logs_purged"
)

// Entry is one immutable audit record. Entries are never updated; the only
// deletion path is the bulk age-based purge.
type Entry struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Action      string              `bson:"action" json:"action"`
	PerformedBy primitive.ObjectID  `bson:"performed_by" json:"performed_by"`
	TargetUser  *primitive.ObjectID `bson:"target_user,omitempty" json:"target_user,omitempty"`
	Resource    string              `bson:"resource,omitempty" json:"resource,omitempty"`
	Details     map[string]string   `bson:"details,omitempty" json:"details,omitempty"`
	IP          string              `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent   string              `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	Timestamp   time.Time           `bson:"timestamp" json:"timestamp"`
}

// QueryFilter narrows List results.
type QueryFilter struct {
	Action      string
	PerformedBy *primitive.ObjectID
	TargetUser  *primitive.ObjectID
	StartTime   *time.Time
	EndTime     *time.Time
	Limit       int64
	Offset      int64
}

// Store manages audit entries.
type Store struct {
	c *mongo.Collection
}

// New creates a Store over the audit_logs collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_logs")}
}

// EnsureIndexes creates indexes for the common query shapes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "performed_by", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "target_user", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "action", Value: 1}, {Key: "timestamp", Value: -1}}},
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

// List returns entries matching the filter, most recent first, plus the
// total match count.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]Entry, int64, error) {
	query := bson.M{}
	if filter.Action != "" {
		query["action"] = filter.Action
	}
	if filter.PerformedBy != nil {
		query["performed_by"] = *filter.PerformedBy
	}
	if filter.TargetUser != nil {
		query["target_user"] = *filter.TargetUser
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

// CountByUser returns how many entries reference a user as performer or
// target. Used by the trustee reports.
func (s *Store) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"performed_by": userID},
		bson.M{"target_user": userID},
	}})
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
