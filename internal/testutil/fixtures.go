package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/combinefoundation/portal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoEnv names the environment variable holding the test MongoDB URI.
// Tests that need a live database skip when it is unset, so the rest of
// the suite runs anywhere.
const mongoEnv = "PORTAL_TEST_MONGO_URI"

// SetupTestDB connects to the test MongoDB instance and returns a database
// unique to this test. The database is dropped during cleanup.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv(mongoEnv)
	if uri == "" {
		t.Skipf("set %s to run tests that need MongoDB", mongoEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("mongo connect: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("mongo ping: %v", err)
	}

	db := client.Database(fmt.Sprintf("portal_test_%s", primitive.NewObjectID().Hex()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given role. Role profiles are filled
// in with sensible defaults for volunteers and admins.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:        primitive.NewObjectID(),
		FullName:  fullName,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch role {
	case models.RoleVolunteer:
		u.Volunteer = &models.VolunteerProfile{Status: models.VolunteerPending}
	case models.RoleAdmin:
		u.Admin = &models.AdminProfile{Permissions: []string{}}
	case models.RoleTrustee:
		u.Trustee = &models.TrusteeProfile{}
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateApprovedVolunteer inserts a volunteer already in the approved state.
func (f *Fixtures) CreateApprovedVolunteer(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	u := f.CreateUser(ctx, fullName, email, models.RoleVolunteer)
	now := time.Now().UTC()
	approver := primitive.NewObjectID()
	u.Volunteer.Status = models.VolunteerApproved
	u.Volunteer.ApprovedBy = &approver
	u.Volunteer.ApprovedAt = &now

	_, err := f.db.Collection("users").UpdateOne(ctx,
		map[string]interface{}{"_id": u.ID},
		map[string]interface{}{"$set": map[string]interface{}{"volunteer": u.Volunteer}},
	)
	if err != nil {
		f.t.Fatalf("failed to approve test volunteer: %v", err)
	}
	return u
}
