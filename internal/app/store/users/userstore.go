// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/combinefoundation/portal/internal/app/system/normalize"
	"github.com/combinefoundation/portal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateEmail is returned when the email already exists for any
	// principal; the collection holds every role behind one unique index.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrNotPending is returned for an approve/reject of a volunteer who
	// already left the pending state.
	ErrNotPending = errors.New("volunteer is not pending")
	// ErrNotApproved is returned for a complete of a volunteer who is not
	// currently approved.
	ErrNotApproved = errors.New("volunteer is not approved")
	errBadRole     = errors.New(`role must be "volunteer"|"admin"|"superadmin"|"trustee"|"developer"`)
)

// Store manages the users collection.
type Store struct {
	c *mongo.Collection
}

// New creates a Store over the users collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// EnsureIndexes creates the unique email index and role lookups.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_users_email_unique").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}, {Key: "volunteer.status", Value: 1}},
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns
// mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByRole loads a user by ObjectID, requiring the given role.
func (s *Store) GetByRole(ctx context.Context, id primitive.ObjectID, role string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "role": role}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// AdminProfile re-fetches just the admin extension for the permission gate.
func (s *Store) AdminProfile(ctx context.Context, id primitive.ObjectID) (*models.AdminProfile, error) {
	u, err := s.GetByRole(ctx, id, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if u.Admin == nil {
		return &models.AdminProfile{}, nil
	}
	return u.Admin, nil
}

// Create inserts a user after normalizing and validating. The role
// extension must already be attached by the caller.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.Email = normalize.Email(u.Email)

	if !models.ValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	if u.Role == models.RoleVolunteer && u.Volunteer == nil {
		u.Volunteer = &models.VolunteerProfile{Status: models.VolunteerPending}
	}
	if u.Role == models.RoleAdmin && u.Admin == nil {
		u.Admin = &models.AdminProfile{Permissions: []string{}}
	}

	// New accounts start active; deactivation is an explicit admin action.
	// Pending volunteers are held back by the application-status check at
	// login, not by this flag.
	u.IsActive = true

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// ProfileUpdate holds the caller-editable profile fields.
type ProfileUpdate struct {
	FullName     string
	Phone        string
	Gender       string
	CNIC         string
	Age          int
	City         string
	Education    string
	Institute    string
	Skills       []string
	Expertise    []string
	Availability string
}

// UpdateProfile patches profile fields on any role. Email and role are
// not updatable through this path.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error {
	set := bson.M{
		"full_name":    normalize.Name(upd.FullName),
		"phone":        upd.Phone,
		"gender":       upd.Gender,
		"cnic":         upd.CNIC,
		"age":          upd.Age,
		"city":         upd.City,
		"education":    upd.Education,
		"institute":    upd.Institute,
		"skills":       upd.Skills,
		"expertise":    upd.Expertise,
		"availability": upd.Availability,
		"updated_at":   time.Now(),
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

// SetPhoto updates the stored photo URL and image-store ID.
func (s *Store) SetPhoto(ctx context.Context, id primitive.ObjectID, url, publicID string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"photo_url":  url,
		"photo_id":   publicID,
		"updated_at": time.Now(),
	}})
	return err
}

// SetPassword rewrites the credential hash. clearFirstLogin also clears
// the first-login flag, for the change-password and reset flows.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string, clearFirstLogin bool) error {
	set := bson.M{"password_hash": hash, "updated_at": time.Now()}
	if clearFirstLogin {
		set["is_first_login"] = false
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

// TouchLastLogin stamps a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login": time.Now()}})
	return err
}

// SetActive flips the account's active flag.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a user with the given role. Returns deleted count (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID, role string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "role": role})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Role            string
	VolunteerStatus string
	City            string
	Search          string // matches name or email prefix-insensitively
	Limit           int64
	Offset          int64
}

// List returns users matching the filter, newest first, plus the total
// match count.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]models.User, int64, error) {
	query := bson.M{}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	if filter.VolunteerStatus != "" {
		query["volunteer.status"] = filter.VolunteerStatus
	}
	if filter.City != "" {
		query["city"] = filter.City
	}
	if filter.Search != "" {
		query["$or"] = bson.A{
			bson.M{"full_name": bson.M{"$regex": filter.Search, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": filter.Search, "$options": "i"}},
		}
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

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// CountByRole returns the number of users holding a role, optionally
// narrowed to a volunteer status.
func (s *Store) CountByRole(ctx context.Context, role, volunteerStatus string) (int64, error) {
	query := bson.M{"role": role}
	if volunteerStatus != "" {
		query["volunteer.status"] = volunteerStatus
	}
	return s.c.CountDocuments(ctx, query)
}

// ApproveVolunteer transitions a pending volunteer to approved and installs
// the new credential hash in the same conditional update, so two concurrent
// approvals cannot both succeed. Returns ErrNotPending when the volunteer
// exists but already left pending, mongo.ErrNoDocuments when there is no
// such volunteer.
func (s *Store) ApproveVolunteer(ctx context.Context, id, approvedBy primitive.ObjectID, passwordHash string) error {
	now := time.Now()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "role": models.RoleVolunteer, "volunteer.status": models.VolunteerPending},
		bson.M{"$set": bson.M{
			"volunteer.status":      models.VolunteerApproved,
			"volunteer.approved_by": approvedBy,
			"volunteer.approved_at": now,
			"password_hash":         passwordHash,
			"is_first_login":        true,
			"is_active":             true,
			"updated_at":            now,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.volunteerTransitionErr(ctx, id, ErrNotPending)
	}
	return nil
}

// RejectVolunteer transitions a pending volunteer to rejected with the
// mandatory reason. Rejected is terminal.
func (s *Store) RejectVolunteer(ctx context.Context, id, rejectedBy primitive.ObjectID, reason string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "role": models.RoleVolunteer, "volunteer.status": models.VolunteerPending},
		bson.M{"$set": bson.M{
			"volunteer.status":           models.VolunteerRejected,
			"volunteer.rejection_reason": reason,
			"updated_at":                 time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.volunteerTransitionErr(ctx, id, ErrNotPending)
	}
	return nil
}

// CompleteVolunteer transitions an approved volunteer to completed; the
// auth layer blocks completed volunteers from signing in afterward.
func (s *Store) CompleteVolunteer(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "role": models.RoleVolunteer, "volunteer.status": models.VolunteerApproved},
		bson.M{"$set": bson.M{
			"volunteer.status": models.VolunteerCompleted,
			"updated_at":       time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.volunteerTransitionErr(ctx, id, ErrNotApproved)
	}
	return nil
}

// volunteerTransitionErr distinguishes "wrong state" from "no such
// volunteer" after a guarded update matched nothing.
func (s *Store) volunteerTransitionErr(ctx context.Context, id primitive.ObjectID, wrongState error) error {
	err := s.c.FindOne(ctx, bson.M{"_id": id, "role": models.RoleVolunteer}).Err()
	if err != nil {
		return err // mongo.ErrNoDocuments or a real error
	}
	return wrongState
}

// SetAdminPermissions replaces an admin's permission set and management
// flag.
func (s *Store) SetAdminPermissions(ctx context.Context, id primitive.ObjectID, perms []string, canManageAdmins bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "role": models.RoleAdmin},
		bson.M{"$set": bson.M{
			"admin.permissions":       perms,
			"admin.can_manage_admins": canManageAdmins,
			"updated_at":              time.Now(),
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

// SetTrusteeExpertise replaces a trustee's expertise list.
func (s *Store) SetTrusteeExpertise(ctx context.Context, id primitive.ObjectID, expertise []string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "role": models.RoleTrustee},
		bson.M{"$set": bson.M{
			"trustee.expertise": expertise,
			"updated_at":        time.Now(),
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
