// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a principal can hold. Role is set at creation and no endpoint
// changes it afterward.
const (
	RoleVolunteer  = "volunteer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
	RoleTrustee    = "trustee"
	RoleDeveloper  = "developer"
)

// ValidRole reports whether role is one of the five known role tags.
func ValidRole(role string) bool {
	switch role {
	case RoleVolunteer, RoleAdmin, RoleSuperAdmin, RoleTrustee, RoleDeveloper:
		return true
	}
	return false
}

// Volunteer lifecycle statuses. Transitions are pending→approved,
// pending→rejected, approved→completed; rejected and completed are terminal.
const (
	VolunteerPending   = "pending"
	VolunteerApproved  = "approved"
	VolunteerRejected  = "rejected"
	VolunteerCompleted = "completed"
)

// Grantable admin permissions. Lecture/category routes are gated by
// "manage_lectures", which is not part of this set; only superadmin and
// developer accounts can currently manage lectures.
const (
	PermManageVolunteers = "manage_volunteers"
	PermManageAdmins     = "manage_admins"
	PermManageCourses    = "manage_courses"
	PermManagePosts      = "manage_posts"
	PermManageTasks      = "manage_tasks"
	PermManageIDCards    = "manage_idcards"
	PermViewAnalytics    = "view_analytics"
	PermViewReports      = "view_reports"
)

// GrantablePermissions is the closed set of permissions an admin account
// may carry.
var GrantablePermissions = []string{
	PermManageVolunteers,
	PermManageAdmins,
	PermManageCourses,
	PermManagePosts,
	PermManageTasks,
	PermManageIDCards,
	PermViewAnalytics,
	PermViewReports,
}

// ValidPermission reports whether perm is grantable to an admin.
func ValidPermission(perm string) bool {
	for _, p := range GrantablePermissions {
		if p == perm {
			return true
		}
	}
	return false
}

// VolunteerProfile carries the volunteer-specific extension of a User.
type VolunteerProfile struct {
	Status          string              `bson:"status" json:"status"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	ApprovedBy      *primitive.ObjectID `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time          `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
}

// AdminProfile carries the admin-specific extension of a User.
type AdminProfile struct {
	Permissions     []string `bson:"permissions" json:"permissions"`
	CanManageAdmins bool     `bson:"can_manage_admins" json:"can_manage_admins"`
}

// HasPermission reports whether the admin holds the named permission.
func (p AdminProfile) HasPermission(perm string) bool {
	for _, have := range p.Permissions {
		if have == perm {
			return true
		}
	}
	return false
}

// TrusteeProfile carries the trustee-specific extension of a User.
type TrusteeProfile struct {
	Expertise []string `bson:"expertise,omitempty" json:"expertise,omitempty"`
}

// User is the single principal record shared by every role. The role tag
// selects which extension profile applies: exactly one of Volunteer, Admin,
// or Trustee is populated for those roles, and none for superadmin or
// developer (their capabilities are fixed by role).
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	Email        string             `bson:"email" json:"email"` // stored lowercase; unique across all roles
	PasswordHash string             `bson:"password_hash" json:"-"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role         string             `bson:"role" json:"role"`

	// Profile fields shared by all roles.
	Gender       string   `bson:"gender,omitempty" json:"gender,omitempty"`
	CNIC         string   `bson:"cnic,omitempty" json:"cnic,omitempty"`
	Age          int      `bson:"age,omitempty" json:"age,omitempty"`
	City         string   `bson:"city,omitempty" json:"city,omitempty"`
	Education    string   `bson:"education,omitempty" json:"education,omitempty"`
	Institute    string   `bson:"institute,omitempty" json:"institute,omitempty"`
	Skills       []string `bson:"skills,omitempty" json:"skills,omitempty"`
	Expertise    []string `bson:"expertise,omitempty" json:"expertise,omitempty"`
	Availability string   `bson:"availability,omitempty" json:"availability,omitempty"`
	PhotoURL     string   `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	PhotoID      string   `bson:"photo_id,omitempty" json:"-"` // image-store public ID for cleanup

	// Role extensions (discriminated by Role).
	Volunteer *VolunteerProfile `bson:"volunteer,omitempty" json:"volunteer,omitempty"`
	Admin     *AdminProfile     `bson:"admin,omitempty" json:"admin,omitempty"`
	Trustee   *TrusteeProfile   `bson:"trustee,omitempty" json:"trustee,omitempty"`

	IsActive     bool       `bson:"is_active" json:"is_active"`
	IsFirstLogin bool       `bson:"is_first_login" json:"is_first_login"`
	LastLogin    *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// CanLogin reports whether the account may authenticate. Completed
// volunteers keep their record but lose access.
func (u *User) CanLogin() bool {
	if !u.IsActive {
		return false
	}
	if u.Role == RoleVolunteer && u.Volunteer != nil && u.Volunteer.Status == VolunteerCompleted {
		return false
	}
	return true
}

// Redacted returns the view of a user that is safe to hand to clients.
// The struct tags already hide the password hash in JSON; this exists so
// callers have one place that strips server-only fields regardless of how
// the value is serialized later.
func (u User) Redacted() User {
	u.PasswordHash = ""
	u.PhotoID = ""
	return u
}
