// internal/app/features/reports/handler.go
package reports

import (
	"net/http"

	"github.com/combinefoundation/portal/internal/app/features/shared"
	"github.com/combinefoundation/portal/internal/app/store/audit"
	"github.com/combinefoundation/portal/internal/app/store/courses"
	"github.com/combinefoundation/portal/internal/app/store/lectures"
	"github.com/combinefoundation/portal/internal/app/store/posts"
	userstore "github.com/combinefoundation/portal/internal/app/store/users"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/domain/models"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for the trustee-facing reports.
type Handler struct {
	Log      *zap.Logger
	Resp     *respond.Writer
	Users    *userstore.Store
	Courses  *courses.Store
	Posts    *posts.Store
	Lectures *lectures.Store
	Audits   *audit.Store
}

// VolunteerBreakdown is the per-status volunteer census.
type VolunteerBreakdown struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Approved  int64 `json:"approved"`
	Rejected  int64 `json:"rejected"`
	Completed int64 `json:"completed"`
}

// Overview is the headline numbers report.
type Overview struct {
	Volunteers VolunteerBreakdown `json:"volunteers"`
	Admins     int64              `json:"admins"`
	Trustees   int64              `json:"trustees"`
	Courses    int64              `json:"courses"`
	Posts      int64              `json:"posts"`
	Lectures   int64              `json:"lectures"`
}

// HandleOverview returns headline counts across the portal.
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		out Overview
		err error
	)

	if out.Volunteers, err = h.volunteerBreakdown(r); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if out.Admins, err = h.Users.CountByRole(ctx, models.RoleAdmin, ""); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if out.Trustees, err = h.Users.CountByRole(ctx, models.RoleTrustee, ""); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if out.Courses, err = h.Courses.Count(ctx); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if out.Posts, err = h.Posts.Count(ctx); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if out.Lectures, err = h.Lectures.Count(ctx); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	respond.OK(w, out)
}

// HandleVolunteers returns the volunteer census by status.
func (h *Handler) HandleVolunteers(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.volunteerBreakdown(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OK(w, breakdown)
}

// UserActivity summarizes one principal's audit footprint.
type UserActivity struct {
	UserID     string `json:"user_id"`
	AuditCount int64  `json:"audit_count"`
}

// HandleUserActivity returns the audit-entry count touching one user,
// as performer or target.
func (h *Handler) HandleUserActivity(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	n, err := h.Audits.CountByUser(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OK(w, UserActivity{UserID: id.Hex(), AuditCount: n})
}

func (h *Handler) volunteerBreakdown(r *http.Request) (VolunteerBreakdown, error) {
	ctx := r.Context()
	var b VolunteerBreakdown
	var err error
	for status, dst := range map[string]*int64{
		"":                        &b.Total,
		models.VolunteerPending:   &b.Pending,
		models.VolunteerApproved:  &b.Approved,
		models.VolunteerRejected:  &b.Rejected,
		models.VolunteerCompleted: &b.Completed,
	} {
		if *dst, err = h.Users.CountByRole(ctx, models.RoleVolunteer, status); err != nil {
			return b, err
		}
	}
	return b, nil
}
