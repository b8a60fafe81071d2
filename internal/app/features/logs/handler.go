// internal/app/features/logs/handler.go
package logs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/combinefoundation/portal/internal/app/features/shared"
	"github.com/combinefoundation/portal/internal/app/store/audit"
	"github.com/combinefoundation/portal/internal/app/store/errorlog"
	"github.com/combinefoundation/portal/internal/app/system/auditlog"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for the audit and error log views.
type Handler struct {
	Log      *zap.Logger
	Resp     *respond.Writer
	AuditLog *auditlog.Logger
	Audits   *audit.Store
	Errors   *errorlog.Store
}

// HandleListAudit returns audit entries, newest first, filterable by
// action, performer, target, and time range.
func (h *Handler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := shared.Paging(r)
	q := r.URL.Query()

	filter := audit.QueryFilter{
		Action: q.Get("action"),
		Limit:  limit,
		Offset: offset,
	}
	var err error
	if filter.PerformedBy, err = queryObjectID(r, "performed_by"); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if filter.TargetUser, err = queryObjectID(r, "target_user"); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if filter.StartTime, err = queryTime(r, "from"); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if filter.EndTime, err = queryTime(r, "to"); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	entries, total, err := h.Audits.List(r.Context(), filter)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.List(w, entries, total, shared.PaginationFor(page, limit, total))
}

// HandleListErrors returns error log entries, newest first.
func (h *Handler) HandleListErrors(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := shared.Paging(r)
	q := r.URL.Query()

	filter := errorlog.QueryFilter{
		Level:  q.Get("level"),
		Source: q.Get("source"),
		Limit:  limit,
		Offset: offset,
	}
	var err error
	if filter.StartTime, err = queryTime(r, "from"); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if filter.EndTime, err = queryTime(r, "to"); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	entries, total, err := h.Errors.List(r.Context(), filter)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.List(w, entries, total, shared.PaginationFor(page, limit, total))
}

type purgeRequest struct {
	OlderThanDays int `json:"older_than_days" validate:"required,gte=7"`
}

// HandlePurge deletes audit and error entries older than the given age.
// A minimum of seven days guards against emptying the logs by accident.
func (h *Handler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	cutoff := time.Now().AddDate(0, 0, -req.OlderThanDays)

	audits, err := h.Audits.PurgeOlderThan(r.Context(), cutoff)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	errs, err := h.Errors.PurgeOlderThan(r.Context(), cutoff)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.ResourceAction(r.Context(), r, audit.ActionLogsPurged, actor, "logs",
		map[string]string{
			"older_than_days": strconv.Itoa(req.OlderThanDays),
			"audit_deleted":   strconv.FormatInt(audits, 10),
			"errors_deleted":  strconv.FormatInt(errs, 10),
		})

	respond.OKMessage(w, "logs purged", map[string]int64{
		"audit_deleted":  audits,
		"errors_deleted": errs,
	})
}

func queryObjectID(r *http.Request, name string) (*primitive.ObjectID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, httperr.BadRequest("invalid " + name + " filter")
	}
	return &id, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, httperr.BadRequest(name + " must be RFC3339, e.g. 2026-01-02T15:04:05Z")
	}
	return &t, nil
}
