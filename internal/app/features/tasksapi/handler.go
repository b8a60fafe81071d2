// internal/app/features/tasksapi/handler.go
package tasksapi

import (
	"net/http"
	"time"

	"github.com/combinefoundation/portal/internal/app/features/shared"
	"github.com/combinefoundation/portal/internal/app/store/tasks"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/app/system/sanitize"
	"github.com/combinefoundation/portal/internal/domain/models"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for personal tasks. Every query is
// owner-scoped; no role sees another user's tasks.
type Handler struct {
	Log      *zap.Logger
	Resp     *respond.Writer
	Tasks    *tasks.Store
}

type taskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"omitempty,max=2000"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	Completed   bool       `json:"completed"`
}

// HandleCreate creates a task for the signed-in user.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	_, _, owner, _ := authz.UserCtx(r)

	created, err := h.Tasks.Create(r.Context(), models.Task{
		Title:       sanitize.Text(req.Title),
		Description: sanitize.Text(req.Description),
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Completed:   req.Completed,
		CreatedBy:   owner,
	})
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.Created(w, created)
}

// HandleList returns the signed-in user's tasks. Completed tasks are
// hidden unless include_completed=true.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	_, _, owner, _ := authz.UserCtx(r)
	includeCompleted := r.URL.Query().Get("include_completed") == "true"

	out, err := h.Tasks.List(r.Context(), owner, includeCompleted)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.List(w, out, int64(len(out)), nil)
}

// HandleGet returns one task.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	_, _, owner, _ := authz.UserCtx(r)

	t, err := h.Tasks.GetByID(r.Context(), id, owner)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OK(w, t)
}

// HandleUpdate patches a task.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var req taskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	_, _, owner, _ := authz.UserCtx(r)

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	err = h.Tasks.Update(r.Context(), id, owner, tasks.Update{
		Title:       sanitize.Text(req.Title),
		Description: sanitize.Text(req.Description),
		DueDate:     req.DueDate,
		Priority:    priority,
		Completed:   req.Completed,
	})
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	t, err := h.Tasks.GetByID(r.Context(), id, owner)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OKMessage(w, "task updated", t)
}

// HandleDelete removes a task.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	_, _, owner, _ := authz.UserCtx(r)

	n, err := h.Tasks.Delete(r.Context(), id, owner)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if n == 0 {
		h.Resp.Fail(w, r, httperr.NotFound("task not found"))
		return
	}
	respond.OKMessage(w, "task deleted", nil)
}
