// internal/app/features/categoriesapi/handler.go
package categoriesapi

import (
	"errors"
	"net/http"

	"github.com/combinefoundation/portal/internal/app/features/shared"
	"github.com/combinefoundation/portal/internal/app/store/audit"
	"github.com/combinefoundation/portal/internal/app/store/categories"
	"github.com/combinefoundation/portal/internal/app/system/auditlog"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/app/system/sanitize"
	"github.com/combinefoundation/portal/internal/domain/models"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for content categories.
type Handler struct {
	Log        *zap.Logger
	Resp       *respond.Writer
	AuditLog   *auditlog.Logger
	Categories *categories.Store
}

type createRequest struct {
	Name string `json:"name" validate:"required,min=2,max=80"`
	Type string `json:"type" validate:"required,oneof=lecture course post"`
}

// HandleCreate creates a category. Name is unique within its type.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	_, _, actor, _ := authz.UserCtx(r)

	created, err := h.Categories.Create(r.Context(), models.Category{
		Name:      sanitize.Text(req.Name),
		Type:      req.Type,
		CreatedBy: actor,
	})
	if err != nil {
		if errors.Is(err, categories.ErrDuplicateName) {
			h.Resp.Fail(w, r, httperr.Conflict("a category with this name already exists for this type"))
			return
		}
		h.Resp.Fail(w, r, err)
		return
	}

	h.AuditLog.ResourceAction(r.Context(), r, audit.ActionCategoryCreated, actor, "category:"+created.ID.Hex(), nil)
	respond.Created(w, created)
}

// HandleList returns categories, optionally narrowed to a type.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	out, err := h.Categories.List(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.List(w, out, int64(len(out)), nil)
}

type renameRequest struct {
	Name string `json:"name" validate:"required,min=2,max=80"`
}

// HandleRename renames a category.
func (h *Handler) HandleRename(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var req renameRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	if err := h.Categories.Rename(r.Context(), id, sanitize.Text(req.Name)); err != nil {
		if errors.Is(err, categories.ErrDuplicateName) {
			h.Resp.Fail(w, r, httperr.Conflict("a category with this name already exists for this type"))
			return
		}
		h.Resp.Fail(w, r, err)
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.ResourceAction(r.Context(), r, audit.ActionCategoryUpdated, actor, "category:"+id.Hex(), nil)
	respond.OKMessage(w, "category renamed", nil)
}

// HandleDelete removes a category. Lectures keep their category string;
// they are not re-filed.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	n, err := h.Categories.Delete(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if n == 0 {
		h.Resp.Fail(w, r, httperr.NotFound("category not found"))
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.ResourceAction(r.Context(), r, audit.ActionCategoryDeleted, actor, "category:"+id.Hex(), nil)
	respond.OKMessage(w, "category deleted", nil)
}
