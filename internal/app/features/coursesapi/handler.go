// internal/app/features/coursesapi/handler.go
package coursesapi

import (
	"net/http"

	"github.com/combinefoundation/portal/internal/app/features/shared"
	"github.com/combinefoundation/portal/internal/app/store/audit"
	"github.com/combinefoundation/portal/internal/app/store/courses"
	"github.com/combinefoundation/portal/internal/app/system/auditlog"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/app/system/sanitize"
	"github.com/combinefoundation/portal/internal/app/system/storage"
	"github.com/combinefoundation/portal/internal/app/system/uploads"
	"github.com/combinefoundation/portal/internal/domain/models"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for courses.
type Handler struct {
	Log      *zap.Logger
	Resp     *respond.Writer
	AuditLog *auditlog.Logger
	Courses  *courses.Store
	Images   storage.ImageStore
}

type courseForm struct {
	Title       string `validate:"required,min=2,max=200"`
	Subtitle    string `validate:"omitempty,max=300"`
	Body        string `validate:"required"`
	IsPublished bool
}

func readForm(r *http.Request) courseForm {
	return courseForm{
		Title:       sanitize.Text(r.FormValue("title")),
		Subtitle:    sanitize.Text(r.FormValue("subtitle")),
		Body:        sanitize.Body(r.FormValue("body")),
		IsPublished: r.FormValue("is_published") == "true",
	}
}

// HandleCreate creates a course from a multipart form with an optional
// cover image.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	img, err := uploads.FromRequest(r, "image", false)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	form := readForm(r)
	if err := shared.Validate(form); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	_, _, actor, _ := authz.UserCtx(r)

	c := models.Course{
		Title:       form.Title,
		Subtitle:    form.Subtitle,
		Body:        form.Body,
		IsPublished: form.IsPublished,
		CreatedBy:   actor,
	}
	if img != nil {
		url, publicID, err := h.Images.Upload(r.Context(), img.Reader())
		if err != nil {
			h.Resp.Fail(w, r, err)
			return
		}
		c.ImageURL = url
		c.ImageID = publicID
	}

	created, err := h.Courses.Create(r.Context(), c)
	if err != nil {
		if c.ImageID != "" {
			storage.BestEffortDestroy(r.Context(), h.Images, c.ImageID, h.Log)
		}
		h.Resp.Fail(w, r, err)
		return
	}

	h.AuditLog.ResourceAction(r.Context(), r, audit.ActionCourseCreated, actor, "course:"+created.ID.Hex(), nil)
	respond.Created(w, created)
}

// HandleList returns courses. Editors see drafts; everyone else sees only
// published entries.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := shared.Paging(r)
	publishedOnly := !canEdit(r)

	out, total, err := h.Courses.List(r.Context(), publishedOnly, limit, offset)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.List(w, out, total, shared.PaginationFor(page, limit, total))
}

// HandleGet returns one course. Drafts are hidden from non-editors.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	c, err := h.Courses.GetByID(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if !c.IsPublished && !canEdit(r) {
		h.Resp.Fail(w, r, httperr.NotFound("course not found"))
		return
	}
	respond.OK(w, c)
}

// HandleUpdate patches a course; a new image replaces and destroys the
// old one.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	existing, err := h.Courses.GetByID(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	img, err := uploads.FromRequest(r, "image", false)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	form := readForm(r)
	if err := shared.Validate(form); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	upd := courses.Update{
		Title:       form.Title,
		Subtitle:    form.Subtitle,
		Body:        form.Body,
		IsPublished: form.IsPublished,
	}
	if img != nil {
		url, publicID, err := h.Images.Upload(r.Context(), img.Reader())
		if err != nil {
			h.Resp.Fail(w, r, err)
			return
		}
		upd.ImageURL = url
		upd.ImageID = publicID
	}

	if err := h.Courses.Update(r.Context(), id, upd); err != nil {
		if upd.ImageID != "" {
			storage.BestEffortDestroy(r.Context(), h.Images, upd.ImageID, h.Log)
		}
		h.Resp.Fail(w, r, err)
		return
	}
	if img != nil && existing.ImageID != "" {
		storage.BestEffortDestroy(r.Context(), h.Images, existing.ImageID, h.Log)
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.ResourceAction(r.Context(), r, audit.ActionCourseUpdated, actor, "course:"+id.Hex(), nil)

	c, err := h.Courses.GetByID(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OKMessage(w, "course updated", c)
}

// HandleDelete removes a course and its stored image.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	existing, err := h.Courses.GetByID(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	n, err := h.Courses.Delete(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if n == 0 {
		h.Resp.Fail(w, r, httperr.NotFound("course not found"))
		return
	}
	if existing.ImageID != "" {
		storage.BestEffortDestroy(r.Context(), h.Images, existing.ImageID, h.Log)
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.ResourceAction(r.Context(), r, audit.ActionCourseDeleted, actor, "course:"+id.Hex(), nil)
	respond.OKMessage(w, "course deleted", nil)
}

// canEdit reports whether the session may see drafts. Route-level gates
// already cover mutation; this only widens reads for staff.
func canEdit(r *http.Request) bool {
	role, _, _, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	return role == models.RoleAdmin || role == models.RoleSuperAdmin || role == models.RoleDeveloper
}
