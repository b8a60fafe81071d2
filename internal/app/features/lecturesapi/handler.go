// internal/app/features/lecturesapi/handler.go
package lecturesapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/combinefoundation/portal/internal/app/features/shared"
	"github.com/combinefoundation/portal/internal/app/store/audit"
	"github.com/combinefoundation/portal/internal/app/store/lectures"
	"github.com/combinefoundation/portal/internal/app/system/auditlog"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/app/system/sanitize"
	"github.com/combinefoundation/portal/internal/app/system/storage"
	"github.com/combinefoundation/portal/internal/app/system/uploads"
	"github.com/combinefoundation/portal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for lectures.
type Handler struct {
	Log      *zap.Logger
	Resp     *respond.Writer
	AuditLog *auditlog.Logger
	Lectures *lectures.Store
	Images   storage.ImageStore
}

type lectureForm struct {
	Title    string `validate:"required,min=2,max=200"`
	Subtitle string `validate:"omitempty,max=300"`
	Body     string `validate:"omitempty"`
	WatchURL string `validate:"required,url"`
	Category string `validate:"omitempty,max=80"`
	Tags     []string
	IsPublic bool
}

func readForm(r *http.Request) lectureForm {
	return lectureForm{
		Title:    sanitize.Text(r.FormValue("title")),
		Subtitle: sanitize.Text(r.FormValue("subtitle")),
		Body:     sanitize.Body(r.FormValue("body")),
		WatchURL: strings.TrimSpace(r.FormValue("watch_url")),
		Category: sanitize.Text(r.FormValue("category")),
		Tags:     formTags(r),
		IsPublic: r.FormValue("is_public") == "true",
	}
}

// HandleCreate creates a lecture from a multipart form with an optional
// thumbnail.
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

	l := models.Lecture{
		Title:     form.Title,
		Subtitle:  form.Subtitle,
		Body:      form.Body,
		WatchURL:  form.WatchURL,
		Category:  form.Category,
		Tags:      form.Tags,
		IsPublic:  form.IsPublic,
		CreatedBy: actor,
	}
	if img != nil {
		url, publicID, err := h.Images.Upload(r.Context(), img.Reader())
		if err != nil {
			h.Resp.Fail(w, r, err)
			return
		}
		l.ImageURL = url
		l.ImageID = publicID
	}

	created, err := h.Lectures.Create(r.Context(), l)
	if err != nil {
		if l.ImageID != "" {
			storage.BestEffortDestroy(r.Context(), h.Images, l.ImageID, h.Log)
		}
		h.Resp.Fail(w, r, err)
		return
	}

	h.AuditLog.ResourceAction(r.Context(), r, audit.ActionLectureCreated, actor, "lecture:"+created.ID.Hex(), nil)
	respond.Created(w, created)
}

// HandleList returns lectures, filterable by category and tag. Staff see
// unlisted lectures too.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := shared.Paging(r)
	q := r.URL.Query()

	out, total, err := h.Lectures.List(r.Context(), lectures.ListFilter{
		PublicOnly: !canEdit(r),
		Category:   q.Get("category"),
		Tag:        q.Get("tag"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.List(w, out, total, shared.PaginationFor(page, limit, total))
}

// HandleGet returns one lecture. Non-staff reads bump the view counter;
// staff previews do not inflate it.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	if canEdit(r) {
		l, err := h.Lectures.GetByID(r.Context(), id)
		if err != nil {
			h.Resp.Fail(w, r, err)
			return
		}
		respond.OK(w, l)
		return
	}

	l, err := h.Lectures.GetAndCountView(r.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			h.Resp.Fail(w, r, httperr.NotFound("lecture not found"))
			return
		}
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OK(w, l)
}

// HandleUpdate patches a lecture; a new thumbnail replaces and destroys
// the old one.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	existing, err := h.Lectures.GetByID(r.Context(), id)
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

	upd := lectures.Update{
		Title:    form.Title,
		Subtitle: form.Subtitle,
		Body:     form.Body,
		WatchURL: form.WatchURL,
		Category: form.Category,
		Tags:     form.Tags,
		IsPublic: form.IsPublic,
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

	if err := h.Lectures.Update(r.Context(), id, upd); err != nil {
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
	h.AuditLog.ResourceAction(r.Context(), r, audit.ActionLectureUpdated, actor, "lecture:"+id.Hex(), nil)

	l, err := h.Lectures.GetByID(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OKMessage(w, "lecture updated", l)
}

// HandleDelete removes a lecture and its thumbnail.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	existing, err := h.Lectures.GetByID(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	n, err := h.Lectures.Delete(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if n == 0 {
		h.Resp.Fail(w, r, httperr.NotFound("lecture not found"))
		return
	}
	if existing.ImageID != "" {
		storage.BestEffortDestroy(r.Context(), h.Images, existing.ImageID, h.Log)
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.ResourceAction(r.Context(), r, audit.ActionLectureDeleted, actor, "lecture:"+id.Hex(), nil)
	respond.OKMessage(w, "lecture deleted", nil)
}

func canEdit(r *http.Request) bool {
	role, _, _, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	return role == models.RoleAdmin || role == models.RoleSuperAdmin || role == models.RoleDeveloper
}

func formTags(r *http.Request) []string {
	raw := r.FormValue("tags")
	if raw == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, sanitize.Text(t))
		}
	}
	return out
}
