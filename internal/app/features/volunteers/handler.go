// internal/app/features/volunteers/handler.go
package volunteers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/combinefoundation/portal/internal/app/features/shared"
	"github.com/combinefoundation/portal/internal/app/store/audit"
	"github.com/combinefoundation/portal/internal/app/store/idcards"
	userstore "github.com/combinefoundation/portal/internal/app/store/users"
	"github.com/combinefoundation/portal/internal/app/system/auditlog"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/mailer"
	"github.com/combinefoundation/portal/internal/app/system/passwords"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/app/system/storage"
	"github.com/combinefoundation/portal/internal/app/system/uploads"
	"github.com/combinefoundation/portal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// tempPasswordLen is the length of generated volunteer credentials.
const tempPasswordLen = 12

// Handler is the feature-level handler for the volunteer lifecycle.
type Handler struct {
	Log      *zap.Logger
	Resp     *respond.Writer
	AuditLog *auditlog.Logger
	Users    *userstore.Store
	Cards    *idcards.Store
	Images   storage.ImageStore
	Mail     mailer.Sender
	SiteName string
	LoginURL string
}

type applyRequest struct {
	FullName     string   `validate:"required,min=2,max=120"`
	Email        string   `validate:"required,email"`
	Phone        string   `validate:"omitempty,max=32"`
	Gender       string   `validate:"omitempty,oneof=male female other"`
	CNIC         string   `validate:"omitempty,max=20"`
	Age          int      `validate:"omitempty,gte=14,lte=100"`
	City         string   `validate:"omitempty,max=80"`
	Education    string   `validate:"omitempty,max=120"`
	Institute    string   `validate:"omitempty,max=120"`
	Skills       []string `validate:"omitempty,dive,max=60"`
	Expertise    []string `validate:"omitempty,dive,max=60"`
	Availability string   `validate:"omitempty,max=60"`
}

// HandleApply accepts a public volunteer application: multipart form with
// profile fields and an optional photo. The account is created pending
// with no usable credential; a password is only issued on approval.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	img, err := uploads.FromRequest(r, "photo", false)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	req := applyRequest{
		FullName:     r.FormValue("full_name"),
		Email:        r.FormValue("email"),
		Phone:        r.FormValue("phone"),
		Gender:       r.FormValue("gender"),
		CNIC:         r.FormValue("cnic"),
		Age:          formInt(r, "age"),
		City:         r.FormValue("city"),
		Education:    r.FormValue("education"),
		Institute:    r.FormValue("institute"),
		Skills:       formList(r, "skills"),
		Expertise:    formList(r, "expertise"),
		Availability: r.FormValue("availability"),
	}
	if err := shared.Validate(req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	u := models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		Role:         models.RoleVolunteer,
		Gender:       req.Gender,
		CNIC:         req.CNIC,
		Age:          req.Age,
		City:         req.City,
		Education:    req.Education,
		Institute:    req.Institute,
		Skills:       req.Skills,
		Expertise:    req.Expertise,
		Availability: req.Availability,
	}

	if img != nil {
		url, publicID, err := h.Images.Upload(r.Context(), img.Reader())
		if err != nil {
			h.Resp.Fail(w, r, err)
			return
		}
		u.PhotoURL = url
		u.PhotoID = publicID
	}

	created, err := h.Users.Create(r.Context(), u)
	if err != nil {
		if u.PhotoID != "" {
			storage.BestEffortDestroy(r.Context(), h.Images, u.PhotoID, h.Log)
		}
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			h.Resp.Fail(w, r, httperr.Conflict("an application or account with this email already exists"))
			return
		}
		h.Resp.Fail(w, r, err)
		return
	}

	h.AuditLog.Action(r.Context(), r, audit.ActionVolunteerApplied, created.ID)
	respond.Created(w, created.Redacted())
}

// HandleList returns volunteers, filterable by status, city, and search.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := shared.Paging(r)
	q := r.URL.Query()

	status := q.Get("status")
	if status != "" {
		switch status {
		case models.VolunteerPending, models.VolunteerApproved, models.VolunteerRejected, models.VolunteerCompleted:
		default:
			h.Resp.Fail(w, r, httperr.BadRequest(`status must be one of "pending", "approved", "rejected", "completed"`))
			return
		}
	}

	users, total, err := h.Users.List(r.Context(), userstore.ListFilter{
		Role:            models.RoleVolunteer,
		VolunteerStatus: status,
		City:            q.Get("city"),
		Search:          q.Get("search"),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	out := make([]models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Redacted())
	}
	respond.List(w, out, total, shared.PaginationFor(page, limit, total))
}

// HandleGet returns one volunteer.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	u, err := h.Users.GetByRole(r.Context(), id, models.RoleVolunteer)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OK(w, u.Redacted())
}

// HandleUpdate patches a volunteer's profile fields.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if _, err := h.Users.GetByRole(r.Context(), id, models.RoleVolunteer); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	var req updateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := h.Users.UpdateProfile(r.Context(), id, req.toUpdate()); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.UserAction(r.Context(), r, audit.ActionVolunteerUpdated, actor, id, nil)

	u, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OKMessage(w, "volunteer updated", u.Redacted())
}

type updateRequest struct {
	FullName     string   `json:"full_name" validate:"required,min=2,max=120"`
	Phone        string   `json:"phone" validate:"omitempty,max=32"`
	Gender       string   `json:"gender" validate:"omitempty,oneof=male female other"`
	CNIC         string   `json:"cnic" validate:"omitempty,max=20"`
	Age          int      `json:"age" validate:"omitempty,gte=14,lte=100"`
	City         string   `json:"city" validate:"omitempty,max=80"`
	Education    string   `json:"education" validate:"omitempty,max=120"`
	Institute    string   `json:"institute" validate:"omitempty,max=120"`
	Skills       []string `json:"skills" validate:"omitempty,dive,max=60"`
	Expertise    []string `json:"expertise" validate:"omitempty,dive,max=60"`
	Availability string   `json:"availability" validate:"omitempty,max=60"`
}

func (u updateRequest) toUpdate() userstore.ProfileUpdate {
	return userstore.ProfileUpdate{
		FullName:     u.FullName,
		Phone:        u.Phone,
		Gender:       u.Gender,
		CNIC:         u.CNIC,
		Age:          u.Age,
		City:         u.City,
		Education:    u.Education,
		Institute:    u.Institute,
		Skills:       u.Skills,
		Expertise:    u.Expertise,
		Availability: u.Availability,
	}
}

// HandleDelete removes a volunteer and their issued card and photo.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	u, err := h.Users.GetByRole(r.Context(), id, models.RoleVolunteer)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	n, err := h.Users.Delete(r.Context(), id, models.RoleVolunteer)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if n == 0 {
		h.Resp.Fail(w, r, httperr.NotFound("volunteer not found"))
		return
	}

	if err := h.Cards.Delete(r.Context(), id); err != nil {
		h.Log.Warn("delete id card failed", zap.String("user_id", id.Hex()), zap.Error(err))
	}
	if u.PhotoID != "" {
		storage.BestEffortDestroy(r.Context(), h.Images, u.PhotoID, h.Log)
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.UserAction(r.Context(), r, audit.ActionVolunteerDeleted, actor, id, nil)
	respond.OKMessage(w, "volunteer deleted", nil)
}

// HandleApprove moves a pending volunteer to approved, issues a temporary
// password, and emails the credentials. The state check and the credential
// install happen in one conditional update, so two admins approving at
// once produce exactly one approval.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	_, _, actor, _ := authz.UserCtx(r)

	temp := passwords.Temporary(tempPasswordLen)
	hash, err := passwords.Hash(temp)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	if err := h.Users.ApproveVolunteer(r.Context(), id, actor, hash); err != nil {
		switch {
		case errors.Is(err, userstore.ErrNotPending):
			h.Resp.Fail(w, r, httperr.Conflict("volunteer is not pending approval"))
		case errors.Is(err, mongo.ErrNoDocuments):
			h.Resp.Fail(w, r, httperr.NotFound("volunteer not found"))
		default:
			h.Resp.Fail(w, r, err)
		}
		return
	}

	u, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	email := mailer.BuildCredentialEmail(mailer.CredentialEmailData{
		SiteName: h.SiteName,
		Name:     u.FullName,
		Email:    u.Email,
		Password: temp,
		LoginURL: h.LoginURL,
	})
	email.To = u.Email
	mailer.SendAsync(h.Mail, h.Log, email)

	h.AuditLog.UserAction(r.Context(), r, audit.ActionVolunteerApproved, actor, id, nil)
	respond.OKMessage(w, "volunteer approved, credentials sent", u.Redacted())
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=1000"`
}

// HandleReject moves a pending volunteer to rejected with a reason of at
// least ten characters. Rejected is terminal; recovery is delete plus a
// fresh application.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var req rejectRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	_, _, actor, _ := authz.UserCtx(r)

	if err := h.Users.RejectVolunteer(r.Context(), id, actor, req.Reason); err != nil {
		switch {
		case errors.Is(err, userstore.ErrNotPending):
			h.Resp.Fail(w, r, httperr.Conflict("volunteer is not pending approval"))
		case errors.Is(err, mongo.ErrNoDocuments):
			h.Resp.Fail(w, r, httperr.NotFound("volunteer not found"))
		default:
			h.Resp.Fail(w, r, err)
		}
		return
	}

	u, err := h.Users.GetByID(r.Context(), id)
	if err == nil {
		email := mailer.BuildRejectionEmail(mailer.RejectionEmailData{
			SiteName: h.SiteName,
			Name:     u.FullName,
			Reason:   req.Reason,
		})
		email.To = u.Email
		mailer.SendAsync(h.Mail, h.Log, email)
	}

	h.AuditLog.UserAction(r.Context(), r, audit.ActionVolunteerRejected, actor, id,
		map[string]string{"reason": req.Reason})
	respond.OKMessage(w, "volunteer rejected", nil)
}

// HandleComplete marks an approved volunteer's service finished. The
// record stays, but the account can no longer sign in and any live
// session stops working on its next request.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	if err := h.Users.CompleteVolunteer(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, userstore.ErrNotApproved):
			h.Resp.Fail(w, r, httperr.Conflict("volunteer is not currently approved"))
		case errors.Is(err, mongo.ErrNoDocuments):
			h.Resp.Fail(w, r, httperr.NotFound("volunteer not found"))
		default:
			h.Resp.Fail(w, r, err)
		}
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.UserAction(r.Context(), r, audit.ActionVolunteerCompleted, actor, id, nil)
	respond.OKMessage(w, "volunteer marked completed", nil)
}

type inviteRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	City     string `json:"city" validate:"omitempty,max=80"`
}

// HandleInvite creates an already-approved volunteer directly, skipping
// the application queue, and emails a temporary credential.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	_, _, actor, _ := authz.UserCtx(r)

	temp := passwords.Temporary(tempPasswordLen)
	hash, err := passwords.Hash(temp)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	created, err := h.Users.Create(r.Context(), models.User{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		City:     req.City,
		Role:     models.RoleVolunteer,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			h.Resp.Fail(w, r, httperr.Conflict("a user with this email already exists"))
			return
		}
		h.Resp.Fail(w, r, err)
		return
	}
	if err := h.Users.ApproveVolunteer(r.Context(), created.ID, actor, hash); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	email := mailer.BuildCredentialEmail(mailer.CredentialEmailData{
		SiteName: h.SiteName,
		Name:     created.FullName,
		Email:    created.Email,
		Password: temp,
		LoginURL: h.LoginURL,
	})
	email.To = created.Email
	mailer.SendAsync(h.Mail, h.Log, email)

	h.AuditLog.UserAction(r.Context(), r, audit.ActionVolunteerInvited, actor, created.ID, nil)

	u, err := h.Users.GetByID(r.Context(), created.ID)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.Created(w, u.Redacted())
}

func formInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.FormValue(name))
	return n
}

// formList accepts either repeated fields or one comma-separated value.
func formList(r *http.Request, name string) []string {
	if r.MultipartForm == nil {
		return nil
	}
	vals := r.MultipartForm.Value[name]
	if len(vals) == 1 && strings.Contains(vals[0], ",") {
		vals = strings.Split(vals[0], ",")
	}
	var out []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
