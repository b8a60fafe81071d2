// internal/app/features/trustees/handler.go
package trustees

import (
	"errors"
	"net/http"

	"github.com/combinefoundation/portal/internal/app/features/shared"
	"github.com/combinefoundation/portal/internal/app/store/audit"
	userstore "github.com/combinefoundation/portal/internal/app/store/users"
	"github.com/combinefoundation/portal/internal/app/system/auditlog"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/mailer"
	"github.com/combinefoundation/portal/internal/app/system/passwords"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/domain/models"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for trustee accounts.
type Handler struct {
	Log      *zap.Logger
	Resp     *respond.Writer
	AuditLog *auditlog.Logger
	Users    *userstore.Store
	Mail     mailer.Sender
	SiteName string
	LoginURL string
}

type createRequest struct {
	FullName  string   `json:"full_name" validate:"required,min=2,max=120"`
	Email     string   `json:"email" validate:"required,email"`
	Phone     string   `json:"phone" validate:"omitempty,max=32"`
	Expertise []string `json:"expertise" validate:"omitempty,dive,max=60"`
}

// HandleCreate creates a trustee account and emails a temporary credential.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	temp := passwords.Temporary(12)
	hash, err := passwords.Hash(temp)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	created, err := h.Users.Create(r.Context(), models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		Role:         models.RoleTrustee,
		PasswordHash: hash,
		Trustee:      &models.TrusteeProfile{Expertise: req.Expertise},
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			h.Resp.Fail(w, r, httperr.Conflict("a user with this email already exists"))
			return
		}
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

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.UserAction(r.Context(), r, audit.ActionTrusteeCreated, actor, created.ID, nil)
	respond.Created(w, created.Redacted())
}

// HandleList returns trustee accounts.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := shared.Paging(r)
	users, total, err := h.Users.List(r.Context(), userstore.ListFilter{
		Role:   models.RoleTrustee,
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
		Offset: offset,
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

// HandleGet returns one trustee account.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	u, err := h.Users.GetByRole(r.Context(), id, models.RoleTrustee)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OK(w, u.Redacted())
}

type expertiseRequest struct {
	Expertise []string `json:"expertise" validate:"required,min=1,dive,max=60"`
}

// HandleSetExpertise replaces a trustee's expertise tags.
func (h *Handler) HandleSetExpertise(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var req expertiseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := h.Users.SetTrusteeExpertise(r.Context(), id, req.Expertise); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.UserAction(r.Context(), r, audit.ActionTrusteeUpdated, actor, id, nil)
	respond.OKMessage(w, "expertise updated", nil)
}

// HandleDelete removes a trustee account.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	n, err := h.Users.Delete(r.Context(), id, models.RoleTrustee)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if n == 0 {
		h.Resp.Fail(w, r, httperr.NotFound("trustee not found"))
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.UserAction(r.Context(), r, audit.ActionTrusteeDeleted, actor, id, nil)
	respond.OKMessage(w, "trustee deleted", nil)
}
