// internal/app/features/admins/handler.go
package admins

import (
	"errors"
	"net/http"
	"strings"

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

// Handler is the feature-level handler for admin account management.
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
	FullName        string   `json:"full_name" validate:"required,min=2,max=120"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone" validate:"omitempty,max=32"`
	Permissions     []string `json:"permissions" validate:"required,min=1"`
	CanManageAdmins bool     `json:"can_manage_admins"`
}

// HandleCreate creates an admin account with an initial permission set and
// emails a temporary credential. Only a superadmin may grant the
// can_manage_admins flag.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := validPermissions(req.Permissions); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if req.CanManageAdmins && !authz.IsSuperAdmin(r) {
		h.Resp.Fail(w, r, httperr.Forbidden("only a superadmin can grant admin management"))
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
		Role:         models.RoleAdmin,
		PasswordHash: hash,
		Admin: &models.AdminProfile{
			Permissions:     req.Permissions,
			CanManageAdmins: req.CanManageAdmins,
		},
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
	h.AuditLog.UserAction(r.Context(), r, audit.ActionAdminCreated, actor, created.ID, nil)
	respond.Created(w, created.Redacted())
}

// HandleList returns admin accounts.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := shared.Paging(r)
	users, total, err := h.Users.List(r.Context(), userstore.ListFilter{
		Role:   models.RoleAdmin,
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

// HandleGet returns one admin account.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	u, err := h.Users.GetByRole(r.Context(), id, models.RoleAdmin)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OK(w, u.Redacted())
}

type permissionsRequest struct {
	Permissions     []string `json:"permissions" validate:"required,min=1"`
	CanManageAdmins bool     `json:"can_manage_admins"`
}

// HandleSetPermissions replaces an admin's permission set. Changes take
// effect on the target's very next request; permissions are re-read from
// the store per request, never cached in the session token.
func (h *Handler) HandleSetPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var req permissionsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := validPermissions(req.Permissions); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if req.CanManageAdmins && !authz.IsSuperAdmin(r) {
		h.Resp.Fail(w, r, httperr.Forbidden("only a superadmin can grant admin management"))
		return
	}

	if err := h.Users.SetAdminPermissions(r.Context(), id, req.Permissions, req.CanManageAdmins); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.UserAction(r.Context(), r, audit.ActionPermissionsChanged, actor, id,
		map[string]string{"permissions": strings.Join(req.Permissions, ",")})

	u, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OKMessage(w, "permissions updated", u.Redacted())
}

// HandleSetActive enables or disables an admin account.
func (h *Handler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var req struct {
		IsActive *bool `json:"is_active" validate:"required"`
	}
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if _, err := h.Users.GetByRole(r.Context(), id, models.RoleAdmin); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := h.Users.SetActive(r.Context(), id, *req.IsActive); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.UserAction(r.Context(), r, audit.ActionAdminUpdated, actor, id, nil)
	respond.OKMessage(w, "admin updated", nil)
}

// HandleDelete removes an admin account.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLObjectID(r, "id")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	_, _, actor, _ := authz.UserCtx(r)
	if actor == id {
		h.Resp.Fail(w, r, httperr.BadRequest("you cannot delete your own account"))
		return
	}

	n, err := h.Users.Delete(r.Context(), id, models.RoleAdmin)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if n == 0 {
		h.Resp.Fail(w, r, httperr.NotFound("admin not found"))
		return
	}

	h.AuditLog.UserAction(r.Context(), r, audit.ActionAdminDeleted, actor, id, nil)
	respond.OKMessage(w, "admin deleted", nil)
}

func validPermissions(perms []string) error {
	for _, p := range perms {
		if !models.ValidPermission(p) {
			return httperr.BadRequest("unknown permission: " + p)
		}
	}
	return nil
}
