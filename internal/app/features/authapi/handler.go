// internal/app/features/authapi/handler.go
package authapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/combinefoundation/portal/internal/app/features/shared"
	"github.com/combinefoundation/portal/internal/app/store/audit"
	"github.com/combinefoundation/portal/internal/app/store/passwordreset"
	userstore "github.com/combinefoundation/portal/internal/app/store/users"
	"github.com/combinefoundation/portal/internal/app/system/auditlog"
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/mailer"
	"github.com/combinefoundation/portal/internal/app/system/passwords"
	"github.com/combinefoundation/portal/internal/app/system/ratelimit"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/app/system/storage"
	"github.com/combinefoundation/portal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// credentialErr is the uniform login failure. Wrong email and wrong
// password are indistinguishable to the client.
var credentialErr = httperr.Unauthorized("invalid email or password")

// Handler is the feature-level handler for session and credential flows.
type Handler struct {
	Log      *zap.Logger
	Resp     *respond.Writer
	AuditLog *auditlog.Logger
	Sessions *auth.SessionManager
	Users    *userstore.Store
	Resets   *passwordreset.Store
	Mail     mailer.Sender
	Images   storage.ImageStore
	Logins   *ratelimit.LoginLimiter
	SiteName string
	LoginURL string
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// HandleLogin authenticates an email/password pair and opens a session.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	if ok, reason := h.Logins.Check(r, req.Email); !ok {
		h.Resp.Fail(w, r, httperr.New(http.StatusTooManyRequests, reason))
		return
	}

	u, err := h.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Burn comparable time so a missing account is not observable
			// through response latency.
			passwords.Compare("$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva", req.Password)
			h.Resp.Fail(w, r, credentialErr)
			return
		}
		h.Resp.Fail(w, r, err)
		return
	}

	if !passwords.Compare(u.PasswordHash, req.Password) {
		h.Resp.Fail(w, r, credentialErr)
		return
	}

	if !u.CanLogin() {
		h.Resp.Fail(w, r, httperr.Forbidden("account access has been revoked"))
		return
	}

	if u.Role == models.RoleVolunteer && u.Volunteer != nil && u.Volunteer.Status == models.VolunteerPending {
		h.Resp.Fail(w, r, httperr.Forbidden("your application is still under review"))
		return
	}

	token, expires, err := h.Sessions.Issue(u)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	if err := h.Users.TouchLastLogin(r.Context(), u.ID); err != nil {
		h.Log.Warn("touch last_login failed", zap.Error(err))
	}
	h.Logins.ResetEmail(req.Email)
	h.Sessions.SetCookie(w, token, expires)
	h.AuditLog.Action(r.Context(), r, audit.ActionLogin, u.ID)

	respond.OKMessage(w, "signed in", sessionResponse{
		Token:     token,
		ExpiresAt: expires,
		User:      u.Redacted(),
	})
}

// HandleLogout closes the session. The JWT itself stays valid until expiry;
// clearing the cookie is what browser clients rely on, and API clients
// simply discard the token.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.ClearCookie(w)
	if _, _, userID, ok := authz.UserCtx(r); ok {
		h.AuditLog.Action(r.Context(), r, audit.ActionLogout, userID)
	}
	respond.OKMessage(w, "signed out", nil)
}

// HandleMe returns the fresh record for the signed-in principal.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		h.Resp.Fail(w, r, httperr.Unauthorized("authentication required"))
		return
	}
	u, err := h.Users.GetByID(r.Context(), userID)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OK(w, u.Redacted())
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// HandleChangePassword rotates the signed-in user's password. Also clears
// the first-login flag, so invited accounts complete onboarding here.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		h.Resp.Fail(w, r, httperr.Unauthorized("authentication required"))
		return
	}

	var req changePasswordRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	u, err := h.Users.GetByID(r.Context(), userID)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if !passwords.Compare(u.PasswordHash, req.CurrentPassword) {
		h.Resp.Fail(w, r, httperr.BadRequest("current password is incorrect"))
		return
	}

	hash, err := passwords.Hash(req.NewPassword)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := h.Users.SetPassword(r.Context(), userID, hash, true); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	h.AuditLog.Action(r.Context(), r, audit.ActionPasswordChanged, userID)
	email := mailer.BuildPasswordChangedEmail(h.SiteName, u.FullName)
	email.To = u.Email
	mailer.SendAsync(h.Mail, h.Log, email)

	respond.OKMessage(w, "password changed", nil)
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// otpSentMessage is returned whether or not the account exists, so the
// endpoint cannot be used to probe for registered emails.
const otpSentMessage = "if an account exists for this email, a reset code has been sent"

// HandleForgotPassword issues a reset code for the account, if one exists.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	u, err := h.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			h.Resp.Fail(w, r, err)
			return
		}
		respond.OKMessage(w, otpSentMessage, nil)
		return
	}
	if !u.CanLogin() {
		respond.OKMessage(w, otpSentMessage, nil)
		return
	}

	pr, err := h.Resets.Issue(r.Context(), u.Email)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	email := mailer.BuildOTPEmail(mailer.OTPEmailData{
		SiteName:  h.SiteName,
		Code:      pr.Code,
		ExpiresIn: "10 minutes",
	})
	email.To = u.Email
	email.ToName = u.FullName
	mailer.SendAsync(h.Mail, h.Log, email)

	respond.OKMessage(w, otpSentMessage, nil)
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// HandleVerifyOTP confirms a code without consuming it, so the client can
// gate its new-password screen.
func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := h.Resets.Verify(r.Context(), req.Email, req.Code); err != nil {
		if errors.Is(err, passwordreset.ErrCodeInvalid) {
			h.Resp.Fail(w, r, httperr.BadRequest("invalid or expired code"))
			return
		}
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OKMessage(w, "code verified", nil)
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// HandleResetPassword consumes the code and installs the new password.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	u, err := h.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			h.Resp.Fail(w, r, httperr.BadRequest("invalid or expired code"))
			return
		}
		h.Resp.Fail(w, r, err)
		return
	}

	if err := h.Resets.Consume(r.Context(), req.Email, req.Code); err != nil {
		if errors.Is(err, passwordreset.ErrCodeInvalid) {
			h.Resp.Fail(w, r, httperr.BadRequest("invalid or expired code"))
			return
		}
		h.Resp.Fail(w, r, err)
		return
	}

	hash, err := passwords.Hash(req.NewPassword)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := h.Users.SetPassword(r.Context(), u.ID, hash, false); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	h.AuditLog.Action(r.Context(), r, audit.ActionPasswordReset, u.ID)
	email := mailer.BuildPasswordChangedEmail(h.SiteName, u.FullName)
	email.To = u.Email
	mailer.SendAsync(h.Mail, h.Log, email)

	respond.OKMessage(w, "password reset, you can now sign in", nil)
}
