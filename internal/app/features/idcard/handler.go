// internal/app/features/idcard/handler.go
package idcard

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/combinefoundation/portal/internal/app/features/shared"
	"github.com/combinefoundation/portal/internal/app/store/audit"
	"github.com/combinefoundation/portal/internal/app/store/idcards"
	userstore "github.com/combinefoundation/portal/internal/app/store/users"
	"github.com/combinefoundation/portal/internal/app/system/auditlog"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for ID cards.
type Handler struct {
	Log      *zap.Logger
	Resp     *respond.Writer
	AuditLog *auditlog.Logger
	Cards    *idcards.Store
	Users    *userstore.Store
	SiteName string
}

// qrPayload is what the card's QR code carries. It identifies the holder
// without exposing anything beyond what is printed on the card itself.
func (h *Handler) qrPayload(u *models.User, idNumber string) string {
	return fmt.Sprintf("%s|%s|%s|%s", h.SiteName, idNumber, u.ID.Hex(), u.Role)
}

// getOrCreate returns the user's card, issuing one on first access. A
// card whose QR payload or validity window drifted from current policy
// is silently resynced on read.
func (h *Handler) getOrCreate(r *http.Request, userID primitive.ObjectID) (*models.User, *models.IDCard, error) {
	ctx := r.Context()
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	card, err := h.Cards.GetByUser(ctx, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// First issue. The card number is allocated inside Create, so the
		// payload is patched in right after.
		card, err = h.Cards.Create(ctx, userID, "", models.CardValidityFor(u.Role))
		if err != nil {
			return nil, nil, err
		}
		_, _, actor, _ := authz.UserCtx(r)
		h.AuditLog.UserAction(ctx, r, audit.ActionIDCardGenerated, actor, userID, nil)
	} else if err != nil {
		return nil, nil, err
	}

	wantPayload := h.qrPayload(u, card.IDNumber)
	wantThru := card.ValidFrom.Add(models.CardValidityFor(u.Role))
	if card.QRPayload != wantPayload || !card.ValidThru.Equal(wantThru) {
		if err := h.Cards.Resync(ctx, card.ID, wantPayload, wantThru); err != nil {
			return nil, nil, err
		}
		card.QRPayload = wantPayload
		card.ValidThru = wantThru
	}
	return u, card, nil
}

// HandleGetOwn returns the signed-in user's card, issuing it on first use.
func (h *Handler) HandleGetOwn(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		h.Resp.Fail(w, r, httperr.Unauthorized("authentication required"))
		return
	}
	_, card, err := h.getOrCreate(r, userID)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OK(w, card)
}

// HandleDownloadOwn streams the signed-in user's card as a PDF and bumps
// the download counter.
func (h *Handler) HandleDownloadOwn(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		h.Resp.Fail(w, r, httperr.Unauthorized("authentication required"))
		return
	}
	h.servePDF(w, r, userID)
}

// HandleGet returns any user's card for card managers.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := shared.URLObjectID(r, "userID")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	_, card, err := h.getOrCreate(r, userID)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OK(w, card)
}

// HandleDownload streams any user's card as a PDF for card managers.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	userID, err := shared.URLObjectID(r, "userID")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.servePDF(w, r, userID)
}

// HandleRegenerate re-issues a user's card with a fresh validity window.
// The card number is stable for the life of the account.
func (h *Handler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	userID, err := shared.URLObjectID(r, "userID")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	u, card, err := h.getOrCreate(r, userID)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	card, err = h.Cards.Regenerate(r.Context(), card.ID, h.qrPayload(u, card.IDNumber), models.CardValidityFor(u.Role))
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.UserAction(r.Context(), r, audit.ActionIDCardGenerated, actor, userID,
		map[string]string{"regenerated": "true"})
	respond.OKMessage(w, "id card regenerated", card)
}

func (h *Handler) servePDF(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID) {
	u, card, err := h.getOrCreate(r, userID)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if time.Now().After(card.ValidThru) {
		h.Resp.Fail(w, r, httperr.Conflict("id card has expired, regenerate it first"))
		return
	}

	pdf, err := renderPDF(u, card, h.SiteName)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	if err := h.Cards.CountDownload(r.Context(), card.ID); err != nil {
		h.Log.Warn("count id card download failed", zap.Error(err))
	}
	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.UserAction(r.Context(), r, audit.ActionIDCardDownloaded, actor, userID, nil)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "id-card-"+card.IDNumber+".pdf"))
	_, _ = w.Write(pdf)
}
