package idcard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/combinefoundation/portal/internal/app/store/idcards"
	userstore "github.com/combinefoundation/portal/internal/app/store/users"
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/domain/models"
	"github.com/combinefoundation/portal/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cards := idcards.New(db)
	if err := cards.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	return &Handler{
		Log:      zap.NewNop(),
		Resp:     &respond.Writer{},
		Cards:    cards,
		Users:    userstore.New(db),
		SiteName: "Combine Foundation",
	}
}

func getOwnAs(h *Handler, u models.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/idcard", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	})
	rec := httptest.NewRecorder()
	h.HandleGetOwn(rec, req)
	return rec
}

func TestHandleGetOwn_IssuesOnFirstAccess(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	u, err := h.Users.Create(ctx, models.User{
		FullName: "Sana Tariq",
		Email:    "sana@example.com",
		Role:     models.RoleVolunteer,
	})
	if err != nil {
		t.Fatalf("Create user failed: %v", err)
	}

	if rec := getOwnAs(h, u); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	card, err := h.Cards.GetByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByUser after first access failed: %v", err)
	}
	if card.QRPayload != h.qrPayload(&u, card.IDNumber) {
		t.Errorf("qr payload = %q", card.QRPayload)
	}
	if got := card.ValidThru.Sub(card.ValidFrom); got != models.CardValidityFor(u.Role) {
		t.Errorf("validity window = %v, want %v", got, models.CardValidityFor(u.Role))
	}
}

func TestHandleGetOwn_HealsDriftedCard(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	u, err := h.Users.Create(ctx, models.User{
		FullName: "Sana Tariq",
		Email:    "sana2@example.com",
		Role:     models.RoleVolunteer,
	})
	if err != nil {
		t.Fatalf("Create user failed: %v", err)
	}

	if rec := getOwnAs(h, u); rec.Code != http.StatusOK {
		t.Fatalf("first access status = %d", rec.Code)
	}
	card, err := h.Cards.GetByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}

	// A card issued under an older validity policy or payload format.
	staleThru := card.ValidFrom.Add(time.Hour)
	if err := h.Cards.Resync(ctx, card.ID, "stale-payload", staleThru); err != nil {
		t.Fatalf("seeding drifted card failed: %v", err)
	}

	if rec := getOwnAs(h, u); rec.Code != http.StatusOK {
		t.Fatalf("second access status = %d", rec.Code)
	}

	healed, err := h.Cards.GetByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByUser after heal failed: %v", err)
	}
	if want := h.qrPayload(&u, card.IDNumber); healed.QRPayload != want {
		t.Errorf("qr payload = %q, want %q", healed.QRPayload, want)
	}
	if got, want := healed.ValidThru.Sub(healed.ValidFrom), models.CardValidityFor(u.Role); got != want {
		t.Errorf("validity window after heal = %v, want %v", got, want)
	}
	if healed.IDNumber != card.IDNumber {
		t.Errorf("card number changed on heal: %s vs %s", healed.IDNumber, card.IDNumber)
	}
}
