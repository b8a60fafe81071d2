package passwordreset_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/combinefoundation/portal/internal/app/store/passwordreset"
	"github.com/combinefoundation/portal/internal/testutil"
)

func newStore(t *testing.T) *passwordreset.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	s := passwordreset.New(db)
	if err := s.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	return s
}

func TestIssueVerifyConsume(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	pr, err := s.Issue(ctx, "User@Example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if pr.Email != "user@example.com" {
		t.Errorf("email = %q, want normalized", pr.Email)
	}
	if len(pr.Code) != 6 {
		t.Errorf("code = %q, want 6 digits", pr.Code)
	}

	// Verify does not consume; it can run more than once.
	if err := s.Verify(ctx, "user@example.com", pr.Code); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if err := s.Verify(ctx, "user@example.com", pr.Code); err != nil {
		t.Fatalf("second Verify failed: %v", err)
	}

	if err := s.Consume(ctx, "user@example.com", pr.Code); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	// A consumed code is dead for both paths.
	if err := s.Verify(ctx, "user@example.com", pr.Code); !errors.Is(err, passwordreset.ErrCodeInvalid) {
		t.Errorf("Verify after Consume: got %v, want ErrCodeInvalid", err)
	}
	if err := s.Consume(ctx, "user@example.com", pr.Code); !errors.Is(err, passwordreset.ErrCodeInvalid) {
		t.Errorf("replayed Consume: got %v, want ErrCodeInvalid", err)
	}
}

func TestVerify_WrongCode(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	pr, err := s.Issue(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	wrong := "000000"
	if wrong == pr.Code {
		wrong = "000001"
	}
	if err := s.Verify(ctx, "user@example.com", wrong); !errors.Is(err, passwordreset.ErrCodeInvalid) {
		t.Errorf("wrong code: got %v, want ErrCodeInvalid", err)
	}
	if err := s.Verify(ctx, "other@example.com", pr.Code); !errors.Is(err, passwordreset.ErrCodeInvalid) {
		t.Errorf("wrong email: got %v, want ErrCodeInvalid", err)
	}
}

func TestIssue_InvalidatesPriorCodes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first, err := s.Issue(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("first Issue failed: %v", err)
	}
	second, err := s.Issue(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("second Issue failed: %v", err)
	}

	if err := s.Verify(ctx, "user@example.com", first.Code); !errors.Is(err, passwordreset.ErrCodeInvalid) {
		t.Errorf("old code: got %v, want ErrCodeInvalid", err)
	}
	if err := s.Verify(ctx, "user@example.com", second.Code); err != nil {
		t.Errorf("fresh code: got %v, want nil", err)
	}
}

func TestExpiryBoundary(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	issued := time.Now()
	now := issued
	s.WithClock(func() time.Time { return now })

	pr, err := s.Issue(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// One second before expiry the code is still live.
	now = issued.Add(passwordreset.OTPTTL - time.Second)
	if err := s.Verify(ctx, "user@example.com", pr.Code); err != nil {
		t.Errorf("just before expiry: got %v, want nil", err)
	}

	// At the boundary the $gt comparison no longer matches.
	now = issued.Add(passwordreset.OTPTTL)
	if err := s.Verify(ctx, "user@example.com", pr.Code); !errors.Is(err, passwordreset.ErrCodeInvalid) {
		t.Errorf("at expiry: got %v, want ErrCodeInvalid", err)
	}
	if err := s.Consume(ctx, "user@example.com", pr.Code); !errors.Is(err, passwordreset.ErrCodeInvalid) {
		t.Errorf("consume at expiry: got %v, want ErrCodeInvalid", err)
	}
}
