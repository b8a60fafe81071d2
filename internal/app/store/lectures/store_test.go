package lectures_test

import (
	"context"
	"errors"
	"testing"

	"github.com/combinefoundation/portal/internal/app/store/lectures"
	"github.com/combinefoundation/portal/internal/domain/models"
	"github.com/combinefoundation/portal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newStore(t *testing.T) *lectures.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	s := lectures.New(db)
	if err := s.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	return s
}

func createLecture(t *testing.T, s *lectures.Store, title string, public bool) models.Lecture {
	t.Helper()
	l, err := s.Create(context.Background(), models.Lecture{
		Title:     title,
		WatchURL:  "https://videos.example.org/" + title,
		IsPublic:  public,
		CreatedBy: primitive.NewObjectID(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return l
}

func TestGetAndCountView_Public(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	l := createLecture(t, s, "intro", true)

	got, err := s.GetAndCountView(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetAndCountView failed: %v", err)
	}
	if got.Views != 1 {
		t.Errorf("views = %d, want 1", got.Views)
	}
	got, err = s.GetAndCountView(ctx, l.ID)
	if err != nil {
		t.Fatalf("second GetAndCountView failed: %v", err)
	}
	if got.Views != 2 {
		t.Errorf("views = %d, want 2", got.Views)
	}
}

func TestGetAndCountView_PrivateNotCounted(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	l := createLecture(t, s, "draft", false)

	if _, err := s.GetAndCountView(ctx, l.ID); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("private lecture: got %v, want ErrNoDocuments", err)
	}

	// The rejected read must not have touched the counter.
	got, err := s.GetByID(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Views != 0 {
		t.Errorf("views = %d, want 0 after a rejected read", got.Views)
	}
}
