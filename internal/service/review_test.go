package service

import (
	"context"
	"errors"
	"testing"

	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/model"
	"github.com/RomanK74/api-yamdb/internal/repository"
)

type reviewFixture struct {
	reviews   *ReviewService
	comments  *CommentService
	titles    *TitleService
	author    *model.User
	other     *model.User
	moderator *model.User
	titleID   int64
}

func newReviewFixture(t *testing.T) reviewFixture {
	t.Helper()
	db := newTestDB(t)
	titles := NewTitleService(db.Titles(), testLogger())
	admin := createUser(t, db, "admin", model.RoleAdmin)

	title, err := titles.Create(context.Background(), admin, TitleInput{Name: strPtr("Dune"), Year: intPtr(1965)})
	if err != nil {
		t.Fatalf("create title: %v", err)
	}

	return reviewFixture{
		reviews:   NewReviewService(db.Reviews(), db.Titles(), testLogger()),
		comments:  NewCommentService(db.Comments(), db.Reviews(), testLogger()),
		titles:    titles,
		author:    createUser(t, db, "alice", model.RoleUser),
		other:     createUser(t, db, "bob", model.RoleUser),
		moderator: createUser(t, db, "mod", model.RoleModerator),
		titleID:   title.ID,
	}
}

// ===== REVIEWS =====

func TestReviewCreate_DefaultScore(t *testing.T) {
	f := newReviewFixture(t)
	review, err := f.reviews.Create(context.Background(), f.author, f.titleID, ReviewInput{Text: strPtr("great")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if review.Score != model.DefaultScore {
		t.Errorf("Score = %d, want %d", review.Score, model.DefaultScore)
	}
	if review.Author != "alice" {
		t.Errorf("Author = %q, want alice", review.Author)
	}
	if review.PubDate.IsZero() {
		t.Error("PubDate not set")
	}
}

func TestReviewCreate_Anonymous(t *testing.T) {
	f := newReviewFixture(t)
	_, err := f.reviews.Create(context.Background(), nil, f.titleID, ReviewInput{Text: strPtr("great")})
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestReviewCreate_Validation(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	for _, score := range []int{0, 11, -3} {
		_, err := f.reviews.Create(ctx, f.author, f.titleID, ReviewInput{Text: strPtr("x"), Score: intPtr(score)})
		if got := fieldMessages(t, err, "score"); !hasMessage(got, msgScore) {
			t.Errorf("score %d: messages = %v", score, got)
		}
	}

	_, err := f.reviews.Create(ctx, f.author, f.titleID, ReviewInput{Score: intPtr(5)})
	if got := fieldMessages(t, err, "text"); !hasMessage(got, msgRequired) {
		t.Errorf("text messages = %v", got)
	}
}

func TestReviewCreate_Duplicate(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	if _, err := f.reviews.Create(ctx, f.author, f.titleID, ReviewInput{Text: strPtr("first"), Score: intPtr(7)}); err != nil {
		t.Fatalf("first review: %v", err)
	}
	_, err := f.reviews.Create(ctx, f.author, f.titleID, ReviewInput{Text: strPtr("second")})
	got := fieldMessages(t, err, apperror.NonFieldErrors)
	if !hasMessage(got, repository.DuplicateReviewMessage) {
		t.Errorf("non_field_errors = %v", got)
	}

	if _, err := f.reviews.Create(ctx, f.other, f.titleID, ReviewInput{Text: strPtr("mine")}); err != nil {
		t.Errorf("another author should be able to review: %v", err)
	}
}

func TestReviewCreate_MissingTitle(t *testing.T) {
	f := newReviewFixture(t)
	_, err := f.reviews.Create(context.Background(), f.author, 999, ReviewInput{Text: strPtr("x")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.reviews.List(context.Background(), 999, repository.ListOptions{}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("List: expected ErrNotFound, got %v", err)
	}
}

func TestReviewUpdate_Permissions(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.reviews.Create(ctx, f.author, f.titleID, ReviewInput{Text: strPtr("ok"), Score: intPtr(5)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.reviews.Update(ctx, f.other, f.titleID, review.ID, ReviewInput{Score: intPtr(1)}); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("other user: expected ErrForbidden, got %v", err)
	}
	if _, err := f.reviews.Update(ctx, nil, f.titleID, review.ID, ReviewInput{Score: intPtr(1)}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("anonymous: expected ErrUnauthorized, got %v", err)
	}

	updated, err := f.reviews.Update(ctx, f.author, f.titleID, review.ID, ReviewInput{Score: intPtr(8)})
	if err != nil {
		t.Fatalf("author update: %v", err)
	}
	if updated.Score != 8 || updated.Text != "ok" {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.PubDate.Equal(review.PubDate) {
		t.Errorf("PubDate changed from %v to %v", review.PubDate, updated.PubDate)
	}

	if _, err := f.reviews.Update(ctx, f.moderator, f.titleID, review.ID, ReviewInput{Text: strPtr("moderated")}); err != nil {
		t.Errorf("moderator update: %v", err)
	}

	if _, err := f.reviews.Update(ctx, f.author, f.titleID, review.ID, ReviewInput{Score: intPtr(11)}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("bad score: expected ErrValidation, got %v", err)
	}
}

func TestReviewDelete(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.reviews.Create(ctx, f.author, f.titleID, ReviewInput{Text: strPtr("ok")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := f.reviews.Delete(ctx, f.other, f.titleID, review.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("other user: expected ErrForbidden, got %v", err)
	}
	if err := f.reviews.Delete(ctx, f.moderator, f.titleID, review.ID); err != nil {
		t.Fatalf("moderator delete: %v", err)
	}
	if _, err := f.reviews.Get(ctx, f.titleID, review.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get after delete: expected ErrNotFound, got %v", err)
	}
}

func TestReviewRating(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	if _, err := f.reviews.Create(ctx, f.author, f.titleID, ReviewInput{Text: strPtr("a"), Score: intPtr(4)}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.reviews.Create(ctx, f.other, f.titleID, ReviewInput{Text: strPtr("b"), Score: intPtr(9)}); err != nil {
		t.Fatal(err)
	}

	title, err := f.titles.Get(ctx, f.titleID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if title.Rating == nil || *title.Rating != 6.5 {
		t.Errorf("Rating = %v, want 6.5", title.Rating)
	}
}

// ===== COMMENTS =====

func TestCommentLifecycle(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.reviews.Create(ctx, f.author, f.titleID, ReviewInput{Text: strPtr("ok")})
	if err != nil {
		t.Fatalf("Create review: %v", err)
	}

	comment, err := f.comments.Create(ctx, f.other, f.titleID, review.ID, CommentInput{Text: strPtr("agreed")})
	if err != nil {
		t.Fatalf("Create comment: %v", err)
	}
	if comment.Author != "bob" {
		t.Errorf("Author = %q, want bob", comment.Author)
	}

	page, err := f.comments.List(ctx, f.titleID, review.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Count != 1 {
		t.Errorf("Count = %d, want 1", page.Count)
	}

	if _, err := f.comments.Update(ctx, f.author, f.titleID, review.ID, comment.ID, CommentInput{Text: strPtr("no")}); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-author update: expected ErrForbidden, got %v", err)
	}
	updated, err := f.comments.Update(ctx, f.other, f.titleID, review.ID, comment.ID, CommentInput{Text: strPtr("strongly agreed")})
	if err != nil {
		t.Fatalf("author update: %v", err)
	}
	if updated.Text != "strongly agreed" {
		t.Errorf("Text = %q", updated.Text)
	}

	if err := f.comments.Delete(ctx, f.moderator, f.titleID, review.ID, comment.ID); err != nil {
		t.Fatalf("moderator delete: %v", err)
	}
	if _, err := f.comments.Get(ctx, f.titleID, review.ID, comment.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get after delete: expected ErrNotFound, got %v", err)
	}
}

func TestCommentCreate_Errors(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.reviews.Create(ctx, f.author, f.titleID, ReviewInput{Text: strPtr("ok")})
	if err != nil {
		t.Fatalf("Create review: %v", err)
	}

	if _, err := f.comments.Create(ctx, nil, f.titleID, review.ID, CommentInput{Text: strPtr("x")}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("anonymous: expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.comments.Create(ctx, f.other, f.titleID, review.ID, CommentInput{Text: strPtr("")}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank text: expected ErrValidation, got %v", err)
	}
	// review exists, but not under this title
	if _, err := f.comments.Create(ctx, f.other, f.titleID+1, review.ID, CommentInput{Text: strPtr("x")}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("wrong title: expected ErrNotFound, got %v", err)
	}
	if _, err := f.comments.List(ctx, f.titleID, review.ID+1, repository.ListOptions{}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("List unknown review: expected ErrNotFound, got %v", err)
	}
}
