package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RomanK74/api-yamdb/internal/access"
	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/model"
	"github.com/RomanK74/api-yamdb/internal/repository"
	"github.com/RomanK74/api-yamdb/internal/repository/sqlite"
)

type catalogFixture struct {
	db         *sqlite.DB
	categories *TermService
	genres     *TermService
	titles     *TitleService
	admin      *model.User
	user       *model.User
}

func newCatalogFixture(t *testing.T) catalogFixture {
	t.Helper()
	db := newTestDB(t)
	titles := NewTitleService(db.Titles(), testLogger())
	titles.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	return catalogFixture{
		db:         db,
		categories: NewTermService(db.Categories(), access.ResourceCategory, testLogger()),
		genres:     NewTermService(db.Genres(), access.ResourceGenre, testLogger()),
		titles:     titles,
		admin:      createUser(t, db, "admin", model.RoleAdmin),
		user:       createUser(t, db, "alice", model.RoleUser),
	}
}

func (f catalogFixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, in := range []TermInput{
		{Name: strPtr("Books"), Slug: strPtr("books")},
		{Name: strPtr("Films"), Slug: strPtr("films")},
	} {
		if _, err := f.categories.Create(ctx, f.admin, in); err != nil {
			t.Fatalf("seed category: %v", err)
		}
	}
	for _, in := range []TermInput{
		{Name: strPtr("Drama"), Slug: strPtr("drama")},
		{Name: strPtr("Sci-Fi"), Slug: strPtr("scifi")},
	} {
		if _, err := f.genres.Create(ctx, f.admin, in); err != nil {
			t.Fatalf("seed genre: %v", err)
		}
	}
}

// ===== TERMS =====

func TestTermCreate_AdminOnly(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	in := TermInput{Name: strPtr("Drama"), Slug: strPtr("drama")}

	if _, err := f.genres.Create(ctx, nil, in); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("anonymous: expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.genres.Create(ctx, f.user, in); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("user: expected ErrForbidden, got %v", err)
	}

	genre, err := f.genres.Create(ctx, f.admin, in)
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if genre.Slug != "drama" || genre.Name != "Drama" {
		t.Errorf("created %+v", genre)
	}
}

func TestTermCreate_AccessBeforeValidation(t *testing.T) {
	f := newCatalogFixture(t)
	_, err := f.categories.Create(context.Background(), f.user, TermInput{})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("expected ErrForbidden for invalid input from non-admin, got %v", err)
	}
}

func TestTermCreate_Validation(t *testing.T) {
	f := newCatalogFixture(t)
	_, err := f.categories.Create(context.Background(), f.admin, TermInput{Slug: strPtr("bad slug")})

	if got := fieldMessages(t, err, "name"); !hasMessage(got, msgRequired) {
		t.Errorf("name messages = %v", got)
	}
	if got := fieldMessages(t, err, "slug"); !hasMessage(got, msgSlug) {
		t.Errorf("slug messages = %v", got)
	}
}

func TestTermCreate_DuplicateSlugIsValidationError(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	in := TermInput{Name: strPtr("Drama"), Slug: strPtr("drama")}

	if _, err := f.genres.Create(ctx, f.admin, in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := f.genres.Create(ctx, f.admin, TermInput{Name: strPtr("Other"), Slug: strPtr("drama")})
	if len(fieldMessages(t, err, "slug")) == 0 {
		t.Error("expected a slug message")
	}
}

func TestTermListAndDelete(t *testing.T) {
	f := newCatalogFixture(t)
	f.seed(t)
	ctx := context.Background()

	page, err := f.genres.List(ctx, "sci", repository.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Count != 1 || page.Results[0].Slug != "scifi" {
		t.Errorf("search sci = %+v", page)
	}

	if _, err := f.genres.List(ctx, "", repository.ListOptions{Ordering: "year"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("unknown ordering: expected ErrValidation, got %v", err)
	}

	if err := f.genres.Delete(ctx, f.user, "drama"); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("user delete: expected ErrForbidden, got %v", err)
	}
	if err := f.genres.Delete(ctx, f.admin, "drama"); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if err := f.genres.Delete(ctx, f.admin, "drama"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

// ===== TITLES =====

func TestTitleCreate(t *testing.T) {
	f := newCatalogFixture(t)
	f.seed(t)

	title, err := f.titles.Create(context.Background(), f.admin, TitleInput{
		Name:     strPtr("Dune"),
		Year:     intPtr(1965),
		Category: strPtr("books"),
		Genres:   &[]string{"scifi", "drama"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if title.Category == nil || title.Category.Slug != "books" {
		t.Errorf("category = %+v", title.Category)
	}
	if len(title.Genres) != 2 {
		t.Errorf("genres = %+v", title.Genres)
	}
	if title.Rating != nil {
		t.Errorf("rating = %v, want nil", *title.Rating)
	}
}

func TestTitleCreate_Validation(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	_, err := f.titles.Create(ctx, f.admin, TitleInput{})
	if got := fieldMessages(t, err, "name"); !hasMessage(got, msgRequired) {
		t.Errorf("name messages = %v", got)
	}
	if got := fieldMessages(t, err, "year"); !hasMessage(got, msgRequired) {
		t.Errorf("year messages = %v", got)
	}

	_, err = f.titles.Create(ctx, f.admin, TitleInput{Name: strPtr("Tomorrow"), Year: intPtr(2025)})
	if got := fieldMessages(t, err, "year"); !hasMessage(got, msgFuture) {
		t.Errorf("future year messages = %v", got)
	}

	if _, err := f.titles.Create(ctx, f.admin, TitleInput{Name: strPtr("Today"), Year: intPtr(2024)}); err != nil {
		t.Errorf("current year should be accepted: %v", err)
	}

	_, err = f.titles.Create(ctx, f.admin, TitleInput{Name: strPtr("Before time"), Year: intPtr(-5)})
	if got := fieldMessages(t, err, "year"); !hasMessage(got, msgNegative) {
		t.Errorf("negative year messages = %v", got)
	}
	if _, err := f.titles.Create(ctx, f.admin, TitleInput{Name: strPtr("Epoch"), Year: intPtr(0)}); err != nil {
		t.Errorf("year 0 should be accepted: %v", err)
	}

	_, err = f.titles.Create(ctx, f.admin, TitleInput{Name: strPtr("X"), Year: intPtr(2000), Category: strPtr("nope")})
	if got := fieldMessages(t, err, "category"); !hasMessage(got, "Object with slug=nope does not exist.") {
		t.Errorf("category messages = %v", got)
	}
}

func TestTitleCreate_Forbidden(t *testing.T) {
	f := newCatalogFixture(t)
	_, err := f.titles.Create(context.Background(), f.user, TitleInput{Name: strPtr("Dune"), Year: intPtr(1965)})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestTitleUpdate_Partial(t *testing.T) {
	f := newCatalogFixture(t)
	f.seed(t)
	ctx := context.Background()

	created, err := f.titles.Create(ctx, f.admin, TitleInput{
		Name:        strPtr("Dune"),
		Year:        intPtr(1965),
		Description: strPtr("desert planet"),
		Category:    strPtr("books"),
		Genres:      &[]string{"scifi"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := f.titles.Update(ctx, f.admin, created.ID, TitleInput{Year: intPtr(1966)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Year != 1966 || updated.Name != "Dune" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Description == nil || *updated.Description != "desert planet" {
		t.Errorf("description lost: %v", updated.Description)
	}
	if updated.Category == nil || updated.Category.Slug != "books" {
		t.Errorf("category lost: %+v", updated.Category)
	}
	if len(updated.Genres) != 1 || updated.Genres[0].Slug != "scifi" {
		t.Errorf("genres lost: %+v", updated.Genres)
	}

	updated, err = f.titles.Update(ctx, f.admin, created.ID, TitleInput{Category: strPtr("films"), Genres: &[]string{}})
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if updated.Category.Slug != "films" || len(updated.Genres) != 0 {
		t.Errorf("category/genres not replaced: %+v", updated)
	}

	updated, err = f.titles.Update(ctx, f.admin, created.ID, TitleInput{ClearCategory: true})
	if err != nil {
		t.Fatalf("clearing Update: %v", err)
	}
	if updated.Category != nil {
		t.Errorf("category not cleared: %+v", updated.Category)
	}
	if updated.Year != 1966 {
		t.Errorf("year changed while clearing category: %d", updated.Year)
	}

	if _, err := f.titles.Update(ctx, f.admin, created.ID, TitleInput{Year: intPtr(-1)}); err == nil {
		t.Error("negative year accepted on update")
	}
}

func TestTitleUpdate_Errors(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	created, err := f.titles.Create(ctx, f.admin, TitleInput{Name: strPtr("Dune"), Year: intPtr(1965)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.titles.Update(ctx, f.admin, 999, TitleInput{}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing title: expected ErrNotFound, got %v", err)
	}
	if _, err := f.titles.Update(ctx, f.user, created.ID, TitleInput{}); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("user: expected ErrForbidden, got %v", err)
	}
	_, err = f.titles.Update(ctx, f.admin, created.ID, TitleInput{Name: strPtr(" ")})
	if got := fieldMessages(t, err, "name"); !hasMessage(got, msgBlank) {
		t.Errorf("name messages = %v", got)
	}
}

func TestTitleListAndDelete(t *testing.T) {
	f := newCatalogFixture(t)
	f.seed(t)
	ctx := context.Background()

	for _, in := range []TitleInput{
		{Name: strPtr("Dune"), Year: intPtr(1965), Category: strPtr("books"), Genres: &[]string{"scifi"}},
		{Name: strPtr("Amadeus"), Year: intPtr(1984), Category: strPtr("films"), Genres: &[]string{"drama"}},
	} {
		if _, err := f.titles.Create(ctx, f.admin, in); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	page, err := f.titles.List(ctx, repository.TitleFilter{Genre: "scifi"}, repository.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Count != 1 || page.Results[0].Name != "Dune" {
		t.Errorf("genre filter = %+v", page)
	}

	if _, err := f.titles.List(ctx, repository.TitleFilter{}, repository.ListOptions{Ordering: "rating"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("bad ordering: expected ErrValidation, got %v", err)
	}

	id := page.Results[0].ID
	if err := f.titles.Delete(ctx, nil, id); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("anonymous delete: expected ErrUnauthorized, got %v", err)
	}
	if err := f.titles.Delete(ctx, f.admin, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.titles.Get(ctx, id); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get after delete: expected ErrNotFound, got %v", err)
	}
}
