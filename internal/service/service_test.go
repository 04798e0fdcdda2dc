package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/model"
	"github.com/RomanK74/api-yamdb/internal/repository"
	"github.com/RomanK74/api-yamdb/internal/repository/sqlite"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sqlite.DB, username string, role model.Role) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@example.com", Role: role}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// fieldMessages returns the validation messages recorded for field, failing
// the test when err is not a validation error.
func fieldMessages(t *testing.T, err error, field string) []string {
	t.Helper()
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T", err)
	}
	return appErr.Fields[field]
}

func hasMessage(msgs []string, want string) bool {
	for _, m := range msgs {
		if m == want {
			return true
		}
	}
	return false
}

// ===== SHARED VALIDATORS =====

func TestCheckText(t *testing.T) {
	tests := []struct {
		name  string
		value *string
		want  string
	}{
		{"missing", nil, msgRequired},
		{"blank", strPtr("   "), msgBlank},
		{"too long", strPtr("abcdef"), msgMaxLength(5)},
		{"ok", strPtr("abcde"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := apperror.FieldErrors{}
			checkText(errs, "name", tt.value, 5)
			got := errs["name"]
			if tt.want == "" {
				if len(got) != 0 {
					t.Errorf("unexpected messages %v", got)
				}
				return
			}
			if !hasMessage(got, tt.want) {
				t.Errorf("messages = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckSlug(t *testing.T) {
	tests := []struct {
		slug  string
		valid bool
	}{
		{"sci-fi", true},
		{"Drama_2", true},
		{"", false},
		{"with space", false},
		{"ü", false},
		{"a-very-long-slug-that-goes-well-beyond-fifty-characters", false},
	}
	for _, tt := range tests {
		errs := apperror.FieldErrors{}
		checkSlug(errs, "slug", tt.slug)
		if got := len(errs) == 0; got != tt.valid {
			t.Errorf("checkSlug(%q) valid = %v, want %v", tt.slug, got, tt.valid)
		}
	}
}

func TestCheckListOptions(t *testing.T) {
	if err := checkListOptions(repository.TitleOrderings, repository.ListOptions{}); err != nil {
		t.Errorf("empty ordering: %v", err)
	}
	if err := checkListOptions(repository.TitleOrderings, repository.ListOptions{Ordering: "-year"}); err != nil {
		t.Errorf("-year: %v", err)
	}
	err := checkListOptions(repository.TitleOrderings, repository.ListOptions{Ordering: "rating"})
	if len(fieldMessages(t, err, "ordering")) != 1 {
		t.Error("expected one ordering message")
	}
}

func TestConflictAsValidation(t *testing.T) {
	err := conflictAsValidation(apperror.FieldConflict("slug", "genre with this slug already exists."))
	if got := fieldMessages(t, err, "slug"); !hasMessage(got, "genre with this slug already exists.") {
		t.Errorf("slug messages = %v", got)
	}

	plain := apperror.Conflict("review", "1")
	if got := conflictAsValidation(plain); got != plain {
		t.Errorf("conflict without field should pass through, got %v", got)
	}

	other := errors.New("boom")
	if got := conflictAsValidation(other); got != other {
		t.Errorf("non-conflict should pass through, got %v", got)
	}
}
