// Package service contains the business rules of the API.
//
// Handler (HTTP layer)     → parses requests, writes responses
// Service (business layer) → checks access, validates, orchestrates
// Repository (data layer)  → reads/writes the database
//
// Every mutating method takes the acting user (nil for anonymous callers) and
// runs access.Check before it validates input or touches storage. Services
// depend on repository interfaces only; tests inject in-memory fakes or an
// in-memory SQLite database.
package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/repository"
)

const (
	MaxNameLength       = 200
	MaxSlugLength       = 50
	MaxUsernameLength   = 150
	MaxEmailLength      = 254
	MaxPersonNameLength = 150

	MinScore = 1
	MaxScore = 10
)

const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
	msgSlug     = "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	msgUsername = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	msgEmail    = "Enter a valid email address."
	msgScore    = "Score must be between 1 and 10."
	msgFuture   = "Cannot add a work from the future."
	msgNegative = "Ensure this value is greater than or equal to 0."
	msgMe       = `Username "me" is not allowed.`
)

var (
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

func msgMaxLength(n int) string {
	return fmt.Sprintf("Ensure this field has no more than %d characters.", n)
}

// checkText validates a required free-text field.
func checkText(errs apperror.FieldErrors, field string, value *string, maxLen int) {
	if value == nil {
		errs.Add(field, msgRequired)
		return
	}
	if strings.TrimSpace(*value) == "" {
		errs.Add(field, msgBlank)
		return
	}
	if maxLen > 0 && utf8.RuneCountInString(*value) > maxLen {
		errs.Add(field, msgMaxLength(maxLen))
	}
}

func checkSlug(errs apperror.FieldErrors, field, value string) {
	switch {
	case value == "":
		errs.Add(field, msgRequired)
	case utf8.RuneCountInString(value) > MaxSlugLength:
		errs.Add(field, msgMaxLength(MaxSlugLength))
	case !slugPattern.MatchString(value):
		errs.Add(field, msgSlug)
	}
}

func checkListOptions(allowed []string, opts repository.ListOptions) error {
	if _, ok := repository.ResolveOrdering(allowed, opts.Ordering); !ok {
		return apperror.ValidationFailed("ordering",
			fmt.Sprintf("Unknown ordering %q. Use one of: %s.", opts.Ordering, strings.Join(allowed, ", ")))
	}
	return nil
}

// conflictAsValidation turns a field-level uniqueness conflict from storage
// into a validation error on that field. Other errors pass through.
func conflictAsValidation(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrConflict) && appErr.Field != "" {
		return apperror.ValidationFailed(appErr.Field, appErr.Message)
	}
	return err
}
