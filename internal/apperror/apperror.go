// Package apperror defines the error taxonomy shared by the service and HTTP layers.
//
// Services return these errors; handlers map them to status codes with errors.Is.
// Anything that is not an *AppError is treated as an internal failure.
package apperror

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidCode  = errors.New("invalid confirmation code")
	ErrUnavailable  = errors.New("unavailable")
)

// NonFieldErrors is the field key used for errors that are not tied to one input field.
const NonFieldErrors = "non_field_errors"

type AppError struct {
	Err     error               // actual error
	Message string              // Human-readable error message
	Field   string              // Optional: field causing the error
	Fields  map[string][]string // Optional: every field error, for validation failures
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  map[string][]string{field: {message}},
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// FieldConflict is a uniqueness violation on one input field, such as a
// taken username. Services usually surface it as a validation error on Field.
func FieldConflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

// Unauthorized returns an AppError for requests without a usable credential.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// InvalidCode is the single outcome of a failed code redemption. Wrong and
// expired codes are reported identically.
func InvalidCode() *AppError {
	return &AppError{
		Err:     ErrInvalidCode,
		Message: "confirmation code is invalid",
	}
}

// Unavailable wraps a failure of an external collaborator (mail delivery).
func Unavailable(message string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUnavailable, cause),
		Message: message,
	}
}

// FieldErrors collects validation messages keyed by input field.
//
//	errs := apperror.FieldErrors{}
//	errs.Add("name", "This field is required.")
//	return errs.Err()
type FieldErrors map[string][]string

// Add records a message for field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Err returns nil when nothing was recorded, otherwise a validation AppError
// whose Message is the first message of the alphabetically first field.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}

	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	return &AppError{
		Err:     ErrValidation,
		Message: f[fields[0]][0],
		Field:   fields[0],
		Fields:  map[string][]string(f),
	}
}
