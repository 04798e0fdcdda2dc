package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so the API has one
// success shape per resource and one error shape for everything:
//
//	{"error": "validation_error", "message": "...", "fields": {"year": ["..."]}}
//
// "fields" is only present on validation errors.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/RomanK74/api-yamdb/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string              `json:"error"`            // Machine-readable error type (e.g., "not_found")
	Message string              `json:"message"`          // Human-readable description
	Fields  map[string][]string `json:"fields,omitempty"` // Per-field messages for validation errors
}

// pageResponse is the envelope of every list endpoint.
type pageResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set before the body: once Encode writes, later
// header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent, all we can do is log
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it.
//
// The service layer knows nothing about HTTP. errors.Is walks the wrap chain,
// so fmt.Errorf("creating title: %w", apperror.ValidationFailed(...)) still
// maps to 400.
//
// Anything that is not an *AppError is an internal failure: it is logged and
// the client gets a generic 500. Raw error text can carry SQL or file paths and
// never reaches the response.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, errorType := http.StatusInternalServerError, "internal_error"
	resp := ErrorResponse{Message: appErr.Message}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, errorType = http.StatusBadRequest, "validation_error"
		resp.Fields = appErr.Fields
	case errors.Is(err, apperror.ErrInvalidCode):
		status, errorType = http.StatusBadRequest, "invalid_code"
	case errors.Is(err, apperror.ErrNotFound):
		status, errorType = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, errorType = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, errorType = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrConflict):
		status, errorType = http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUnavailable):
		status, errorType = http.StatusServiceUnavailable, "unavailable"
		logger.Error("dependency unavailable", slog.String("error", err.Error()))
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	resp.Error = errorType
	writeJSON(w, status, resp)
}
