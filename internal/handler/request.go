package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/RomanK74/api-yamdb/internal/access"
	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/auth"
	"github.com/RomanK74/api-yamdb/internal/repository"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

const msgInteger = "A valid integer is required."

// authorize turns away callers who may not perform action on any object of
// resource. Write handlers call it before decodeJSON, so an anonymous request
// with a broken body is a 401, not a 400.
func authorize(r *http.Request, action access.Action, resource access.Resource) error {
	return access.CheckAny(auth.UserFromContext(r.Context()), action, resource)
}

// decodeJSON reads one JSON object from the request body into dst.
// Malformed bodies are validation errors, not 500s.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed(apperror.NonFieldErrors, "Request body is empty.")
		}
		return apperror.ValidationFailed(apperror.NonFieldErrors, fmt.Sprintf("JSON parse error - %s", err.Error()))
	}
	return nil
}

// pathID reads a numeric URL parameter. A malformed ID cannot name an
// existing object, so it is reported as not found.
func pathID(r *http.Request, param, resource string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound(resource, raw)
	}
	return id, nil
}

// listOptions reads ?limit=&offset=&ordering=.
func listOptions(r *http.Request) (repository.ListOptions, error) {
	q := r.URL.Query()
	errs := apperror.FieldErrors{}
	opts := repository.ListOptions{Ordering: q.Get("ordering")}

	for field, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		raw := q.Get(field)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs.Add(field, msgInteger)
			continue
		}
		*dst = n
	}

	return opts, errs.Err()
}

func newPage[T any](p repository.Page[T]) pageResponse[T] {
	if p.Results == nil {
		p.Results = []T{}
	}
	return pageResponse[T]{Count: p.Count, Results: p.Results}
}
