package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/RomanK74/api-yamdb/internal/access"
	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/auth"
	"github.com/RomanK74/api-yamdb/internal/repository"
	"github.com/RomanK74/api-yamdb/internal/service"
)

// TermHandler serves one classifier collection, /categories or /genres.
type TermHandler struct {
	terms  *service.TermService
	logger *slog.Logger
}

func NewTermHandler(terms *service.TermService, logger *slog.Logger) *TermHandler {
	return &TermHandler{terms: terms, logger: logger}
}

type termRequest struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

// HandleList serves GET /{collection}?search=&limit=&offset=&ordering=
func (h *TermHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	page, err := h.terms.List(r.Context(), r.URL.Query().Get("search"), opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(page))
}

// HandleCreate serves POST /{collection}. Admin only.
func (h *TermHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.ActionCreate, h.terms.Resource()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req termRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	term, err := h.terms.Create(r.Context(), auth.UserFromContext(r.Context()),
		service.TermInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, term)
}

// HandleDelete serves DELETE /{collection}/{slug}. Admin only.
func (h *TermHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.terms.Delete(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TitleHandler serves /titles.
//
// READ vs WRITE SHAPE:
// Responses nest full genre and category objects plus the computed rating.
// Requests reference genres and the category by slug:
//
//	{"name": "Dune", "year": 1965, "genre": ["scifi"], "category": "books"}
type TitleHandler struct {
	titles *service.TitleService
	logger *slog.Logger
}

func NewTitleHandler(titles *service.TitleService, logger *slog.Logger) *TitleHandler {
	return &TitleHandler{titles: titles, logger: logger}
}

type titleRequest struct {
	Name        *string      `json:"name"`
	Year        *int         `json:"year"`
	Description *string      `json:"description"`
	Genres      *[]string    `json:"genre"`
	Category    nullableSlug `json:"category"`
}

func (req titleRequest) input() service.TitleInput {
	return service.TitleInput{
		Name:          req.Name,
		Year:          req.Year,
		Description:   req.Description,
		Category:      req.Category.Value,
		Genres:        req.Genres,
		ClearCategory: req.Category.Set && req.Category.Value == nil,
	}
}

// nullableSlug tells an explicit null ("clear it") from an absent field
// ("keep it"). encoding/json only calls UnmarshalJSON when the key is present.
type nullableSlug struct {
	Set   bool
	Value *string
}

func (n *nullableSlug) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var slug string
	if err := json.Unmarshal(data, &slug); err != nil {
		return err
	}
	n.Value = &slug
	return nil
}

// HandleList serves GET /titles?genre=&category=&name=&year=
func (h *TitleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	filter := repository.TitleFilter{
		Genre:    q.Get("genre"),
		Category: q.Get("category"),
		Name:     q.Get("name"),
	}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, h.logger, apperror.ValidationFailed("year", msgInteger))
			return
		}
		filter.Year = &year
	}

	page, err := h.titles.List(r.Context(), filter, opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(page))
}

func (h *TitleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "titleID", "title")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	title, err := h.titles.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, title)
}

func (h *TitleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.ActionCreate, access.ResourceTitle); err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req titleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	title, err := h.titles.Create(r.Context(), auth.UserFromContext(r.Context()), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, title)
}

// HandleUpdate serves PATCH /titles/{id}. Omitted fields keep their value.
func (h *TitleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.ActionUpdate, access.ResourceTitle); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "titleID", "title")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req titleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	title, err := h.titles.Update(r.Context(), auth.UserFromContext(r.Context()), id, req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, title)
}

func (h *TitleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "titleID", "title")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.titles.Delete(r.Context(), auth.UserFromContext(r.Context()), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
