package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RomanK74/api-yamdb/internal/access"
	"github.com/RomanK74/api-yamdb/internal/auth"
	"github.com/RomanK74/api-yamdb/internal/service"
)

// UserHandler serves /users (admin) and /users/me (any signed-in user).
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type userRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role"`
}

func (req userRequest) input() service.UserInput {
	return service.UserInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      req.Role,
	}
}

// HandleList serves GET /users?search=
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	page, err := h.users.List(r.Context(), auth.UserFromContext(r.Context()), r.URL.Query().Get("search"), opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(page))
}

func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.ActionCreate, access.ResourceUser); err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Create(r.Context(), auth.UserFromContext(r.Context()), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.ActionUpdate, access.ResourceUser); err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Update(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "username"), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "username")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe serves GET /users/me.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateMe serves PATCH /users/me. A "role" in the body is ignored.
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.ActionUpdate, access.ResourceProfile); err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.UpdateMe(r.Context(), auth.UserFromContext(r.Context()), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
