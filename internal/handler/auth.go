package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/RomanK74/api-yamdb/internal/auth"
)

// AuthExchange is the sign-in flow the handler drives.
// *service.AuthService satisfies it.
type AuthExchange interface {
	RequestCode(ctx context.Context, email string) (string, error)
	RedeemCode(ctx context.Context, email, code string) (auth.Pair, error)
	RefreshToken(ctx context.Context, refresh string) (string, error)
}

// AuthHandler serves the passwordless sign-in endpoints.
//
//   - HandleRequestCode → POST /auth/email          {"email"}                      → {"email"}
//   - HandleToken       → POST /auth/token          {"email","confirmation_code"}  → {"token","refresh"}
//   - HandleRefresh     → POST /auth/token/refresh  {"refresh"}                    → {"token"}
type AuthHandler struct {
	exchange AuthExchange
	logger   *slog.Logger
}

func NewAuthHandler(exchange AuthExchange, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{exchange: exchange, logger: logger}
}

type emailRequest struct {
	Email string `json:"email"`
}

type tokenRequest struct {
	Email            string `json:"email"`
	ConfirmationCode string `json:"confirmation_code"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type tokenResponse struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh,omitempty"`
}

func (h *AuthHandler) HandleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	email, err := h.exchange.RequestCode(r.Context(), req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emailRequest{Email: email})
}

func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	pair, err := h.exchange.RedeemCode(r.Context(), req.Email, req.ConfirmationCode)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: pair.Access, Refresh: pair.Refresh})
}

func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	access, err := h.exchange.RefreshToken(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: access})
}
