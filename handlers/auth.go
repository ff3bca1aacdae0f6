package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"notekeeper/models"
)

type IdentityService interface {
	Register(ctx context.Context, email, password string) (models.AccountSummary, error)
	Authenticate(ctx context.Context, email, password string) (models.LoginResult, error)
	VerifyToken(token string) (models.Identity, bool)
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthHandler struct {
	identity IdentityService
	logger   *slog.Logger
}

func NewAuthHandler(identity IdentityService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, logger: logger}
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	summary, err := h.identity.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
