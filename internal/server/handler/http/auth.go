// Package http provides the HTTP handlers and router of the sync server.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/models"
	"github.com/Quaternijkon/betterfly/internal/service"
)

// AuthService defines the authentication operations required by the AuthHandler.
type AuthService interface {
	SignIn(ctx context.Context, provider, login string) (models.User, error)
}

// AuthHandler handles sign-in requests.
type AuthHandler struct {
	AuthService AuthService
	Log         *zap.Logger
}

// SignInRequest is the JSON payload of POST /api/auth/signin.
type SignInRequest struct {
	Provider string `json:"provider"`
	Login    string `json:"login,omitempty"`
}

// SignIn issues a token for the requested provider.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.AuthService.SignIn(r.Context(), req.Provider, req.Login)
	switch {
	case errors.Is(err, service.ErrUnknownProvider), errors.Is(err, service.ErrInvalidLogin):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		logger(h.Log).Error("sign in", zap.String("provider", req.Provider), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"userId": user.ID,
		"token":  user.Token,
	})
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
