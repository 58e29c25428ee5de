package handler

import (
	"net/http"

	"github.com/identity-api/internal/application/auth"
	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/transport/http/respond"
)

type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register creates an unverified identity and returns it with its first
// bearer token. Duplicate email or phone comes back as a conflict.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeValid(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	ident, token, err := h.svc.Register(r.Context(), req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, IdentityEnvelope{User: ident, Token: token})
}

// Login authenticates by email or phone plus password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeValid(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	ident, token, err := h.svc.Login(r.Context(), req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, IdentityEnvelope{User: ident, Token: token})
}
