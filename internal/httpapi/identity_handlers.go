package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/VinMeld/go-send/internal/identity"
)

type registerUserRequest struct {
	PublicKey  json.RawMessage `json:"publicKey"`
	AuthSecret string          `json:"authSecret"`
}

type userView struct {
	Username   string          `json:"username"`
	PublicKey  json.RawMessage `json:"publicKey"`
	OK         bool            `json:"ok,omitempty"`
	AuthSecret string          `json:"authSecret,omitempty"`
}

func (a *App) handleGetUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	u, err := a.Identity.Get(r.Context(), username)
	switch {
	case errors.Is(err, identity.ErrInvalidUsername):
		writeError(w, errBadRequest)
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, errNotFound)
	case err != nil:
		writeError(w, errInternal)
	default:
		writeJSON(w, http.StatusOK, userView{Username: u.Username, PublicKey: u.PublicKey})
	}
}

func (a *App) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, withMessage(errBadRequest, "invalid JSON body"))
		return
	}

	res, err := a.Identity.Register(r.Context(), username, req.PublicKey, req.AuthSecret)
	switch {
	case errors.Is(err, identity.ErrInvalidUsername):
		writeError(w, errBadRequest)
	case errors.Is(err, identity.ErrAuthMismatch):
		writeError(w, withMessage(errForbidden, "authSecret mismatch"))
	case err != nil:
		writeError(w, errInternal)
	default:
		writeJSON(w, http.StatusOK, userView{OK: true, Username: res.User.Username, AuthSecret: res.AuthSecret})
	}
}
