package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/VinMeld/go-send/internal/sessions"
)

type sessionView struct {
	ID           string `json:"id"`
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	TargetOrigin string `json:"targetOrigin,omitempty"`
	TargetPath   string `json:"targetPath,omitempty"`
	CreatedAt    string `json:"createdAt"`
	DurationSec  int64  `json:"durationSec"`
	ExpiresAt    string `json:"expiresAt"`
	AcceptedAt   string `json:"acceptedAt,omitempty"`
	RevokedAt    string `json:"revokedAt,omitempty"`
	RestoredAt   string `json:"restoredAt,omitempty"`
}

func (a *App) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sender := r.URL.Query().Get("sender")
	authSecret := r.URL.Query().Get("authSecret")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := a.Sessions.List(r.Context(), sender, authSecret, limit)
	switch {
	case errors.Is(err, sessions.ErrInvalidUser):
		writeError(w, errBadRequest)
	case errors.Is(err, sessions.ErrForbidden):
		writeError(w, errForbidden)
	case err != nil:
		writeError(w, errInternal)
	default:
		views := make([]sessionView, 0, len(list))
		for _, s := range list {
			views = append(views, sessionView{
				ID: s.ID, Sender: s.Sender, Recipient: s.Recipient,
				TargetOrigin: s.TargetOrigin, TargetPath: s.TargetPath,
				CreatedAt: s.CreatedAt, DurationSec: s.DurationSec, ExpiresAt: s.ExpiresAt,
				AcceptedAt: s.AcceptedAt, RevokedAt: s.RevokedAt, RestoredAt: s.RestoredAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": views})
	}
}

type ownerRequest struct {
	Username   string `json:"username"`
	AuthSecret string `json:"authSecret"`
}

func decodeOwnerRequest(r *http.Request) (ownerRequest, error) {
	var req ownerRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}

func sessionErrStatus(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessions.ErrInvalidUser):
		writeError(w, errBadRequest)
	case errors.Is(err, sessions.ErrForbidden):
		writeError(w, errForbidden)
	case errors.Is(err, sessions.ErrNotFound):
		writeError(w, errNotFound)
	case errors.Is(err, sessions.ErrExpired):
		writeError(w, errGone)
	case errors.Is(err, sessions.ErrMissingPayload):
		writeError(w, errConflict)
	default:
		writeError(w, errInternal)
	}
}

func (a *App) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := decodeOwnerRequest(r)
	if err != nil {
		writeError(w, withMessage(errBadRequest, "invalid JSON body"))
		return
	}
	if err := a.Sessions.Revoke(r.Context(), id, req.Username, req.AuthSecret); err != nil {
		sessionErrStatus(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *App) handleRestoreSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := decodeOwnerRequest(r)
	if err != nil {
		writeError(w, withMessage(errBadRequest, "invalid JSON body"))
		return
	}
	if err := a.Sessions.Restore(r.Context(), id, req.Username, req.AuthSecret); err != nil {
		sessionErrStatus(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *App) handleSessionAccepted(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Sessions.Accepted(r.Context(), id); err != nil {
		sessionErrStatus(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *App) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := decodeOwnerRequest(r)
	if err != nil {
		writeError(w, withMessage(errBadRequest, "invalid JSON body"))
		return
	}
	if err := a.Sessions.Delete(r.Context(), id, req.Username, req.AuthSecret); err != nil {
		sessionErrStatus(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
