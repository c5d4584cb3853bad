package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/VinMeld/go-send/internal/config"
	"github.com/VinMeld/go-send/internal/metrics"
	"github.com/VinMeld/go-send/internal/models"
	"github.com/VinMeld/go-send/internal/shares"
)

type createShareRequest struct {
	Recipient string           `json:"recipient"`
	Cipher    string           `json:"cipher"`
	Alg       string           `json:"alg,omitempty"`
	Cmp       json.RawMessage  `json:"cmp,omitempty"`
	Meta      models.ShareMeta `json:"meta,omitempty"`
	TTLSec    int64            `json:"ttlSec,omitempty"`
}

type createShareResponse struct {
	Token     string `json:"token"`
	ShareURL  string `json:"shareUrl"`
	ExpiresAt string `json:"expiresAt"`
}

func (a *App) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, withMessage(errBadRequest, "invalid JSON body"))
		return
	}

	res, err := a.Shares.Create(r.Context(), shares.CreateRequest{
		Recipient: req.Recipient,
		Cipher:    req.Cipher,
		Alg:       req.Alg,
		Cmp:       req.Cmp,
		Meta:      req.Meta,
		TTLSec:    req.TTLSec,
	})
	switch {
	case errors.Is(err, shares.ErrInvalidRecipient), errors.Is(err, shares.ErrEmptyCipher), errors.Is(err, shares.ErrPayloadTooLarge):
		writeError(w, withMessage(errBadRequest, err.Error()))
	case errors.Is(err, shares.ErrRecipientNotFound):
		writeError(w, errNotFound)
	case err != nil:
		writeError(w, errInternal)
	default:
		metrics.SharesCreated.Inc()
		writeJSON(w, http.StatusCreated, createShareResponse{
			Token:     res.Token,
			ShareURL:  shareURL(a.Cfg, r, res.Token),
			ExpiresAt: res.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
}

func shareURL(cfg config.Config, r *http.Request, token string) string {
	base := cfg.BaseURL
	if base == "" {
		scheme := "https"
		if r.TLS == nil {
			scheme = "http"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/session/" + token
}

type shareView struct {
	Token  string           `json:"token"`
	Cipher string           `json:"cipher"`
	Alg    string           `json:"alg"`
	Cmp    json.RawMessage  `json:"cmp,omitempty"`
	Meta   models.ShareMeta `json:"meta"`
}

func (a *App) handleGetShare(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	view, err := a.Shares.Fetch(r.Context(), token)
	switch {
	case errors.Is(err, shares.ErrNotFound):
		writeError(w, errNotFound)
	case errors.Is(err, shares.ErrConsumed):
		writeError(w, errGone)
	case err != nil:
		writeError(w, errInternal)
	default:
		writeJSON(w, http.StatusOK, shareView{Token: view.Token, Cipher: view.Cipher, Alg: view.Alg, Cmp: view.Cmp, Meta: view.Meta})
	}
}

func (a *App) handleConsumeShare(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	err := a.Shares.Consume(r.Context(), token)
	switch {
	case errors.Is(err, shares.ErrNotFound):
		writeError(w, errNotFound)
	case errors.Is(err, shares.ErrConsumed):
		metrics.ShareConsumeConflicts.Inc()
		writeError(w, errGone)
	case err != nil:
		writeError(w, errInternal)
	default:
		metrics.SharesConsumed.Inc()
		w.WriteHeader(http.StatusNoContent)
	}
}
