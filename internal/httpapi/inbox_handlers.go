package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/VinMeld/go-send/internal/config"
	"github.com/VinMeld/go-send/internal/inbox"
	"github.com/VinMeld/go-send/internal/metrics"
	"github.com/VinMeld/go-send/internal/models"
)

type createInboxRequest struct {
	Recipient string           `json:"recipient"`
	Cipher    string           `json:"cipher"`
	Alg       string           `json:"alg,omitempty"`
	Cmp       json.RawMessage  `json:"cmp,omitempty"`
	Meta      models.ShareMeta `json:"meta,omitempty"`
	TTLSec    int64            `json:"ttlSec,omitempty"`
}

type createInboxResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
}

func (a *App) handleCreateInboxItem(w http.ResponseWriter, r *http.Request) {
	var req createInboxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, withMessage(errBadRequest, "invalid JSON body"))
		return
	}

	res, err := a.Inbox.Create(r.Context(), inbox.CreateRequest{
		Recipient: req.Recipient,
		Cipher:    req.Cipher,
		Alg:       req.Alg,
		Cmp:       req.Cmp,
		Meta:      req.Meta,
		TTLSec:    req.TTLSec,
	})
	switch {
	case errors.Is(err, inbox.ErrInvalidRecipient), errors.Is(err, inbox.ErrEmptyCipher), errors.Is(err, inbox.ErrPayloadTooLarge):
		writeError(w, withMessage(errBadRequest, err.Error()))
	case errors.Is(err, inbox.ErrRecipientNotFound):
		writeError(w, errNotFound)
	case err != nil:
		writeError(w, errInternal)
	default:
		metrics.InboxEnqueued.WithLabelValues("share").Inc()
		writeJSON(w, http.StatusCreated, createInboxResponse{ID: res.ID, SessionID: res.SessionID})
	}
}

type inboxItemView struct {
	ID        string           `json:"id"`
	Cipher    string           `json:"cipher"`
	Alg       string           `json:"alg,omitempty"`
	Cmp       json.RawMessage  `json:"cmp,omitempty"`
	Meta      models.InboxMeta `json:"meta"`
	ExpiresAt string           `json:"expiresAt"`
}

func (a *App) handleInboxPoll(w http.ResponseWriter, r *http.Request) {
	recipient := r.URL.Query().Get("recipient")
	if recipient == "" {
		writeError(w, withMessage(errBadRequest, "recipient is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	limit = config.InboxPollLimit(limit)

	items, err := a.Inbox.Poll(r.Context(), recipient, limit)
	if err != nil {
		writeError(w, errInternal)
		return
	}
	views := make([]inboxItemView, 0, len(items))
	for _, it := range items {
		views = append(views, inboxItemView{ID: it.ID, Cipher: it.Cipher, Alg: it.Alg, Cmp: it.Cmp, Meta: it.Meta, ExpiresAt: it.ExpiresAt})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": views})
}

type ackRequest struct {
	Recipient string   `json:"recipient"`
	IDs       []string `json:"ids"`
}

func (a *App) handleInboxAck(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, withMessage(errBadRequest, "invalid JSON body"))
		return
	}
	if req.Recipient == "" {
		writeError(w, withMessage(errBadRequest, "recipient is required"))
		return
	}
	n, err := a.Inbox.Ack(r.Context(), req.Recipient, req.IDs)
	if err != nil {
		writeError(w, errInternal)
		return
	}
	metrics.InboxAcked.Add(float64(n))
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "deleted": n})
}
