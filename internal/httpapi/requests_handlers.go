package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/VinMeld/go-send/internal/requests"
)

type createRequestBody struct {
	Username    string `json:"username"`
	AuthSecret  string `json:"authSecret"`
	Origin      string `json:"origin"`
	URL         string `json:"url,omitempty"`
	TargetAdmin string `json:"targetAdmin"`
}

func (a *App) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, withMessage(errBadRequest, "invalid JSON body"))
		return
	}

	id, err := a.Requests.Create(r.Context(), requests.CreateRequest{
		Username:    req.Username,
		AuthSecret:  req.AuthSecret,
		Origin:      req.Origin,
		URL:         req.URL,
		TargetAdmin: req.TargetAdmin,
	})
	switch {
	case errors.Is(err, requests.ErrInvalidTargetAdmin):
		writeError(w, withMessage(errBadRequest, err.Error()))
	case errors.Is(err, requests.ErrInvalidRequester):
		writeError(w, withMessage(errBadRequest, err.Error()))
	case errors.Is(err, requests.ErrAdminNotAllowed):
		writeError(w, withMessage(errForbidden, "admin not allowed"))
	case errors.Is(err, requests.ErrForbidden):
		writeError(w, withMessage(errForbidden, "authSecret mismatch"))
	case err != nil:
		writeError(w, errInternal)
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

type accessRequestView struct {
	ID          string `json:"id"`
	Requester   string `json:"requester"`
	Origin      string `json:"origin"`
	URL         string `json:"url,omitempty"`
	CreatedAt   string `json:"createdAt"`
	TargetAdmin string `json:"targetAdmin,omitempty"`
}

func (a *App) handleRequestsPoll(w http.ResponseWriter, r *http.Request) {
	admin := r.URL.Query().Get("username")
	authSecret := r.URL.Query().Get("authSecret")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := a.Requests.Poll(r.Context(), admin, authSecret, limit)
	if errors.Is(err, requests.ErrInvalidRequester) {
		writeError(w, errBadRequest)
		return
	}
	if errors.Is(err, requests.ErrForbidden) {
		writeError(w, errForbidden)
		return
	}
	if err != nil {
		writeError(w, errInternal)
		return
	}
	views := make([]accessRequestView, 0, len(items))
	for _, it := range items {
		views = append(views, accessRequestView{
			ID: it.ID, Requester: it.Requester, Origin: it.Origin,
			URL: it.URL, CreatedAt: it.CreatedAt, TargetAdmin: it.TargetAdmin,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": views})
}

type requestsAckBody struct {
	Username   string   `json:"username"`
	AuthSecret string   `json:"authSecret"`
	IDs        []string `json:"ids"`
}

func (a *App) handleRequestsAck(w http.ResponseWriter, r *http.Request) {
	var req requestsAckBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, withMessage(errBadRequest, "invalid JSON body"))
		return
	}
	n, err := a.Requests.Ack(r.Context(), req.Username, req.AuthSecret, req.IDs)
	if errors.Is(err, requests.ErrInvalidRequester) {
		writeError(w, errBadRequest)
		return
	}
	if errors.Is(err, requests.ErrForbidden) {
		writeError(w, errForbidden)
		return
	}
	if err != nil {
		writeError(w, errInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "deleted": n})
}
