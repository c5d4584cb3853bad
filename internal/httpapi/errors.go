package httpapi

import (
	"encoding/json"
	"net/http"
)

// APIError is the structured, machine-readable shape of every non-2xx
// response, grounded on the teacher pack's RequestError{StatusCode,Err}.
// Kind is the error class name from §7 ("ValidationError", "AuthError", …)
// and is what actually travels on the wire under the "error" field.
type APIError struct {
	Status  int    `json:"-"`
	Kind    string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

func newAPIError(status int, kind, message string) *APIError {
	return &APIError{Status: status, Kind: kind, Message: message}
}

var (
	errBadRequest       = newAPIError(http.StatusBadRequest, "ValidationError", "invalid request")
	errNotFound         = newAPIError(http.StatusNotFound, "NotFound", "not found")
	errGone             = newAPIError(http.StatusGone, "Gone", "no longer available")
	errConflict         = newAPIError(http.StatusConflict, "Conflict", "conflict")
	errForbidden        = newAPIError(http.StatusForbidden, "AuthError", "forbidden")
	errMethodNotAllowed = newAPIError(http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	errInternal         = newAPIError(http.StatusInternalServerError, "Internal", "internal server error")
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err *APIError) {
	writeJSON(w, err.Status, err)
}

func withMessage(base *APIError, message string) *APIError {
	return &APIError{Status: base.Status, Kind: base.Kind, Message: message}
}
