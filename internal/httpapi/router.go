// Package httpapi wires the identity, share, inbox, session, and
// access-request services into a chi-routed HTTP surface, including CORS,
// rate limiting, structured logging, and Prometheus metrics — all
// generalized from the teacher's stdlib-mux handler into a chi router per
// spec.md §4.6 and §6.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VinMeld/go-send/internal/config"
	"github.com/VinMeld/go-send/internal/identity"
	"github.com/VinMeld/go-send/internal/inbox"
	"github.com/VinMeld/go-send/internal/requests"
	"github.com/VinMeld/go-send/internal/sessions"
	"github.com/VinMeld/go-send/internal/shares"
)

// App bundles every domain service the HTTP layer dispatches to.
type App struct {
	Identity *identity.Service
	Shares   *shares.Service
	Inbox    *inbox.Service
	Sessions *sessions.Service
	Requests *requests.Service
	Cfg      config.Config
	Log      *slog.Logger
}

// NewRouter builds the full HTTP surface.
func NewRouter(app *App) http.Handler {
	if app.Log == nil {
		app.Log = slog.Default()
	}

	limiters := newLimiterPool(20, 40)

	r := chi.NewRouter()
	r.Use(requestLogger(app.Log))
	r.Use(corsMiddleware(app.Cfg))
	r.Use(rateLimitMiddleware(limiters))

	r.Get("/healthz", handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/users/{username}", app.handleGetUser)
		r.Post("/users/{username}", app.handleRegisterUser)

		r.Post("/shares", app.handleCreateShare)
		r.Get("/shares/{token}", app.handleGetShare)
		r.Post("/shares/{token}/consume", app.handleConsumeShare)

		r.Post("/inbox", app.handleCreateInboxItem)
		r.Get("/inbox/poll", app.handleInboxPoll)
		r.Post("/inbox/ack", app.handleInboxAck)

		r.Get("/sessions", app.handleListSessions)
		r.Post("/sessions/{id}/revoke", app.handleRevokeSession)
		r.Post("/sessions/{id}/restore", app.handleRestoreSession)
		r.Post("/sessions/{id}/accepted", app.handleSessionAccepted)
		r.Post("/sessions/{id}/delete", app.handleDeleteSession)

		r.Post("/requests", app.handleCreateRequest)
		r.Get("/requests/poll", app.handleRequestsPoll)
		r.Post("/requests/ack", app.handleRequestsAck)
	})

	r.Get("/session/{token}", app.handleLandingPage)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) { writeError(w, errNotFound) })
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) { writeError(w, errMethodNotAllowed) })

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
