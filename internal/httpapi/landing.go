package httpapi

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
)

var landingPageTmpl = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>go-send session</title></head>
<body>
<p>Session token hint: {{.}}&hellip;</p>
<p>This page is a navigational target for a browser extension; it carries no session data itself.</p>
</body>
</html>
`))

// handleLandingPage serves a static page whose only purpose is giving the
// browser extension something to intercept; the token itself is never
// inspected or validated here.
func (a *App) handleLandingPage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	hint := token
	if len(hint) > 8 {
		hint = hint[:8]
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = landingPageTmpl.Execute(w, hint)
}
