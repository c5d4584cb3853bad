package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/VinMeld/go-send/internal/blob"
	"github.com/VinMeld/go-send/internal/config"
	"github.com/VinMeld/go-send/internal/coordinator"
	"github.com/VinMeld/go-send/internal/identity"
	"github.com/VinMeld/go-send/internal/inbox"
	"github.com/VinMeld/go-send/internal/requests"
	"github.com/VinMeld/go-send/internal/sessions"
	"github.com/VinMeld/go-send/internal/shares"
	"github.com/VinMeld/go-send/internal/store"
)

func newTestApp(t *testing.T) http.Handler {
	t.Helper()
	kv := store.NewMemKV(time.Minute)
	t.Cleanup(func() { _ = kv.Close() })
	blobs := blob.NewLocalStore(t.TempDir())
	coord := coordinator.New(time.Minute)
	t.Cleanup(coord.Close)
	cfg := config.Config{
		DefaultTTL:     600 * time.Second,
		MaxTTL:         3600 * time.Second,
		MaxPayload:     8 << 20,
		AllowedOrigins: []string{"https://example.com"},
		RequestTTL:     15 * time.Minute,
	}

	idSvc := identity.New(kv)
	shareSvc := shares.New(kv, blobs, coord, idSvc, cfg)
	inboxSvc := inbox.New(kv, blobs, idSvc, cfg)
	sessSvc := sessions.New(kv, inboxSvc, idSvc, cfg)
	reqSvc := requests.New(kv, idSvc, cfg)

	return NewRouter(&App{Identity: idSvc, Shares: shareSvc, Inbox: inboxSvc, Sessions: sessSvc, Requests: reqSvc, Cfg: cfg})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		r = httptest.NewRequest(method, path, bytes.NewReader(raw))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRegisterAndShareEndToEnd(t *testing.T) {
	h := newTestApp(t)

	w := doJSON(t, h, http.MethodPost, "/v1/users/bob", map[string]string{"publicKey": `"PUBK"`})
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodPost, "/v1/shares", map[string]interface{}{"recipient": "bob", "cipher": "Y2lwaA"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create share status = %d, body = %s", w.Code, w.Body.String())
	}
	var created struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	w = doJSON(t, h, http.MethodGet, "/v1/shares/"+created.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("fetch status = %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/v1/shares/"+created.Token+"/consume", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("consume status = %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/v1/shares/"+created.Token+"/consume", nil)
	if w.Code != http.StatusGone {
		t.Fatalf("second consume status = %d, want 410", w.Code)
	}
}

func TestCORSEchoesExactOrigin(t *testing.T) {
	h := newTestApp(t)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Allow-Origin = %q, want https://example.com", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	h := newTestApp(t)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty for unknown origin", got)
	}
}

func TestUnknownRouteReturns404JSON(t *testing.T) {
	h := newTestApp(t)
	w := doJSON(t, h, http.MethodGet, "/v1/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestWrongMethodReturns405(t *testing.T) {
	h := newTestApp(t)
	w := doJSON(t, h, http.MethodDelete, "/v1/shares", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestErrorBodyUsesErrorField(t *testing.T) {
	h := newTestApp(t)
	w := doJSON(t, h, http.MethodGet, "/v1/shares/does-not-exist", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := body["error"]; !ok {
		t.Fatalf("response body %s has no \"error\" field", w.Body.String())
	}
	if _, ok := body["code"]; ok {
		t.Fatalf("response body %s should not carry a \"code\" field", w.Body.String())
	}
}

func TestLandingPageServesHint(t *testing.T) {
	h := newTestApp(t)
	w := doJSON(t, h, http.MethodGet, "/session/abcdef1234567890", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("abcdef12")) {
		t.Error("landing page should contain the 8-char token hint")
	}
}
