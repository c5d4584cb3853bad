// Package config loads the environment-driven settings from §6 of the
// spec, the same way the teacher's server.go loads an optional .env file
// via godotenv and then reads os.Getenv for the rest.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultTTL        = 600 * time.Second
	defaultMaxTTL     = 3600 * time.Second
	defaultMaxPayload = 8 * 1024 * 1024
	requestTTL        = 15 * time.Minute

	inboxPollLimitDefault = 10
	inboxPollLimitMax     = 25
	sessionsLimitDefault  = 50
	sessionsLimitMax      = 100
	requestsLimitDefault  = 50
	requestsLimitMax      = 100
)

// Config holds every environment-derived knob the handlers consult.
type Config struct {
	AllowedOrigins []string
	AdminUsers     []string
	MaxPayload     int64
	MaxTTL         time.Duration
	DefaultTTL     time.Duration
	RequestTTL     time.Duration
	BaseURL        string

	StorageType string // "" (local) or "s3"
	DataDir     string
	AWSBucket   string
	AWSRegion   string

	ListenPort string
}

// Load reads an optional .env file (ignored if absent, matching the
// teacher's godotenv.Load() behavior) and then populates Config from the
// process environment, applying spec.md §6's defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using defaults/env vars")
	}

	cfg := Config{
		AllowedOrigins: splitCSV(os.Getenv("ALLOWED_ORIGINS")),
		AdminUsers:     splitCSV(os.Getenv("ADMIN_USERS")),
		MaxPayload:     envInt64("MAX_PAYLOAD_BYTES", defaultMaxPayload),
		MaxTTL:         envSeconds("MAX_TTL", defaultMaxTTL),
		DefaultTTL:     defaultTTL,
		RequestTTL:     requestTTL,
		BaseURL:        os.Getenv("BASE_URL"),

		StorageType: os.Getenv("STORAGE_TYPE"),
		DataDir:     os.Getenv("DATA_DIR"),
		AWSBucket:   os.Getenv("AWS_BUCKET"),
		AWSRegion:   os.Getenv("AWS_REGION"),

		ListenPort: os.Getenv("PORT"),
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "server_data"
	}
	return cfg
}

// ClampTTL applies spec.md §4.2's `ttl = min(max(ttlSec or DEFAULT_TTL, 60s), MAX_TTL)`.
func (c Config) ClampTTL(requested int64) time.Duration {
	ttl := time.Duration(requested) * time.Second
	if requested <= 0 {
		ttl = c.DefaultTTL
	}
	if ttl < 60*time.Second {
		ttl = 60 * time.Second
	}
	if ttl > c.MaxTTL {
		ttl = c.MaxTTL
	}
	return ttl
}

// PayloadTooLarge applies §4.2's base64-expansion guard: len(cipher)*0.75
// must not exceed MaxPayload.
func (c Config) PayloadTooLarge(cipherLen int) bool {
	return float64(cipherLen)*0.75 > float64(c.MaxPayload)
}

// IsAdmin applies §4.1's allowlist rule: empty or containing "*" means
// every authenticated user is an admin.
func (c Config) IsAdmin(username string) bool {
	if len(c.AdminUsers) == 0 {
		return true
	}
	for _, u := range c.AdminUsers {
		if u == "*" {
			return true
		}
		if u == username {
			return true
		}
	}
	return false
}

// ClampLimit bounds a client-supplied limit query param to [1, max],
// substituting def when the caller passed <= 0.
func ClampLimit(requested, def, max int) int {
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}

func InboxPollLimit(requested int) int { return ClampLimit(requested, inboxPollLimitDefault, inboxPollLimitMax) }
func SessionsLimit(requested int) int  { return ClampLimit(requested, sessionsLimitDefault, sessionsLimitMax) }
func RequestsLimit(requested int) int  { return ClampLimit(requested, requestsLimitDefault, requestsLimitMax) }

// CORSDecision reports whether and how an Origin header should be echoed,
// per spec.md §6: wildcard allowlist echoes the request Origin (or "*" if
// none given); an explicit exact match echoes that origin; anything else
// gets no CORS headers at all. Credentials are only ever true alongside an
// echoed, non-"*" origin value, never alongside a literal "*".
func (c Config) CORSDecision(origin string) (allow bool, echoOrigin string) {
	for _, a := range c.AllowedOrigins {
		if a == "*" {
			if origin == "" {
				return true, "*"
			}
			return true, origin
		}
	}
	if origin != "" {
		for _, a := range c.AllowedOrigins {
			if a == origin {
				return true, origin
			}
		}
	}
	return false, ""
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("invalid integer env var, using default", "key", key, "value", v)
		return def
	}
	return n
}

func envSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("invalid integer env var, using default", "key", key, "value", v)
		return def
	}
	return time.Duration(n) * time.Second
}
