package config

import (
	"testing"
	"time"
)

func TestClampTTL(t *testing.T) {
	c := Config{DefaultTTL: 600 * time.Second, MaxTTL: 3600 * time.Second}
	cases := []struct {
		requested int64
		want      time.Duration
	}{
		{0, 600 * time.Second},
		{30, 60 * time.Second},
		{120, 120 * time.Second},
		{3601, 3600 * time.Second},
	}
	for _, c2 := range cases {
		if got := c.ClampTTL(c2.requested); got != c2.want {
			t.Errorf("ClampTTL(%d) = %v, want %v", c2.requested, got, c2.want)
		}
	}
}

func TestPayloadTooLarge(t *testing.T) {
	c := Config{MaxPayload: 100}
	// floor(100 / 0.75) = 133, so 133 bytes is right at the boundary.
	if c.PayloadTooLarge(133) {
		t.Error("133 should fit in 100 max payload bytes")
	}
	if !c.PayloadTooLarge(134) {
		t.Error("134 should exceed 100 max payload bytes")
	}
}

func TestIsAdmin(t *testing.T) {
	empty := Config{}
	if !empty.IsAdmin("anyone") {
		t.Error("empty allowlist should admit everyone")
	}
	wildcard := Config{AdminUsers: []string{"*"}}
	if !wildcard.IsAdmin("anyone") {
		t.Error("wildcard allowlist should admit everyone")
	}
	explicit := Config{AdminUsers: []string{"alice", "dave"}}
	if !explicit.IsAdmin("alice") || !explicit.IsAdmin("dave") {
		t.Error("explicit allowlist should admit listed users")
	}
	if explicit.IsAdmin("carol") {
		t.Error("explicit allowlist should reject unlisted users")
	}
}

func TestCORSDecision(t *testing.T) {
	wildcard := Config{AllowedOrigins: []string{"*"}}
	if allow, echo := wildcard.CORSDecision("https://example.com"); !allow || echo != "https://example.com" {
		t.Errorf("wildcard should echo origin, got allow=%v echo=%q", allow, echo)
	}
	if allow, echo := wildcard.CORSDecision(""); !allow || echo != "*" {
		t.Errorf("wildcard with no Origin should echo *, got allow=%v echo=%q", allow, echo)
	}

	explicit := Config{AllowedOrigins: []string{"https://a.example"}}
	if allow, echo := explicit.CORSDecision("https://a.example"); !allow || echo != "https://a.example" {
		t.Errorf("exact match should echo, got allow=%v echo=%q", allow, echo)
	}
	if allow, _ := explicit.CORSDecision("https://b.example"); allow {
		t.Error("non-matching origin should not be allowed")
	}
}

func TestClampLimit(t *testing.T) {
	if got := InboxPollLimit(0); got != 10 {
		t.Errorf("default InboxPollLimit = %d, want 10", got)
	}
	if got := InboxPollLimit(100); got != 25 {
		t.Errorf("clamped InboxPollLimit = %d, want 25", got)
	}
	if got := SessionsLimit(1000); got != 100 {
		t.Errorf("clamped SessionsLimit = %d, want 100", got)
	}
}
