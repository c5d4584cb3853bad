package requests

import (
	"context"
	"testing"
	"time"

	"github.com/VinMeld/go-send/internal/config"
	"github.com/VinMeld/go-send/internal/identity"
	"github.com/VinMeld/go-send/internal/store"
)

type fakeUsers struct{ secrets map[string]string }

func (f fakeUsers) Authenticate(_ context.Context, username, secret string) error {
	if !identity.ValidUsername(username) {
		return identity.ErrInvalidUsername
	}
	if want, ok := f.secrets[username]; ok && want == secret {
		return nil
	}
	return identity.ErrAuthMismatch
}

func newTestService(t *testing.T, cfg config.Config) (*Service, store.KV) {
	t.Helper()
	kv := store.NewMemKV(time.Minute)
	t.Cleanup(func() { _ = kv.Close() })
	users := fakeUsers{secrets: map[string]string{"bob": "bob-secret", "alice": "alice-secret"}}
	return New(kv, users, cfg), kv
}

func TestCreateAndPollVisibility(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{AdminUsers: []string{"alice"}, RequestTTL: 15 * time.Minute}
	s, _ := newTestService(t, cfg)

	if _, err := s.Create(ctx, CreateRequest{Username: "bob", AuthSecret: "bob-secret", Origin: "https://example.com", TargetAdmin: "alice"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Create(ctx, CreateRequest{Username: "bob", AuthSecret: "bob-secret", TargetAdmin: "ghost"}); err != ErrAdminNotAllowed {
		t.Fatalf("non-allowlisted target = %v, want ErrAdminNotAllowed", err)
	}
	if _, err := s.Create(ctx, CreateRequest{Username: "bob", AuthSecret: "wrong", TargetAdmin: "alice"}); err != ErrForbidden {
		t.Fatalf("bad secret = %v, want ErrForbidden", err)
	}
	if _, err := s.Create(ctx, CreateRequest{Username: "not a valid username!", AuthSecret: "wrong", TargetAdmin: "alice"}); err != ErrInvalidRequester {
		t.Fatalf("malformed username = %v, want ErrInvalidRequester", err)
	}

	items, err := s.Poll(ctx, "alice", "alice-secret", 10)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if _, err := s.Poll(ctx, "bob", "bob-secret", 10); err != ErrForbidden {
		t.Fatalf("non-admin poll = %v, want ErrForbidden", err)
	}
}

func TestWildcardAdminAllowsAnyTarget(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{RequestTTL: 15 * time.Minute}
	s, _ := newTestService(t, cfg)

	if _, err := s.Create(ctx, CreateRequest{Username: "bob", AuthSecret: "bob-secret", TargetAdmin: "alice"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
}

func TestAckIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{RequestTTL: 15 * time.Minute}
	s, _ := newTestService(t, cfg)

	id, err := s.Create(ctx, CreateRequest{Username: "bob", AuthSecret: "bob-secret", TargetAdmin: "alice"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	n, err := s.Ack(ctx, "alice", "alice-secret", []string{id})
	if err != nil || n != 1 {
		t.Fatalf("first Ack: n=%d err=%v", n, err)
	}
	n, err = s.Ack(ctx, "alice", "alice-secret", []string{id})
	if err != nil || n != 1 {
		t.Fatalf("second Ack should still succeed idempotently: n=%d err=%v", n, err)
	}
}

func TestTargetedRequestsHiddenFromOtherAdmins(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{RequestTTL: 15 * time.Minute}
	s, _ := newTestService(t, cfg)
	users2 := fakeUsers{secrets: map[string]string{"bob": "bob-secret", "alice": "alice-secret", "carol": "carol-secret"}}
	kv := store.NewMemKV(time.Minute)
	t.Cleanup(func() { _ = kv.Close() })
	s = New(kv, users2, cfg)

	if _, err := s.Create(ctx, CreateRequest{Username: "bob", AuthSecret: "bob-secret", TargetAdmin: "alice"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	items, err := s.Poll(ctx, "carol", "carol-secret", 10)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("len(items) for carol = %d, want 0", len(items))
	}
}
