package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/VinMeld/go-send/internal/blob"
	"github.com/VinMeld/go-send/internal/config"
	"github.com/VinMeld/go-send/internal/identity"
	"github.com/VinMeld/go-send/internal/inbox"
	"github.com/VinMeld/go-send/internal/models"
	"github.com/VinMeld/go-send/internal/store"
)

type fakeUsers struct{ secrets map[string]string }

func (f fakeUsers) Exists(_ context.Context, username string) bool { _, ok := f.secrets[username]; return ok }

func (f fakeUsers) Authenticate(_ context.Context, username, secret string) error {
	if !identity.ValidUsername(username) {
		return identity.ErrInvalidUsername
	}
	if want, ok := f.secrets[username]; ok && want == secret {
		return nil
	}
	return identity.ErrAuthMismatch
}

func newTestService(t *testing.T) (*Service, *inbox.Service, store.KV) {
	t.Helper()
	kv := store.NewMemKV(time.Minute)
	t.Cleanup(func() { _ = kv.Close() })
	blobs := blob.NewLocalStore(t.TempDir())
	cfg := config.Config{DefaultTTL: 600 * time.Second, MaxTTL: 3600 * time.Second, MaxPayload: 8 << 20}
	users := fakeUsers{secrets: map[string]string{"alice": "alice-secret", "bob": "bob-secret"}}
	inboxSvc := inbox.New(kv, blobs, users, cfg)
	return New(kv, inboxSvc, users, cfg), inboxSvc, kv
}

func createSession(t *testing.T, inboxSvc *inbox.Service) string {
	t.Helper()
	res, err := inboxSvc.Create(context.Background(), inbox.CreateRequest{
		Recipient: "bob",
		Cipher:    "Y2lwaA",
		TTLSec:    3600,
		Meta:      models.ShareMeta{Sender: "alice", TargetOrigin: "https://example.com"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return res.SessionID
}

func TestListRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	s, inboxSvc, _ := newTestService(t)
	createSession(t, inboxSvc)

	if _, err := s.List(ctx, "alice", "wrong", 10); err != ErrForbidden {
		t.Fatalf("wrong secret = %v, want ErrForbidden", err)
	}
	if _, err := s.List(ctx, "not a valid username!", "wrong", 10); err != ErrInvalidUser {
		t.Fatalf("malformed username = %v, want ErrInvalidUser", err)
	}
	sessList, err := s.List(ctx, "alice", "alice-secret", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(sessList) != 1 {
		t.Fatalf("len(sessions) = %d, want 1", len(sessList))
	}
}

func TestRevokePushesControlMessage(t *testing.T) {
	ctx := context.Background()
	s, inboxSvc, _ := newTestService(t)
	id := createSession(t, inboxSvc)

	if err := s.Revoke(ctx, id, "bob", "bob-secret"); err != ErrForbidden {
		t.Fatalf("non-owner revoke = %v, want ErrForbidden", err)
	}
	if err := s.Revoke(ctx, id, "alice", "alice-secret"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	items, err := inboxSvc.Poll(ctx, "bob", 10)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	var sawRevoke bool
	for _, it := range items {
		if it.Meta.Type == "revoke" && it.Meta.SessionID == id {
			sawRevoke = true
		}
	}
	if !sawRevoke {
		t.Fatal("expected a revoke control item in bob's inbox")
	}
}

func TestRestoreReenqueuesOriginalShare(t *testing.T) {
	ctx := context.Background()
	s, inboxSvc, kv := newTestService(t)
	id := createSession(t, inboxSvc)

	if err := s.Restore(ctx, id, "alice", "alice-secret"); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	items, _ := inboxSvc.Poll(ctx, "bob", 10)
	found := false
	for _, it := range items {
		if it.Meta.Type == "share" && it.Meta.SessionID == id {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the original share to be re-enqueued")
	}

	raw, err := kv.Get(ctx, sessionKey(id))
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	_ = raw
}

func TestAcceptedIsIdempotentAndUnauthenticated(t *testing.T) {
	ctx := context.Background()
	s, inboxSvc, _ := newTestService(t)
	id := createSession(t, inboxSvc)

	if err := s.Accepted(ctx, id); err != nil {
		t.Fatalf("first Accepted failed: %v", err)
	}
	if err := s.Accepted(ctx, id); err != nil {
		t.Fatalf("second Accepted should be a no-op, got: %v", err)
	}
}

func TestDeleteRemovesSessionAndIndex(t *testing.T) {
	ctx := context.Background()
	s, inboxSvc, kv := newTestService(t)
	id := createSession(t, inboxSvc)

	if err := s.Delete(ctx, id, "alice", "alice-secret"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := kv.Get(ctx, sessionKey(id)); err == nil {
		t.Error("session record should be gone")
	}
	if _, err := kv.Get(ctx, senderIndexKey("alice", id)); err == nil {
		t.Error("sender index should be gone")
	}
}
