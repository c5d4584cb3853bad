package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func openTestPebble(t *testing.T) *PebbleKV {
	t.Helper()
	kv, err := OpenPebbleKV(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("OpenPebbleKV failed: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestPebbleKVPutGetDelete(t *testing.T) {
	ctx := context.Background()
	kv := openTestPebble(t)

	if err := kv.Put(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := kv.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("Get = %q, want v1", got)
	}

	if err := kv.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := kv.Get(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestPebbleKVExpiry(t *testing.T) {
	ctx := context.Background()
	kv := openTestPebble(t)

	if err := kv.Put(ctx, "short", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := kv.Get(ctx, "short"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after expiry = %v, want ErrNotFound", err)
	}
}

func TestPebbleKVListPrefix(t *testing.T) {
	ctx := context.Background()
	kv := openTestPebble(t)

	for _, k := range []string{"inbox:bob:1", "inbox:bob:2", "inbox:alice:1"} {
		if err := kv.Put(ctx, k, []byte("v"), 0); err != nil {
			t.Fatalf("Put(%s) failed: %v", k, err)
		}
	}

	keys, err := kv.ListPrefix(ctx, "inbox:bob:", 0)
	if err != nil {
		t.Fatalf("ListPrefix failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("len(keys) = %d, want 2", len(keys))
	}

	limited, err := kv.ListPrefix(ctx, "inbox:", 1)
	if err != nil {
		t.Fatalf("ListPrefix with limit failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("len(limited) = %d, want 1", len(limited))
	}
}

func TestPebbleKVSweepRemovesExpiredEntries(t *testing.T) {
	ctx := context.Background()
	kv := openTestPebble(t)

	if err := kv.Put(ctx, "stale", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	kv.sweep()

	if _, closer, err := kv.db.Get([]byte("stale")); err == nil {
		closer.Close()
		t.Fatal("sweep should have deleted the expired key from the backing db")
	}
}
