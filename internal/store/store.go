// Package store implements the KV abstraction from the system design: a
// get/put/delete/list-by-prefix namespace where every entry carries its own
// TTL. Two implementations satisfy the same interface: MemKV (an in-process
// map, used by default and in tests) and PebbleKV (durable, backed by
// cockroachdb/pebble). Neither implementation interprets the bytes it
// stores; callers own JSON encoding.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or has expired.
var ErrNotFound = errors.New("store: not found")

// KV is the per-entry-TTL key-value namespace shared by the identity,
// share, inbox, session, and request services.
type KV interface {
	// Put writes value under key with the given TTL. ttl <= 0 means no
	// expiry (used only by the user directory, which has none).
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the value for key, or ErrNotFound if absent/expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// ListPrefix returns up to limit keys starting with prefix, in no
	// particular order beyond what the backend naturally provides.
	// limit <= 0 means unbounded.
	ListPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
	// Close releases backend resources (background sweepers, file
	// handles). Safe to call on a KV that never needed it.
	Close() error
}
