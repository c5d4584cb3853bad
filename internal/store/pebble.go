package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/cockroachdb/pebble"
)

// PebbleKV durably persists the KV namespace with cockroachdb/pebble,
// grounded on progressdb-ProgressDB's pkg/store usage of a single package
// level *pebble.DB with Set/Get/NewIter(SeekGE prefix). Pebble itself has
// no notion of per-key TTL, so each value is prefixed with an 8-byte
// big-endian unix-nano expiry (0 meaning "never"); PebbleKV strips it on
// read and treats an elapsed expiry exactly like a missing key.
type PebbleKV struct {
	db   *pebble.DB
	stop chan struct{}
}

// OpenPebbleKV opens (or creates) a pebble database at path and starts a
// background sweeper that removes expired keys every sweepInterval.
func OpenPebbleKV(path string, sweepInterval time.Duration) (*PebbleKV, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	kv := &PebbleKV{db: db, stop: make(chan struct{})}
	go kv.sweepLoop(sweepInterval)
	return kv, nil
}

func (p *PebbleKV) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

func (p *PebbleKV) sweep() {
	now := time.Now()
	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		slog.Error("pebblekv sweep iterator failed", "error", err)
		return
	}
	defer iter.Close()
	var expired [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		if exp, ok := decodeExpiry(iter.Value()); ok && now.After(exp) {
			expired = append(expired, append([]byte(nil), iter.Key()...))
		}
	}
	for _, k := range expired {
		_ = p.db.Delete(k, pebble.Sync)
	}
}

func encodeValue(value []byte, ttl time.Duration) []byte {
	var expNano int64
	if ttl > 0 {
		expNano = time.Now().Add(ttl).UnixNano()
	}
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(expNano))
	copy(buf[8:], value)
	return buf
}

// decodeExpiry reports the stored expiry time and whether one was set.
func decodeExpiry(stored []byte) (time.Time, bool) {
	if len(stored) < 8 {
		return time.Time{}, false
	}
	expNano := int64(binary.BigEndian.Uint64(stored[:8]))
	if expNano == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, expNano), true
}

func decodeValue(stored []byte) ([]byte, bool) {
	exp, hasExpiry := decodeExpiry(stored)
	if hasExpiry && time.Now().After(exp) {
		return nil, false
	}
	if len(stored) < 8 {
		return nil, false
	}
	return append([]byte(nil), stored[8:]...), true
}

func (p *PebbleKV) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return p.db.Set([]byte(key), encodeValue(value, ttl), pebble.Sync)
}

func (p *PebbleKV) Get(_ context.Context, key string) ([]byte, error) {
	v, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	value, ok := decodeValue(v)
	if !ok {
		// expired: best-effort delete, report as absent regardless.
		_ = p.db.Delete([]byte(key), pebble.Sync)
		return nil, ErrNotFound
	}
	return value, nil
}

func (p *PebbleKV) Delete(_ context.Context, key string) error {
	return p.db.Delete([]byte(key), pebble.Sync)
}

func (p *PebbleKV) ListPrefix(_ context.Context, prefix string, limit int) ([]string, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	now := time.Now()
	pfx := []byte(prefix)
	var out []string
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		if exp, ok := decodeExpiry(iter.Value()); ok && now.After(exp) {
			continue
		}
		out = append(out, string(iter.Key()))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, iter.Error()
}

func (p *PebbleKV) Close() error {
	close(p.stop)
	return p.db.Close()
}
