// Package sessions implements the sender-admin session registry: list,
// revoke, restore, mark-accepted, and delete for sessions created by the
// inbox channel when a share names a sender (spec.md §4.4).
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/VinMeld/go-send/internal/config"
	"github.com/VinMeld/go-send/internal/identity"
	"github.com/VinMeld/go-send/internal/models"
	"github.com/VinMeld/go-send/internal/store"
)

var (
	ErrForbidden      = errors.New("sessions: forbidden")
	ErrInvalidUser    = errors.New("sessions: invalid username")
	ErrNotFound       = errors.New("sessions: not found")
	ErrExpired        = errors.New("sessions: too close to expiry to restore")
	ErrMissingPayload = errors.New("sessions: original payload unavailable")
)

const minRestoreTTL = 60 * time.Second

// Authenticator is the narrow identity dependency this package needs. A
// nil error means username/secret are a valid, matching pair;
// identity.ErrInvalidUsername and identity.ErrAuthMismatch are the two
// failure cases callers distinguish to pick 400 vs 403.
type Authenticator interface {
	Authenticate(ctx context.Context, username, secret string) error
}

// Enqueuer is the narrow inbox dependency this package needs: push a new
// item (control or re-delivered share) to a recipient's queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, recipient string, cipher, alg string, cmp json.RawMessage, meta models.InboxMeta, ttl time.Duration) (string, error)
}

// Service implements the session registry.
type Service struct {
	kv    store.KV
	inbox Enqueuer
	users Authenticator
	cfg   config.Config
}

func New(kv store.KV, inbox Enqueuer, users Authenticator, cfg config.Config) *Service {
	return &Service{kv: kv, inbox: inbox, users: users, cfg: cfg}
}

func sessionKey(id string) string             { return "session:" + id }
func senderIndexKey(sender, id string) string { return "sessionBySender:" + sender + ":" + id }

func (s *Service) requireAdmin(ctx context.Context, username, authSecret string) error {
	if err := s.users.Authenticate(ctx, username, authSecret); err != nil {
		if errors.Is(err, identity.ErrInvalidUsername) {
			return ErrInvalidUser
		}
		return ErrForbidden
	}
	if !s.cfg.IsAdmin(username) {
		return ErrForbidden
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (models.Session, error) {
	raw, err := s.kv.Get(ctx, sessionKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (s *Service) ttlLeft(sess models.Session) time.Duration {
	expiresAt, err := time.Parse(time.RFC3339, sess.ExpiresAt)
	if err != nil {
		return minRestoreTTL
	}
	left := time.Until(expiresAt)
	if left < minRestoreTTL {
		return minRestoreTTL
	}
	return left
}

func (s *Service) rewrite(ctx context.Context, sess models.Session, ttl time.Duration) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, sessionKey(sess.ID), raw, ttl)
}

// List returns up to limit sessions owned by sender (clamped by
// config.SessionsLimit), provided sender authenticates as an admin.
func (s *Service) List(ctx context.Context, sender, authSecret string, limit int) ([]models.Session, error) {
	if err := s.requireAdmin(ctx, sender, authSecret); err != nil {
		return nil, err
	}
	limit = config.SessionsLimit(limit)
	keys, err := s.kv.ListPrefix(ctx, "sessionBySender:"+sender+":", limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.Session, 0, len(keys))
	for _, key := range keys {
		id := key[len("sessionBySender:"+sender+":"):]
		sess, err := s.load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

func (s *Service) authorizeOwner(ctx context.Context, sess models.Session, username, authSecret string) error {
	if err := s.users.Authenticate(ctx, username, authSecret); err != nil {
		if errors.Is(err, identity.ErrInvalidUsername) {
			return ErrInvalidUser
		}
		return ErrForbidden
	}
	if !s.cfg.IsAdmin(username) || sess.Sender != username {
		return ErrForbidden
	}
	return nil
}

// Revoke loads a session, pushes a revoke control message to its recipient,
// and stamps revokedAt.
func (s *Service) Revoke(ctx context.Context, id, username, authSecret string) error {
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeOwner(ctx, sess, username, authSecret); err != nil {
		return err
	}

	ttl := s.ttlLeft(sess)
	meta := models.InboxMeta{
		Type:         "revoke",
		SessionID:    sess.ID,
		TargetOrigin: sess.TargetOrigin,
		Sender:       username,
	}
	if _, err := s.inbox.Enqueue(ctx, sess.Recipient, "", "", nil, meta, ttl); err != nil {
		return err
	}

	sess.RevokedAt = time.Now().UTC().Format(time.RFC3339)
	return s.rewrite(ctx, sess, ttl)
}

// Restore re-enqueues the original share cipher to the recipient's inbox,
// provided the session still has enough time left and an original payload.
func (s *Service) Restore(ctx context.Context, id, username, authSecret string) error {
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeOwner(ctx, sess, username, authSecret); err != nil {
		return err
	}

	ttl := s.ttlLeft(sess)
	if ttl <= minRestoreTTL {
		return ErrExpired
	}
	if sess.Cipher == "" {
		return ErrMissingPayload
	}

	meta := models.InboxMeta{
		Type:               "share",
		SessionID:          sess.ID,
		TargetOrigin:       sess.TargetOrigin,
		TargetPath:         sess.TargetPath,
		Sender:             sess.Sender,
		SessionDurationSec: int64(ttl / time.Second),
	}
	if _, err := s.inbox.Enqueue(ctx, sess.Recipient, sess.Cipher, sess.Alg, sess.Cmp, meta, ttl); err != nil {
		return err
	}

	sess.RestoredAt = time.Now().UTC().Format(time.RFC3339)
	return s.rewrite(ctx, sess, ttl)
}

// Accepted marks a session as accepted by its recipient. Unauthenticated by
// design and idempotent.
func (s *Service) Accepted(ctx context.Context, id string) error {
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if sess.AcceptedAt != "" {
		return nil
	}
	sess.AcceptedAt = time.Now().UTC().Format(time.RFC3339)
	return s.rewrite(ctx, sess, s.ttlLeft(sess))
}

// Delete removes a session and its sender index.
func (s *Service) Delete(ctx context.Context, id, username, authSecret string) error {
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeOwner(ctx, sess, username, authSecret); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, sessionKey(id)); err != nil {
		return err
	}
	return s.kv.Delete(ctx, senderIndexKey(sess.Sender, id))
}
