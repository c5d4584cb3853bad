// Package inbox implements the recipient inbox channel (push delivery,
// polling, acknowledgement) and, when a sender is attached to a delivered
// share, the paired session record + sender index that the session
// registry later manages (spec.md §4.3, §4.4 "created alongside inbox
// item").
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/VinMeld/go-send/internal/blob"
	"github.com/VinMeld/go-send/internal/config"
	"github.com/VinMeld/go-send/internal/idgen"
	"github.com/VinMeld/go-send/internal/identity"
	"github.com/VinMeld/go-send/internal/models"
	"github.com/VinMeld/go-send/internal/store"
)

const inlineThreshold = 4096

var (
	ErrInvalidRecipient  = errors.New("inbox: invalid recipient")
	ErrEmptyCipher       = errors.New("inbox: cipher is required")
	ErrPayloadTooLarge   = errors.New("inbox: cipher exceeds MAX_PAYLOAD_BYTES")
	ErrRecipientNotFound = errors.New("inbox: recipient not found")
)

// RecipientChecker mirrors shares.RecipientChecker; kept as its own type so
// this package has no import-time dependency on the shares package.
type RecipientChecker interface {
	Exists(ctx context.Context, username string) bool
}

type itemRecord struct {
	Cipher    string           `json:"cipher,omitempty"`
	BlobKey   string           `json:"blobKey,omitempty"`
	Alg       string           `json:"alg,omitempty"`
	Cmp       json.RawMessage  `json:"cmp,omitempty"`
	Meta      models.InboxMeta `json:"meta"`
	CreatedAt string           `json:"createdAt"`
	ExpiresAt string           `json:"expiresAt"`
}

// Service implements the inbox channel.
type Service struct {
	kv    store.KV
	blobs blob.Store
	users RecipientChecker
	cfg   config.Config
}

func New(kv store.KV, blobs blob.Store, users RecipientChecker, cfg config.Config) *Service {
	return &Service{kv: kv, blobs: blobs, users: users, cfg: cfg}
}

func inboxKey(recipient, id string) string { return "inbox:" + recipient + ":" + id }
func sessionKey(id string) string          { return "session:" + id }
func senderIndexKey(sender, id string) string {
	return "sessionBySender:" + sender + ":" + id
}

// CreateRequest is the POST /v1/inbox body.
type CreateRequest struct {
	Recipient string
	Cipher    string
	Alg       string
	Cmp       json.RawMessage
	Meta      models.ShareMeta
	TTLSec    int64
}

// CreateResult returns the freshly minted inbox item id and session id.
type CreateResult struct {
	ID        string
	SessionID string
}

// Create enqueues a share-type inbox item for recipient, and — when
// meta.sender is present — the durable session record + sender index a
// sender later manages via revoke/restore/accepted/delete.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	if !identity.ValidUsername(req.Recipient) {
		return CreateResult{}, ErrInvalidRecipient
	}
	if req.Cipher == "" {
		return CreateResult{}, ErrEmptyCipher
	}
	if s.cfg.PayloadTooLarge(len(req.Cipher)) {
		return CreateResult{}, ErrPayloadTooLarge
	}
	if !s.users.Exists(ctx, req.Recipient) {
		return CreateResult{}, ErrRecipientNotFound
	}

	ttl := s.cfg.ClampTTL(req.TTLSec)
	now := time.Now()
	expiresAt := now.Add(ttl)
	id := idgen.InboxID()
	sessionID := idgen.SessionID()

	targetPath := req.Meta.TargetPath
	if targetPath == "" {
		targetPath = "/"
	}
	alg := req.Alg
	if alg == "" {
		alg = "ecdh-hkdf-aesgcm"
	}

	meta := models.InboxMeta{
		Type:               "share",
		TargetOrigin:       req.Meta.TargetOrigin,
		TargetPath:         targetPath,
		Comment:            req.Meta.Comment,
		Sender:             req.Meta.Sender,
		SessionDurationSec: int64(ttl / time.Second),
		SessionID:          sessionID,
	}

	cipherForBlob, blobKey := req.Cipher, ""
	if len(req.Cipher) > inlineThreshold {
		blobKey = "inbox:" + id
		if err := s.blobs.Save(blobKey, []byte(req.Cipher)); err != nil {
			return CreateResult{}, err
		}
		cipherForBlob = ""
	}

	item := itemRecord{
		Cipher:    cipherForBlob,
		BlobKey:   blobKey,
		Alg:       alg,
		Cmp:       req.Cmp,
		Meta:      meta,
		CreatedAt: now.UTC().Format(time.RFC3339),
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return CreateResult{}, err
	}
	if err := s.kv.Put(ctx, inboxKey(req.Recipient, id), raw, ttl); err != nil {
		return CreateResult{}, err
	}

	if req.Meta.Sender != "" {
		sess := models.Session{
			ID:           sessionID,
			Sender:       req.Meta.Sender,
			Recipient:    req.Recipient,
			TargetOrigin: req.Meta.TargetOrigin,
			TargetPath:   targetPath,
			CreatedAt:    item.CreatedAt,
			DurationSec:  int64(ttl / time.Second),
			ExpiresAt:    item.ExpiresAt,
			Cipher:       req.Cipher,
			Alg:          alg,
			Cmp:          req.Cmp,
		}
		sessRaw, err := json.Marshal(sess)
		if err != nil {
			return CreateResult{}, err
		}
		if err := s.kv.Put(ctx, sessionKey(sessionID), sessRaw, ttl); err != nil {
			return CreateResult{}, err
		}
		if err := s.kv.Put(ctx, senderIndexKey(req.Meta.Sender, sessionID), []byte("1"), ttl); err != nil {
			return CreateResult{}, err
		}
	}

	return CreateResult{ID: id, SessionID: sessionID}, nil
}

// ItemView is one element of GET /v1/inbox/poll's response.
type ItemView struct {
	ID        string
	Cipher    string
	Alg       string
	Cmp       json.RawMessage
	Meta      models.InboxMeta
	ExpiresAt string
}

// Poll lists up to limit inbox items for recipient, skipping any that went
// missing between the prefix list and the per-item fetch (a TTL race).
func (s *Service) Poll(ctx context.Context, recipient string, limit int) ([]ItemView, error) {
	prefix := "inbox:" + recipient + ":"
	keys, err := s.kv.ListPrefix(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}
	items := make([]ItemView, 0, len(keys))
	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var rec itemRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		cipher := rec.Cipher
		if rec.BlobKey != "" {
			b, err := s.blobs.Get(rec.BlobKey)
			if err != nil {
				continue
			}
			cipher = string(b)
		}
		items = append(items, ItemView{
			ID:        key[len(prefix):],
			Cipher:    cipher,
			Alg:       rec.Alg,
			Cmp:       rec.Cmp,
			Meta:      rec.Meta,
			ExpiresAt: rec.ExpiresAt,
		})
	}
	return items, nil
}

// Ack deletes recipient's inbox items by id. Unknown ids count as
// successful deletes (idempotent).
func (s *Service) Ack(ctx context.Context, recipient string, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		key := inboxKey(recipient, id)
		if raw, err := s.kv.Get(ctx, key); err == nil {
			var rec itemRecord
			if json.Unmarshal(raw, &rec) == nil && rec.BlobKey != "" {
				_ = s.blobs.Delete(rec.BlobKey)
			}
		}
		if err := s.kv.Delete(ctx, key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// Enqueue writes an arbitrary inbox item (share re-delivery or a revoke
// control message) for recipient with the given TTL. Used by the session
// registry for revoke/restore fan-out.
func (s *Service) Enqueue(ctx context.Context, recipient string, cipher, alg string, cmp json.RawMessage, meta models.InboxMeta, ttl time.Duration) (string, error) {
	id := idgen.InboxID()
	now := time.Now()
	item := itemRecord{
		Cipher:    cipher,
		Alg:       alg,
		Cmp:       cmp,
		Meta:      meta,
		CreatedAt: now.UTC().Format(time.RFC3339),
		ExpiresAt: now.Add(ttl).UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return "", err
	}
	if err := s.kv.Put(ctx, inboxKey(recipient, id), raw, ttl); err != nil {
		return "", err
	}
	return id, nil
}
