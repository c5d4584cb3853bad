// Package shares implements the single-use share channel: create a
// token-addressed cipher bundle, fetch it while it is live, and consume it
// exactly once (spec.md §4.2). Strong exclusion on consume is delegated to the Token
// Coordinator; this package owns the SKV payload record itself.
package shares

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/VinMeld/go-send/internal/blob"
	"github.com/VinMeld/go-send/internal/config"
	"github.com/VinMeld/go-send/internal/coordinator"
	"github.com/VinMeld/go-send/internal/idgen"
	"github.com/VinMeld/go-send/internal/identity"
	"github.com/VinMeld/go-send/internal/models"
	"github.com/VinMeld/go-send/internal/store"
)

// inlineThreshold is the largest cipher kept directly in the KV value;
// anything bigger is offloaded to the blob store and the KV record holds
// only a blob key. This is purely an on-disk locality choice — every
// response still returns the cipher inline, reassembled transparently.
const inlineThreshold = 4096

var (
	ErrInvalidRecipient  = errors.New("shares: invalid recipient")
	ErrEmptyCipher       = errors.New("shares: cipher is required")
	ErrPayloadTooLarge   = errors.New("shares: cipher exceeds MAX_PAYLOAD_BYTES")
	ErrRecipientNotFound = errors.New("shares: recipient not found")
	ErrNotFound          = errors.New("shares: token not found")
	ErrConsumed          = errors.New("shares: token already consumed")
)

// RecipientChecker is the narrow identity dependency shares needs: does
// this username exist?
type RecipientChecker interface {
	Exists(ctx context.Context, username string) bool
}

type record struct {
	Cipher  string           `json:"cipher,omitempty"`
	BlobKey string           `json:"blobKey,omitempty"`
	Alg     string           `json:"alg"`
	Cmp     json.RawMessage  `json:"cmp,omitempty"`
	Meta    models.ShareMeta `json:"meta"`
}

// Service implements the share channel.
type Service struct {
	kv    store.KV
	blobs blob.Store
	coord *coordinator.Coordinator
	users RecipientChecker
	cfg   config.Config
}

func New(kv store.KV, blobs blob.Store, coord *coordinator.Coordinator, users RecipientChecker, cfg config.Config) *Service {
	return &Service{kv: kv, blobs: blobs, coord: coord, users: users, cfg: cfg}
}

// CreateRequest is the POST /v1/shares body.
type CreateRequest struct {
	Recipient string
	Cipher    string
	Alg       string
	Cmp       json.RawMessage
	Meta      models.ShareMeta
	TTLSec    int64
}

// CreateResult is returned to the caller; ShareURL is assembled by the
// HTTP layer (it knows BASE_URL / the request's own origin).
type CreateResult struct {
	Token     string
	ExpiresAt time.Time
}

// Create validates, stores, and initializes coordination for a new share.
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
	token := idgen.ShareToken()
	expiresAt := time.Now().Add(ttl)

	alg := req.Alg
	if alg == "" {
		alg = "ecdh-hkdf-aesgcm"
	}
	if req.Meta.TargetPath == "" {
		req.Meta.TargetPath = "/"
	}

	rec := record{Alg: alg, Cmp: req.Cmp, Meta: req.Meta}
	if len(req.Cipher) > inlineThreshold {
		blobKey := "share:" + token
		if err := s.blobs.Save(blobKey, []byte(req.Cipher)); err != nil {
			return CreateResult{}, err
		}
		rec.BlobKey = blobKey
	} else {
		rec.Cipher = req.Cipher
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return CreateResult{}, err
	}
	if err := s.kv.Put(ctx, token, raw, ttl); err != nil {
		return CreateResult{}, err
	}
	if err := s.coord.Init(token, req.Recipient, expiresAt); err != nil {
		// Practically unreachable: token is fresh crypto/rand output.
		_ = s.kv.Delete(ctx, token)
		return CreateResult{}, err
	}

	return CreateResult{Token: token, ExpiresAt: expiresAt}, nil
}

// View is what GET /v1/shares/:token returns.
type View struct {
	Token  string
	Cipher string
	Alg    string
	Cmp    json.RawMessage
	Meta   models.ShareMeta
}

// Fetch returns a live share's payload. It asks the coordinator for status
// first, exactly as spec.md §4.2 describes, then falls back to the KV
// record (and tolerates the KV having already lost it to a TTL race).
func (s *Service) Fetch(ctx context.Context, token string) (View, error) {
	_, consumed, err := s.coord.Status(token)
	if errors.Is(err, coordinator.ErrUnknown) {
		return View{}, ErrNotFound
	}
	if err != nil {
		return View{}, err
	}
	if consumed {
		return View{}, ErrConsumed
	}

	raw, err := s.kv.Get(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return View{}, ErrNotFound
	}
	if err != nil {
		return View{}, err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return View{}, err
	}
	cipher := rec.Cipher
	if rec.BlobKey != "" {
		b, err := s.blobs.Get(rec.BlobKey)
		if err != nil {
			return View{}, ErrNotFound
		}
		cipher = string(b)
	}
	return View{Token: token, Cipher: cipher, Alg: rec.Alg, Cmp: rec.Cmp, Meta: rec.Meta}, nil
}

// Consume performs the single-use at-most-once transition: coordinator
// flip first, then best-effort payload deletion.
func (s *Service) Consume(ctx context.Context, token string) error {
	err := s.coord.Consume(token)
	switch {
	case errors.Is(err, coordinator.ErrUnknown):
		return ErrNotFound
	case errors.Is(err, coordinator.ErrAlreadyConsumed):
		return ErrConsumed
	case err != nil:
		return err
	}

	if raw, getErr := s.kv.Get(ctx, token); getErr == nil {
		var rec record
		if json.Unmarshal(raw, &rec) == nil && rec.BlobKey != "" {
			_ = s.blobs.Delete(rec.BlobKey)
		}
	}
	return s.kv.Delete(ctx, token)
}
