// Package requests implements the access-request channel: a recipient
// asks a sender-admin to push credentials via an out-of-band prompt
// (spec.md §4.5).
package requests

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/VinMeld/go-send/internal/config"
	"github.com/VinMeld/go-send/internal/idgen"
	"github.com/VinMeld/go-send/internal/identity"
	"github.com/VinMeld/go-send/internal/models"
	"github.com/VinMeld/go-send/internal/store"
)

var (
	ErrForbidden          = errors.New("requests: forbidden")
	ErrInvalidRequester   = errors.New("requests: invalid requester username")
	ErrInvalidTargetAdmin = errors.New("requests: targetAdmin is required")
	ErrAdminNotAllowed    = errors.New("requests: admin not allowed")
)

// Authenticator is the narrow identity dependency this package needs. A
// nil error means username/secret are a valid, matching pair;
// identity.ErrInvalidUsername and identity.ErrAuthMismatch are the two
// failure cases callers distinguish to pick 400 vs 403.
type Authenticator interface {
	Authenticate(ctx context.Context, username, secret string) error
}

// Service implements the access-request channel.
type Service struct {
	kv    store.KV
	users Authenticator
	cfg   config.Config
}

func New(kv store.KV, users Authenticator, cfg config.Config) *Service {
	return &Service{kv: kv, users: users, cfg: cfg}
}

func requestKey(id string) string { return "request:" + id }

// CreateRequest is the POST /v1/requests body.
type CreateRequest struct {
	Username    string
	AuthSecret  string
	Origin      string
	URL         string
	TargetAdmin string
}

// Create authenticates the requester and records a new access request
// targeted at a specific admin.
func (s *Service) Create(ctx context.Context, req CreateRequest) (string, error) {
	if err := s.users.Authenticate(ctx, req.Username, req.AuthSecret); err != nil {
		if errors.Is(err, identity.ErrInvalidUsername) {
			return "", ErrInvalidRequester
		}
		return "", ErrForbidden
	}
	if !identity.ValidUsername(req.TargetAdmin) {
		return "", ErrInvalidTargetAdmin
	}
	if !s.cfg.IsAdmin(req.TargetAdmin) {
		return "", ErrAdminNotAllowed
	}

	id := idgen.RequestID()
	rec := models.AccessRequest{
		ID:          id,
		Requester:   req.Username,
		Origin:      req.Origin,
		URL:         req.URL,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		TargetAdmin: req.TargetAdmin,
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	if err := s.kv.Put(ctx, requestKey(id), raw, s.cfg.RequestTTL); err != nil {
		return "", err
	}
	return id, nil
}

// Poll lists up to limit pending requests visible to admin: those whose
// targetAdmin is unset (visible to any admin) or matches admin exactly.
func (s *Service) Poll(ctx context.Context, admin, authSecret string, limit int) ([]models.AccessRequest, error) {
	if err := s.users.Authenticate(ctx, admin, authSecret); err != nil {
		if errors.Is(err, identity.ErrInvalidUsername) {
			return nil, ErrInvalidRequester
		}
		return nil, ErrForbidden
	}
	if !s.cfg.IsAdmin(admin) {
		return nil, ErrForbidden
	}
	limit = config.RequestsLimit(limit)
	keys, err := s.kv.ListPrefix(ctx, "request:", 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.AccessRequest, 0, limit)
	for _, key := range keys {
		if len(out) >= limit {
			break
		}
		raw, err := s.kv.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var rec models.AccessRequest
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		if rec.TargetAdmin != "" && rec.TargetAdmin != admin {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Ack deletes requests by id, idempotently, for an authenticated admin.
func (s *Service) Ack(ctx context.Context, admin, authSecret string, ids []string) (int, error) {
	if err := s.users.Authenticate(ctx, admin, authSecret); err != nil {
		if errors.Is(err, identity.ErrInvalidUsername) {
			return 0, ErrInvalidRequester
		}
		return 0, ErrForbidden
	}
	if !s.cfg.IsAdmin(admin) {
		return 0, ErrForbidden
	}
	deleted := 0
	for _, id := range ids {
		if err := s.kv.Delete(ctx, requestKey(id)); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
