// Package identity implements the user directory: first-claim
// registration, authenticated public-key rotation, and bearer-secret
// verification (spec.md §4.1).
package identity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"github.com/VinMeld/go-send/internal/idgen"
	"github.com/VinMeld/go-send/internal/models"
	"github.com/VinMeld/go-send/internal/store"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,63}$`)

// ValidUsername reports whether username matches spec.md §3's pattern.
func ValidUsername(username string) bool {
	return usernameRe.MatchString(username)
}

var (
	ErrInvalidUsername = errors.New("identity: invalid username")
	ErrNotFound        = errors.New("identity: user not found")
	ErrAuthMismatch    = errors.New("identity: authSecret mismatch")
)

// Service is the identity directory (UKV).
type Service struct {
	kv store.KV
}

func New(kv store.KV) *Service {
	return &Service{kv: kv}
}

func userKey(username string) string { return "user:" + username }

// Get returns the stored user record.
func (s *Service) Get(ctx context.Context, username string) (models.User, error) {
	if !ValidUsername(username) {
		return models.User{}, ErrInvalidUsername
	}
	raw, err := s.kv.Get(ctx, userKey(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// RegisterResult carries the one-time bearer secret disclosure.
type RegisterResult struct {
	User       models.User
	AuthSecret string // non-empty only on first registration
}

// Register creates a user on first contact (returning a fresh bearer
// secret) or rotates its public key given a matching authSecret.
func (s *Service) Register(ctx context.Context, username string, publicKey json.RawMessage, authSecret string) (RegisterResult, error) {
	if !ValidUsername(username) {
		return RegisterResult{}, ErrInvalidUsername
	}
	key := userKey(username)
	raw, err := s.kv.Get(ctx, key)
	now := time.Now().UTC().Format(time.RFC3339)

	if errors.Is(err, store.ErrNotFound) {
		secret := idgen.BearerSecret()
		u := models.User{
			Username:  username,
			PublicKey: publicKey,
			AuthHash:  hashSecret(secret),
			UpdatedAt: now,
		}
		if err := s.put(ctx, u); err != nil {
			return RegisterResult{}, err
		}
		return RegisterResult{User: u, AuthSecret: secret}, nil
	}
	if err != nil {
		return RegisterResult{}, err
	}

	var existing models.User
	if err := json.Unmarshal(raw, &existing); err != nil {
		return RegisterResult{}, err
	}
	if authSecret == "" || !matchesAuthHash(authSecret, existing.AuthHash) {
		return RegisterResult{}, ErrAuthMismatch
	}
	existing.PublicKey = publicKey
	existing.UpdatedAt = now
	if err := s.put(ctx, existing); err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{User: existing}, nil
}

func (s *Service) put(ctx context.Context, u models.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, userKey(u.Username), raw, 0)
}

// Authenticate verifies the bearer contract used by every privileged
// operation. It returns ErrInvalidUsername when username is malformed
// (ValidationError/400) and ErrAuthMismatch for any other authentication
// failure — unknown user, empty secret, wrong secret — so callers can map
// the two cases to the right status without the caller having to know
// which sub-check failed. A nil result means username is registered and
// secret's SHA-256 matches its stored authHash.
func (s *Service) Authenticate(ctx context.Context, username, secret string) error {
	if !ValidUsername(username) {
		return ErrInvalidUsername
	}
	if secret == "" {
		return ErrAuthMismatch
	}
	u, err := s.Get(ctx, username)
	if err != nil {
		return ErrAuthMismatch
	}
	if !matchesAuthHash(secret, u.AuthHash) {
		return ErrAuthMismatch
	}
	return nil
}

// Exists reports whether username is a registered user, satisfying the
// narrow RecipientChecker interfaces the share/inbox services depend on.
func (s *Service) Exists(ctx context.Context, username string) bool {
	_, err := s.Get(ctx, username)
	return err == nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func matchesAuthHash(secret, authHash string) bool {
	got := hashSecret(secret)
	return subtle.ConstantTimeCompare([]byte(got), []byte(authHash)) == 1
}
