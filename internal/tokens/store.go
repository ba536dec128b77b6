// Package tokens implements the TTL token store backing refresh tokens,
// password reset and email verification flows, pending TOTP enrollments,
// and the access token revocation list. Tokens live in a
// gofiber/storage backend so they expire server side and survive
// restarts when a database backed storage is configured.
package tokens

import (
	"time"

	"github.com/gofiber/storage"
	"github.com/pkg/errors"

	"github.com/ai-job-readiness/jobready/internal/uniuri"
)

// ErrTokenNotFound is returned when a token is missing or has expired.
var ErrTokenNotFound = errors.New("token not found or expired")

// Kind namespaces tokens within the storage backend.
type Kind string

const (
	KindRefresh     Kind = "refresh"
	KindReset       Kind = "reset"
	KindVerify      Kind = "verify"
	KindRevoked     Kind = "revoked"
	KindTOTPPending Kind = "totp-pending"
	KindOIDCState   Kind = "oidc-state"
)

// Store is a namespaced TTL key-value store for opaque tokens.
type Store struct {
	storage storage.Storage
}

// New returns a Store over the given storage backend.
func New(s storage.Storage) *Store {
	return &Store{storage: s}
}

// Issue generates a random token of the given kind bound to subject and
// stores it with the given TTL. The token is returned to the caller and
// is the only handle to the entry.
func (s *Store) Issue(kind Kind, subject string, ttl time.Duration) (string, error) {
	token := uniuri.NewLen(uniuri.TokenLen)
	if err := s.Set(kind, token, subject, ttl); err != nil {
		return "", err
	}

	return token, nil
}

// Subject returns the subject bound to the token without consuming it.
func (s *Store) Subject(kind Kind, token string) (string, error) {
	v, err := s.storage.Get(key(kind, token))
	if err != nil {
		return "", errors.Wrap(err, "token storage get failed")
	}

	if len(v) == 0 {
		return "", ErrTokenNotFound
	}

	return string(v), nil
}

// Consume returns the subject bound to the token and deletes it, making
// the token single use.
func (s *Store) Consume(kind Kind, token string) (string, error) {
	subject, err := s.Subject(kind, token)
	if err != nil {
		return "", err
	}

	if err := s.Delete(kind, token); err != nil {
		return "", err
	}

	return subject, nil
}

// Set stores a value under a caller chosen key.
func (s *Store) Set(kind Kind, k, value string, ttl time.Duration) error {
	if err := s.storage.Set(key(kind, k), []byte(value), ttl); err != nil {
		return errors.Wrap(err, "token storage set failed")
	}

	return nil
}

// Get returns the value stored under a caller chosen key.
func (s *Store) Get(kind Kind, k string) (string, error) {
	return s.Subject(kind, k)
}

// Delete removes a token. Deleting a missing token is not an error.
func (s *Store) Delete(kind Kind, k string) error {
	if err := s.storage.Delete(key(kind, k)); err != nil {
		return errors.Wrap(err, "token storage delete failed")
	}

	return nil
}

// Revoke puts a token ID on the revocation list until its natural expiry.
func (s *Store) Revoke(id string, ttl time.Duration) error {
	return s.Set(KindRevoked, id, "1", ttl)
}

// IsRevoked reports whether a token ID is on the revocation list.
func (s *Store) IsRevoked(id string) (bool, error) {
	_, err := s.Get(KindRevoked, id)
	if errors.Is(err, ErrTokenNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func key(kind Kind, k string) string {
	return string(kind) + ":" + k
}
