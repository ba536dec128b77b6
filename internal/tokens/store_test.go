package tokens

import (
	"testing"
	"time"

	"github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return New(memory.New())
}

func TestStoreIssueAndSubject(t *testing.T) {
	s := newTestStore()

	token, err := s.Issue(KindReset, "user@example.com", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	subject, err := s.Subject(KindReset, token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", subject)

	// Same token under a different kind must not resolve.
	_, err = s.Subject(KindVerify, token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestStoreConsumeIsSingleUse(t *testing.T) {
	s := newTestStore()

	token, err := s.Issue(KindVerify, "subject-1", time.Minute)
	require.NoError(t, err)

	subject, err := s.Consume(KindVerify, token)
	require.NoError(t, err)
	assert.Equal(t, "subject-1", subject)

	_, err = s.Consume(KindVerify, token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestStoreExpiry(t *testing.T) {
	s := newTestStore()

	token, err := s.Issue(KindRefresh, "subject-2", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = s.Subject(KindRefresh, token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestStoreRevocation(t *testing.T) {
	s := newTestStore()

	revoked, err := s.IsRevoked("jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke("jti-1", time.Minute))

	revoked, err = s.IsRevoked("jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestStoreDeleteMissingKey(t *testing.T) {
	s := newTestStore()

	assert.NoError(t, s.Delete(KindReset, "does-not-exist"))
}
