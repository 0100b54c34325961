package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost)

	hash, err := ps.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$04$"), "hash embeds the configured cost: %s", hash)

	again, err := ps.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "each hash gets its own salt")

	assert.NoError(t, ps.Verify(hash, "password123"))
	assert.ErrorIs(t, ps.Verify(hash, "password124"), ErrInvalidPassword)
	assert.ErrorIs(t, ps.Verify(hash, ""), ErrInvalidPassword)
}

func TestVerifyMalformedHash(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost)

	err := ps.Verify("not-a-bcrypt-hash", "password123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPassword)
}

func TestHashLengthLimit(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost)

	_, err := ps.Hash(strings.Repeat("a", 72))
	assert.NoError(t, err)

	_, err = ps.Hash(strings.Repeat("a", 73))
	assert.ErrorContains(t, err, "72 bytes")
}

func TestDefaultCost(t *testing.T) {
	assert.Equal(t, 12, NewPasswordService().cost)
}
