package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSecretVerifier_MatchingSecret(t *testing.T) {
	hash, err := HashSecret("cron-shared-secret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2"), "not a bcrypt hash: %q", hash)

	v, err := NewSecretVerifier(hash)
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.NoError(t, v.Verify("cron-shared-secret"))
	assert.Error(t, v.Verify("wrong-secret"))
	assert.Error(t, v.Verify(""))
}

func TestSecretVerifier_EmptyHashAcceptsAnything(t *testing.T) {
	v, err := NewSecretVerifier("")
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.NoError(t, v.Verify(""))
	assert.NoError(t, v.Verify("anything"))
}

func TestNewSecretVerifier_RejectsGarbageHash(t *testing.T) {
	_, err := NewSecretVerifier("plaintext-not-a-hash")
	assert.Error(t, err)
}

func TestHashSecret_Limits(t *testing.T) {
	_, err := HashSecret("", bcrypt.MinCost)
	assert.Error(t, err)

	_, err = HashSecret(strings.Repeat("a", 73), bcrypt.MinCost)
	assert.Error(t, err)

	_, err = HashSecret(strings.Repeat("a", 72), bcrypt.MinCost)
	assert.NoError(t, err)
}

func TestHashSecret_Salted(t *testing.T) {
	h1, _ := HashSecret("same", bcrypt.MinCost)
	h2, _ := HashSecret("same", bcrypt.MinCost)
	assert.NotEqual(t, h1, h2)
}
