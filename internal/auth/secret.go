package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SecretVerifier checks the shared secret presented by external schedulers
// calling the job endpoints. Only a bcrypt hash of the secret is configured,
// so the plaintext never sits in config files.
type SecretVerifier struct {
	hash []byte
}

// NewSecretVerifier returns nil when hash is empty, meaning "no secret
// required". A malformed hash is rejected up front.
func NewSecretVerifier(hash string) (*SecretVerifier, error) {
	if hash == "" {
		return nil, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("auth: cron secret hash is not a bcrypt hash: %w", err)
	}
	return &SecretVerifier{hash: []byte(hash)}, nil
}

// HashSecret produces a bcrypt hash suitable for auth.cronSecretHash.
// bcrypt only looks at the first 72 bytes, so longer secrets are refused.
func HashSecret(secret string, cost int) (string, error) {
	if secret == "" {
		return "", errors.New("auth: secret must not be empty")
	}
	if len(secret) > 72 {
		return "", errors.New("auth: secret must be 72 bytes or fewer")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing secret: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when secret matches. A nil verifier accepts anything.
func (v *SecretVerifier) Verify(secret string) error {
	if v == nil {
		return nil
	}
	if secret == "" {
		return errors.New("auth: missing secret")
	}
	err := bcrypt.CompareHashAndPassword(v.hash, []byte(secret))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errors.New("auth: invalid secret")
		}
		return fmt.Errorf("auth: comparing secret hash: %w", err)
	}
	return nil
}
