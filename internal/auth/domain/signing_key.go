package domain

import "time"

// SigningKey is a token signing secret stored encrypted under the master key.
// Retired keys keep verifying until ExpiresAt.
type SigningKey struct {
	ID              string
	Kid             string
	Algorithm       string
	SecretEncrypted []byte
	CreatedAt       time.Time
	RetiredAt       *time.Time
	ExpiresAt       *time.Time
}

// IsActive returns true if the key signs new tokens.
func (k *SigningKey) IsActive() bool { return k.RetiredAt == nil }

// IsExpired returns true if the key no longer verifies at now.
func (k *SigningKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}
