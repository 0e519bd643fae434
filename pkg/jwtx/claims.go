package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the lifetime of an access token when the
// service does not override it.
const DefaultAccessTokenTTL = 8 * time.Hour

// Claims are the access-token claims shared by issuer and verifiers.
type Claims struct {
	jwt.RegisteredClaims

	// Role of the subject at issuance time, e.g. "operator".
	Role string `json:"role"`

	// TenantID is the tenant partition the subject belongs to.
	TenantID string `json:"tenant_id"`
}

// NewAccessClaims builds minimally-correct claims.
func NewAccessClaims(subject, role, tenantID, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role:     role,
		TenantID: tenantID,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateRequired checks the claims every access token must carry and
// that the token's lifetime is positive.
func (c *Claims) ValidateRequired() error {
	if c.Subject == "" || c.ID == "" || c.Role == "" || c.TenantID == "" {
		return ErrInvalidClaim
	}
	if c.IssuedAt == nil || c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if !c.ExpiresAt.After(c.IssuedAt.Time) {
		return ErrInvalidClaim
	}
	return nil
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateTimes rejects tokens at or past exp and tokens used before nbf.
// leeway widens both bounds for clock skew between issuer and verifier.
func (c *Claims) ValidateTimes(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
