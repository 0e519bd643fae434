package jwtx

import (
	"crypto/rand"
	"fmt"

	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// AlgorithmHS256 is the only signing algorithm tokens are issued with.
const AlgorithmHS256 = "HS256"

// MinSecretLength is the shortest HMAC secret accepted, in bytes.
const MinSecretLength = 32

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
}

// HMACSigner signs tokens with HS256 and a shared secret.
type HMACSigner struct {
	kid    string
	secret []byte
}

// NewHMACSigner wraps secret. An empty kid is derived from the secret.
func NewHMACSigner(kid string, secret []byte) (*HMACSigner, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwtx: HMAC secret must be at least %d bytes", MinSecretLength)
	}
	if kid == "" {
		kid = cryptox.KeyID(secret)
	}
	return &HMACSigner{kid: kid, secret: append([]byte(nil), secret...)}, nil
}

// GenerateHMACSigner creates a signer with a fresh random 64 byte secret.
func GenerateHMACSigner() (*HMACSigner, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}
	return NewHMACSigner("", secret)
}

// GenerateSecret returns 64 random bytes suitable for HS256.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, 64)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("jwtx: generate secret: %w", err)
	}
	return secret, nil
}

func (s *HMACSigner) Alg() string { return AlgorithmHS256 }
func (s *HMACSigner) KID() string { return s.kid }

// Secret returns a copy of the key material, for encrypted persistence.
func (s *HMACSigner) Secret() []byte { return append([]byte(nil), s.secret...) }

// Sign encodes and signs claims, stamping the kid header.
func (s *HMACSigner) Sign(c Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	tok.Header["kid"] = s.kid
	return tok.SignedString(s.secret)
}
