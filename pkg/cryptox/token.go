package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// RandomString returns n random bytes, base64url encoded without padding.
func RandomString(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("random string size must be positive, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustRandomString is RandomString for sizes known to be valid.
func MustRandomString(n int) string {
	s, err := RandomString(n)
	if err != nil {
		panic("cryptox: " + err.Error())
	}
	return s
}

// TokensEqual compares two shared secrets in constant time. Hashing first
// hides the length of the expected value as well.
func TokensEqual(given, expected string) bool {
	a := sha256.Sum256([]byte(given))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// FingerprintToken is the base64url SHA-256 of a token (43 chars), logged
// in place of the token itself.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// KeyID derives a short stable identifier for secret key material.
func KeyID(secret []byte) string {
	sum := sha256.Sum256(secret)
	return base64.RawURLEncoding.EncodeToString(sum[:12])
}
