package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrPasswordMismatch is returned when a password does not match its hash.
	ErrPasswordMismatch = errors.New("password does not match")
	// ErrUnsupportedHash is returned for hash strings in an unknown format.
	ErrUnsupportedHash = errors.New("unsupported password hash format")
	// ErrMalformedHash is returned for argon2id hashes with unusable fields.
	ErrMalformedHash = errors.New("malformed password hash")
)

// HashPassword generates a PHC-format Argon2id hash string including salt and parameters.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey(
		[]byte(password+GetPepper()),
		salt,
		iterations,
		memory,
		parallelism,
		keyLength,
	)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword compares a plaintext password against a stored hash.
//
// Argon2id PHC strings are checked with the process pepper. Legacy bcrypt
// hashes ($2a$, $2b$, $2y$) carry no pepper and are checked with bcrypt.
// Both comparisons are constant-time.
func VerifyPassword(password, encodedHash string) error {
	if isBcrypt(encodedHash) {
		if err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)); err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return ErrPasswordMismatch
			}
			return fmt.Errorf("invalid bcrypt hash: %w", err)
		}
		return nil
	}

	params, salt, expected, err := parseArgon2(encodedHash)
	if err != nil {
		return err
	}

	computed := argon2.IDKey(
		[]byte(password+GetPepper()),
		salt,
		params.iterations,
		params.memory,
		params.parallelism,
		uint32(len(expected)), // #nosec G115 - hash lengths are tiny
	)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

// NeedsRehash reports whether a stored hash should be upgraded to the
// current Argon2id parameters after a successful verification.
func NeedsRehash(encodedHash string) bool {
	if isBcrypt(encodedHash) {
		return true
	}
	params, _, hash, err := parseArgon2(encodedHash)
	if err != nil {
		return true
	}
	return params.memory != memory ||
		params.iterations != iterations ||
		params.parallelism != parallelism ||
		len(hash) != keyLength
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// DummyHash returns a valid Argon2id hash of a random password. Verifying
// against it costs the same as a real verification, which keeps lookups of
// unknown accounts indistinguishable by timing.
func DummyHash() string {
	dummyHashOnce.Do(func() {
		h, err := HashPassword(MustRandomString(16))
		if err != nil {
			panic(fmt.Sprintf("cryptox: failed to build dummy hash: %v", err))
		}
		dummyHash = h
	})
	return dummyHash
}

type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

// parseArgon2 splits $argon2id$v=19$m=X,t=Y,p=Z$salt$hash.
func parseArgon2(encodedHash string) (argon2Params, []byte, []byte, error) {
	var p argon2Params

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return p, nil, nil, fmt.Errorf("%w: expected 6 parts", ErrUnsupportedHash)
	}
	if parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("%w: not argon2id", ErrUnsupportedHash)
	}
	if parts[2] != "v=19" {
		return p, nil, nil, fmt.Errorf("%w: wrong version", ErrUnsupportedHash)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("%w: failed to parse parameters: %v", ErrUnsupportedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: failed to decode salt: %v", ErrUnsupportedHash, err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: failed to decode hash: %v", ErrUnsupportedHash, err)
	}

	// An empty key would match any password; zero cost parameters make
	// argon2 panic.
	switch {
	case len(salt) == 0:
		return p, nil, nil, fmt.Errorf("%w: empty salt", ErrMalformedHash)
	case len(hash) == 0:
		return p, nil, nil, fmt.Errorf("%w: empty key", ErrMalformedHash)
	case p.iterations == 0, p.parallelism == 0:
		return p, nil, nil, fmt.Errorf("%w: zero cost parameter", ErrMalformedHash)
	}
	return p, salt, hash, nil
}

func isBcrypt(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}

// GeneratePassword returns a random 16 character alphanumeric password.
func GeneratePassword() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 16
	password := make([]byte, length)
	for i := range password {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random password: %w", err)
		}
		password[i] = charset[n.Int64()]
	}
	return string(password), nil
}
