package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrMissingKID  = errors.New("jwtx: missing kid")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// HMACVerifier validates HS256 tokens against a KeySet.
//
// Checks run in a fixed order: structure, kid, signature, required claims,
// issuer, then exp/nbf. A token that fails more than one check reports the
// first failure.
type HMACVerifier struct {
	keys   *KeySet
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// VerifierOption customises an HMACVerifier.
type VerifierOption func(*HMACVerifier)

// WithLeeway allows small clock skew when validating exp/nbf.
func WithLeeway(d time.Duration) VerifierOption {
	return func(v *HMACVerifier) { v.leeway = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *HMACVerifier) { v.now = now }
}

// NewHMACVerifier creates a verifier. An empty issuer is not enforced.
func NewHMACVerifier(keys *KeySet, issuer string, opts ...VerifierOption) *HMACVerifier {
	v := &HMACVerifier{keys: keys, issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *HMACVerifier) Verify(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, ErrMalformed
	}

	now := v.now()
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrMissingKID
		}
		secret, err := v.keys.Get(kid, now)
		if err != nil {
			return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
		}
		return secret, nil
	})
	if err != nil {
		return Claims{}, classifyParseError(err)
	}

	if err := claims.ValidateRequired(); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateTimes(now, v.leeway); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// classifyParseError folds golang-jwt's error tree into our sentinels. The
// returned error wraps both so callers can log the detail.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, ErrMissingKID):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, ErrUnknownKID):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
