package jwtx

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrLastSigner    = errors.New("jwtx: cannot retire the last signing key")
	ErrSignerUnknown = errors.New("jwtx: signer not found")
)

// KeyInfo describes one key held by a KeyManager.
type KeyInfo struct {
	Kid      string
	Primary  bool
	Active   bool
	NotAfter time.Time
}

// KeyManager owns the signing keyring of one process.
//
// Active signers are ordered newest first and the first one is the primary:
// it signs every new token. Retired keys leave the active list but stay in
// the KeySet until their deadline so tokens issued before a rotation keep
// verifying for the transition window.
type KeyManager struct {
	Verifier *HMACVerifier
	KeySet   *KeySet

	mu      sync.RWMutex
	signers []*HMACSigner
	retired map[string]time.Time
	now     func() time.Time
}

// KeyManagerOptions configures an environment-provided keyring.
type KeyManagerOptions struct {
	// Issuer is the iss claim enforced by the verifier.
	Issuer string

	// Secrets are HMAC secrets, first is primary. The remaining ones only
	// verify. When empty, a random secret is generated.
	Secrets [][]byte

	// Leeway allows clock skew when validating exp/nbf.
	Leeway time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewKeyManager builds a keyring from configured secrets. Secrets after the
// first are previous keys accepted for verification without a deadline;
// operators drop them from configuration once the transition is over.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	km := newKeyManager(opts.Issuer, opts.Leeway, opts.Now)

	secrets := opts.Secrets
	if len(secrets) == 0 {
		s, err := GenerateSecret()
		if err != nil {
			return nil, err
		}
		secrets = [][]byte{s}
	}

	for i, secret := range secrets {
		signer, err := NewHMACSigner("", secret)
		if err != nil {
			return nil, fmt.Errorf("jwtx: secret %d: %w", i+1, err)
		}
		if i == 0 {
			km.signers = append(km.signers, signer)
			km.KeySet.Add(signer.KID(), signer.secret, time.Time{})
			continue
		}
		km.KeySet.Add(signer.KID(), signer.secret, time.Time{})
		km.retired[signer.KID()] = time.Time{}
	}
	return km, nil
}

func newKeyManager(issuer string, leeway time.Duration, now func() time.Time) *KeyManager {
	if now == nil {
		now = time.Now
	}
	keys := NewKeySet()
	return &KeyManager{
		KeySet:   keys,
		Verifier: NewHMACVerifier(keys, issuer, WithLeeway(leeway), WithClock(now)),
		retired:  make(map[string]time.Time),
		now:      now,
	}
}

// IsReady returns true if the KeyManager can sign.
func (km *KeyManager) IsReady() bool {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers) > 0
}

// GetSigner returns the primary signer.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()
	if len(km.signers) == 0 {
		return nil
	}
	return km.signers[0]
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// AddSigner makes signer the new primary. Previous signers stay active.
func (km *KeyManager) AddSigner(signer *HMACSigner) error {
	if signer == nil {
		return fmt.Errorf("signer cannot be nil")
	}
	km.mu.Lock()
	defer km.mu.Unlock()
	km.addPrimaryLocked(signer)
	return nil
}

func (km *KeyManager) addPrimaryLocked(signer *HMACSigner) {
	km.KeySet.Add(signer.KID(), signer.secret, time.Time{})
	delete(km.retired, signer.KID())
	km.signers = append([]*HMACSigner{signer}, km.signers...)
}

// Rotate installs signer as primary and retires every other active key with
// the given deadline, in one step. It returns the retired kids.
func (km *KeyManager) Rotate(signer *HMACSigner, retireUntil time.Time) ([]string, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer cannot be nil")
	}
	km.mu.Lock()
	defer km.mu.Unlock()

	retired := make([]string, 0, len(km.signers))
	for _, s := range km.signers {
		retired = append(retired, s.KID())
		km.retired[s.KID()] = retireUntil
		_ = km.KeySet.SetDeadline(s.KID(), retireUntil)
	}
	km.signers = nil
	km.addPrimaryLocked(signer)
	return retired, nil
}

// RetireSignerByKid removes a key from signing. It keeps verifying until
// until; a zero until drops it from verification immediately.
func (km *KeyManager) RetireSignerByKid(kid string, until time.Time) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	idx := -1
	for i, s := range km.signers {
		if s.KID() == kid {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrSignerUnknown, kid)
	}
	if len(km.signers) <= 1 {
		return ErrLastSigner
	}

	km.signers = append(km.signers[:idx:idx], km.signers[idx+1:]...)
	if until.IsZero() {
		km.KeySet.Remove(kid)
		return nil
	}
	km.retired[kid] = until
	return km.KeySet.SetDeadline(kid, until)
}

// RetireVerificationKey stops accepting a verification-only key. It is used
// when a retired key's grace window is cut short.
func (km *KeyManager) RetireVerificationKey(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()
	if _, ok := km.retired[kid]; !ok {
		return fmt.Errorf("%w: %q", ErrSignerUnknown, kid)
	}
	delete(km.retired, kid)
	km.KeySet.Remove(kid)
	return nil
}

// PruneExpired drops retired keys whose grace window has ended.
func (km *KeyManager) PruneExpired() []string {
	km.mu.Lock()
	defer km.mu.Unlock()
	pruned := km.KeySet.Prune(km.now())
	for _, kid := range pruned {
		delete(km.retired, kid)
	}
	return pruned
}

// Keys lists the keyring, active keys first.
func (km *KeyManager) Keys() []KeyInfo {
	km.mu.RLock()
	defer km.mu.RUnlock()

	out := make([]KeyInfo, 0, len(km.signers)+len(km.retired))
	for i, s := range km.signers {
		out = append(out, KeyInfo{Kid: s.KID(), Primary: i == 0, Active: true})
	}
	for _, kid := range km.KeySet.Kids() {
		if until, ok := km.retired[kid]; ok {
			out = append(out, KeyInfo{Kid: kid, NotAfter: until})
		}
	}
	return out
}
