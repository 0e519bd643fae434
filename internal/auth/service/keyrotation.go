package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// KeyRotationService handles signing key rotation for both ephemeral and
// persistent modes. Rotations are serialized.
//
// In ephemeral mode (Store == nil):
//   - Keys live in the KeyManager only
//   - Retired keys keep verifying until their grace deadline or a restart
//
// In persistent mode (Store != nil):
//   - Key secrets are encrypted with the master key and stored
//   - Retired keys keep verifying across restarts until expires_at
type KeyRotationService struct {
	Store       store.Store // nil for ephemeral mode
	KeyManager  *jwtx.KeyManager
	GracePeriod time.Duration
	Audit       Recorder
	Now         func() time.Time

	mu sync.Mutex
}

// SigningKeyInfo is the public view of a signing key. It never includes
// key material.
type SigningKeyInfo struct {
	Kid       string     `json:"kid"`
	Algorithm string     `json:"alg"`
	Primary   bool       `json:"primary"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	RetiredAt *time.Time `json:"retired_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// RotateKeyRequest represents a request to rotate signing keys.
type RotateKeyRequest struct {
	// RetireExisting moves the current keys into their grace window.
	// If false, the new key becomes primary and older keys stay active.
	RetireExisting bool
}

// RotateKeyResponse represents the result of a key rotation operation.
type RotateKeyResponse struct {
	NewKey      SigningKeyInfo   `json:"new_key"`
	RetiredKeys []SigningKeyInfo `json:"retired_keys,omitempty"`
	ActiveKeys  int              `json:"active_keys"`
}

func (s *KeyRotationService) gracePeriod() time.Duration {
	if s.GracePeriod <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.GracePeriod
}

// RotateKey generates a new signing key and makes it primary.
func (s *KeyRotationService) RotateKey(ctx context.Context, actor domain.Principal, req RotateKeyRequest) (*RotateKeyResponse, error) {
	ev := actorEvent(actor, domain.ActionKeyRotate, "signing_key")

	resp, err := s.rotateKey(ctx, req)
	if err == nil {
		ev.Resource = "signing_key:" + resp.NewKey.Kid
	}
	record(ctx, s.Audit, withOutcome(ev, err))
	return resp, err
}

func (s *KeyRotationService) rotateKey(ctx context.Context, req RotateKeyRequest) (*RotateKeyResponse, error) {
	if s.KeyManager == nil {
		return nil, fmt.Errorf("KeyManager is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := clock(s.Now)
	until := now.Add(s.gracePeriod())

	var (
		signer *jwtx.HMACSigner
		err    error
	)

	toRetire := s.activeKids()

	if s.Store != nil {
		var rec jwtx.SigningKeyRecord
		signer, rec, err = jwtx.NewSigningKeyRecord(now)
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}

		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.SigningKeys().CreateSigningKey(ctx, store.RecordToSigningKey(rec)); err != nil {
				return fmt.Errorf("store new signing key: %w", err)
			}
			if !req.RetireExisting {
				return nil
			}
			for _, kid := range toRetire {
				err := tx.SigningKeys().RetireSigningKey(ctx, kid, now, until)
				if err != nil && !errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("retire key %s: %w", kid, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		signer, err = jwtx.GenerateHMACSigner()
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}

	resp := &RotateKeyResponse{
		NewKey: SigningKeyInfo{Kid: signer.KID(), Algorithm: signer.Alg(), Primary: true, CreatedAt: &now},
	}

	if req.RetireExisting {
		retired, err := s.KeyManager.Rotate(signer, until)
		if err != nil {
			return nil, err
		}
		for _, kid := range retired {
			resp.RetiredKeys = append(resp.RetiredKeys, SigningKeyInfo{
				Kid:       kid,
				Algorithm: jwtx.AlgorithmHS256,
				RetiredAt: &now,
				ExpiresAt: &until,
			})
		}
	} else if err := s.KeyManager.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("add signer: %w", err)
	}
	resp.ActiveKeys = s.KeyManager.NumSigners()

	slogx.FromContext(ctx).Info("signing key rotated",
		slog.String("kid", signer.KID()),
		slog.Int("retired", len(resp.RetiredKeys)),
		slog.Time("grace_until", until),
	)
	return resp, nil
}

// ListSigningKeys returns the keyring. In persistent mode it lists the
// stored keys, otherwise the keys held in memory.
func (s *KeyRotationService) ListSigningKeys(ctx context.Context) ([]SigningKeyInfo, error) {
	if s.KeyManager == nil {
		return nil, fmt.Errorf("KeyManager is required")
	}

	primary := ""
	if signer := s.KeyManager.GetSigner(); signer != nil {
		primary = signer.KID()
	}

	if s.Store != nil {
		keys, err := s.Store.SigningKeys().ListSigningKeys(ctx)
		if err != nil {
			return nil, fmt.Errorf("list signing keys: %w", err)
		}
		out := make([]SigningKeyInfo, len(keys))
		for i, k := range keys {
			created := k.CreatedAt
			out[i] = SigningKeyInfo{
				Kid:       k.Kid,
				Algorithm: k.Algorithm,
				Primary:   k.Kid == primary,
				CreatedAt: &created,
				RetiredAt: k.RetiredAt,
				ExpiresAt: k.ExpiresAt,
			}
		}
		return out, nil
	}

	keys := s.KeyManager.Keys()
	out := make([]SigningKeyInfo, len(keys))
	for i, k := range keys {
		out[i] = SigningKeyInfo{Kid: k.Kid, Algorithm: jwtx.AlgorithmHS256, Primary: k.Primary}
		if !k.Active && !k.NotAfter.IsZero() {
			notAfter := k.NotAfter
			out[i].ExpiresAt = &notAfter
		}
	}
	return out, nil
}

// RetireKey removes an active key from signing. It keeps verifying for the
// grace period. The last active key cannot be retired.
func (s *KeyRotationService) RetireKey(ctx context.Context, actor domain.Principal, kid string) error {
	ev := actorEvent(actor, domain.ActionKeyRetire, "signing_key:"+kid)
	err := s.retireKey(ctx, kid)
	record(ctx, s.Audit, withOutcome(ev, err))
	return err
}

func (s *KeyRotationService) retireKey(ctx context.Context, kid string) error {
	if s.KeyManager == nil {
		return fmt.Errorf("KeyManager is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.activeKids()
	found := false
	for _, k := range active {
		found = found || k == kid
	}
	if !found {
		return domain.ErrNotFound
	}
	if len(active) <= 1 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, jwtx.ErrLastSigner)
	}

	now := clock(s.Now)
	until := now.Add(s.gracePeriod())

	if s.Store != nil {
		if err := s.Store.SigningKeys().RetireSigningKey(ctx, kid, now, until); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("retire key: %w", err)
		}
	}
	if err := s.KeyManager.RetireSignerByKid(kid, until); err != nil {
		return fmt.Errorf("retire key: %w", err)
	}

	slogx.FromContext(ctx).Info("signing key retired", slog.String("kid", kid), slog.Time("grace_until", until))
	return nil
}

func (s *KeyRotationService) activeKids() []string {
	var kids []string
	for _, k := range s.KeyManager.Keys() {
		if k.Active {
			kids = append(kids, k.Kid)
		}
	}
	return kids
}
