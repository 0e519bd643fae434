package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestRotateKeyEphemeral(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	acme := h.tenant(t, "acme")
	u := h.user(t, acme.ID, "ops@acme.test", domain.RoleOperator)

	before, err := h.tokens.IssueToken(ctx, u)
	require.NoError(t, err)
	oldKid := h.km.GetSigner().KID()

	resp, err := h.keys.RotateKey(ctx, systemActor, RotateKeyRequest{RetireExisting: true})
	require.NoError(t, err)
	require.NotEqual(t, oldKid, resp.NewKey.Kid)
	require.Equal(t, 1, resp.ActiveKeys)
	require.Len(t, resp.RetiredKeys, 1)
	require.Equal(t, oldKid, resp.RetiredKeys[0].Kid)
	require.Equal(t, resp.NewKey.Kid, h.km.GetSigner().KID())
	require.Equal(t, domain.ActionKeyRotate, h.audit.last(t).Action)

	after, err := h.tokens.IssueToken(ctx, u)
	require.NoError(t, err)

	t.Run("old token verifies inside the grace window", func(t *testing.T) {
		h.clock.Advance(30 * time.Minute)
		_, err := h.tokens.VerifyToken(ctx, before.Token)
		require.NoError(t, err)
	})

	t.Run("old token fails after the grace window", func(t *testing.T) {
		h.clock.Advance(31 * time.Minute)
		require.Equal(t, []string{oldKid}, h.km.PruneExpired())

		_, err := h.tokens.VerifyToken(ctx, before.Token)
		require.ErrorIs(t, err, domain.ErrInvalidSignature)

		_, err = h.tokens.VerifyToken(ctx, after.Token)
		require.NoError(t, err)
	})
}

func TestRetireKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	only := h.km.GetSigner().KID()

	err := h.keys.RetireKey(ctx, systemActor, only)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.ErrorIs(t, err, jwtx.ErrLastSigner)

	require.ErrorIs(t, h.keys.RetireKey(ctx, systemActor, "unknown"), domain.ErrNotFound)

	resp, err := h.keys.RotateKey(ctx, systemActor, RotateKeyRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, resp.ActiveKeys)

	require.NoError(t, h.keys.RetireKey(ctx, systemActor, only))
	require.Equal(t, 1, h.km.NumSigners())

	keys, err := h.keys.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	require.True(t, keys[0].Primary)
	require.Equal(t, resp.NewKey.Kid, keys[0].Kid)
	require.NotNil(t, keys[1].ExpiresAt)
}

func TestRotateKeyPersistent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	cryptox.ResetMasterKeyForTesting()
	t.Cleanup(cryptox.ResetMasterKeyForTesting)

	km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
		Store:  store.NewKeyStoreAdapter(h.store),
		Issuer: testIssuer,
		Now:    h.clock.Now,
	})
	require.NoError(t, err)
	first := km.GetSigner().KID()

	svc := &KeyRotationService{Store: h.store, KeyManager: km, GracePeriod: time.Hour, Now: h.clock.Now}
	resp, err := svc.RotateKey(ctx, systemActor, RotateKeyRequest{RetireExisting: true})
	require.NoError(t, err)

	retired, err := h.store.SigningKeys().GetSigningKeyByKid(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, retired.RetiredAt)
	require.True(t, retired.ExpiresAt.Equal(h.clock.Now().Add(time.Hour)))

	t.Run("keyring survives a restart", func(t *testing.T) {
		reloaded, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			Store:  store.NewKeyStoreAdapter(h.store),
			Issuer: testIssuer,
			Now:    h.clock.Now,
		})
		require.NoError(t, err)
		require.Equal(t, resp.NewKey.Kid, reloaded.GetSigner().KID())
		require.Equal(t, 1, reloaded.NumSigners())
		require.ElementsMatch(t, []string{first, resp.NewKey.Kid}, reloaded.KeySet.Kids())
	})

	keys, err := svc.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
}
