package jwtx_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var (
	secretA = bytes.Repeat([]byte("a"), 32)
	secretB = bytes.Repeat([]byte("b"), 32)
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func issue(t *testing.T, km *jwtx.KeyManager, now time.Time) string {
	t.Helper()
	c := jwtx.NewAccessClaims("user-1", "admin", "tenant-1", "test-issuer", time.Hour, now)
	tok, err := km.GetSigner().Sign(c)
	require.NoError(t, err)
	return tok
}

func TestNewKeyManager(t *testing.T) {
	t.Run("requires issuer", func(t *testing.T) {
		_, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{})
		require.ErrorContains(t, err, "Issuer is required")
	})

	t.Run("rejects short secrets", func(t *testing.T) {
		_, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "i", Secrets: [][]byte{[]byte("short")}})
		require.ErrorContains(t, err, "at least 32 bytes")
	})

	t.Run("generates a key when none configured", func(t *testing.T) {
		km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "i"})
		require.NoError(t, err)
		require.True(t, km.IsReady())
		require.Equal(t, 1, km.NumSigners())
		require.Equal(t, jwtx.AlgorithmHS256, km.GetSigner().Alg())
	})

	t.Run("first secret is primary, rest verify only", func(t *testing.T) {
		km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "i", Secrets: [][]byte{secretA, secretB}})
		require.NoError(t, err)
		require.Equal(t, 1, km.NumSigners())
		require.Equal(t, cryptox.KeyID(secretA), km.GetSigner().KID())

		keys := km.Keys()
		require.Len(t, keys, 2)
		require.True(t, keys[0].Primary)
		require.False(t, keys[1].Active)
		require.Equal(t, cryptox.KeyID(secretB), keys[1].Kid)
	})
}

func TestKeyManager_SignAndVerifyRoundTrip(t *testing.T) {
	clock := newClock()
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "test-issuer", Secrets: [][]byte{secretA}, Now: clock.Now})
	require.NoError(t, err)

	tok := issue(t, km, clock.Now())
	claims, err := km.Verifier.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, "tenant-1", claims.TenantID)
}

func TestKeyManager_PreviousSecretStillVerifies(t *testing.T) {
	clock := newClock()
	before, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "test-issuer", Secrets: [][]byte{secretB}, Now: clock.Now})
	require.NoError(t, err)
	tok := issue(t, before, clock.Now())

	after, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "test-issuer", Secrets: [][]byte{secretA, secretB}, Now: clock.Now})
	require.NoError(t, err)
	_, err = after.Verifier.Verify(tok)
	require.NoError(t, err)

	dropped, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "test-issuer", Secrets: [][]byte{secretA}, Now: clock.Now})
	require.NoError(t, err)
	_, err = dropped.Verifier.Verify(tok)
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)
}

func TestKeyManager_RotateKeepsOldKeyForGraceWindow(t *testing.T) {
	clock := newClock()
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "test-issuer", Secrets: [][]byte{secretA}, Now: clock.Now})
	require.NoError(t, err)

	oldTok := issue(t, km, clock.Now())

	next, err := jwtx.NewHMACSigner("", secretB)
	require.NoError(t, err)
	retired, err := km.Rotate(next, clock.Now().Add(30*time.Minute))
	require.NoError(t, err)
	require.Equal(t, []string{cryptox.KeyID(secretA)}, retired)
	require.Equal(t, next.KID(), km.GetSigner().KID())

	newTok := issue(t, km, clock.Now())

	_, err = km.Verifier.Verify(oldTok)
	require.NoError(t, err, "old key verifies during grace window")
	_, err = km.Verifier.Verify(newTok)
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	_, err = km.Verifier.Verify(oldTok)
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	_, err = km.Verifier.Verify(newTok)
	require.NoError(t, err)

	require.Equal(t, []string{cryptox.KeyID(secretA)}, km.PruneExpired())
	require.Len(t, km.Keys(), 1)
}

func TestKeyManager_RetireSignerByKid(t *testing.T) {
	clock := newClock()
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "test-issuer", Secrets: [][]byte{secretA}, Now: clock.Now})
	require.NoError(t, err)
	first := km.GetSigner().KID()

	require.ErrorIs(t, km.RetireSignerByKid(first, time.Time{}), jwtx.ErrLastSigner)
	require.ErrorIs(t, km.RetireSignerByKid("missing", time.Time{}), jwtx.ErrSignerUnknown)

	second, err := jwtx.NewHMACSigner("", secretB)
	require.NoError(t, err)
	require.NoError(t, km.AddSigner(second))
	require.Equal(t, 2, km.NumSigners())
	require.Equal(t, second.KID(), km.GetSigner().KID(), "newest signer is primary")

	tok := issue(t, km, clock.Now())
	require.NoError(t, km.RetireSignerByKid(second.KID(), time.Time{}))
	_, err = km.Verifier.Verify(tok)
	require.ErrorIs(t, err, jwtx.ErrUnknownKID, "zero deadline drops the key immediately")
	require.Equal(t, first, km.GetSigner().KID())
}

type memKeyStore struct {
	records []jwtx.SigningKeyRecord
}

func (m *memKeyStore) ListUsableSigningKeys(_ context.Context, now time.Time) ([]jwtx.SigningKeyRecord, error) {
	var out []jwtx.SigningKeyRecord
	for _, r := range m.records {
		if r.ExpiresAt != nil && !now.Before(*r.ExpiresAt) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memKeyStore) CreateSigningKey(_ context.Context, rec jwtx.SigningKeyRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func TestPersistentKeyManager(t *testing.T) {
	t.Setenv(cryptox.MasterKeyEnv, "persistent-key-manager-test")
	cryptox.ResetMasterKeyForTesting()
	t.Cleanup(cryptox.ResetMasterKeyForTesting)

	ctx := context.Background()
	clock := newClock()
	ks := &memKeyStore{}

	km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{Store: ks, Issuer: "test-issuer", Now: clock.Now})
	require.NoError(t, err)
	require.Len(t, ks.records, 1, "first start generates a key")
	require.NotContains(t, string(ks.records[0].SecretEncrypted), string(km.GetSigner().(*jwtx.HMACSigner).Secret()))

	tok := issue(t, km, clock.Now())

	restarted, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{Store: ks, Issuer: "test-issuer", Now: clock.Now})
	require.NoError(t, err)
	require.Len(t, ks.records, 1, "existing key is reused")
	_, err = restarted.Verifier.Verify(tok)
	require.NoError(t, err)

	t.Run("retired key within grace verifies but does not sign", func(t *testing.T) {
		signer, rec, err := jwtx.NewSigningKeyRecord(clock.Now().Add(time.Second))
		require.NoError(t, err)
		retiredAt := clock.Now()
		until := clock.Now().Add(time.Hour)
		ks.records[0].RetiredAt = &retiredAt
		ks.records[0].ExpiresAt = &until
		require.NoError(t, ks.CreateSigningKey(ctx, rec))

		km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{Store: ks, Issuer: "test-issuer", Now: clock.Now})
		require.NoError(t, err)
		require.Equal(t, signer.KID(), km.GetSigner().KID())
		_, err = km.Verifier.Verify(tok)
		require.NoError(t, err)
	})
}
