package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "tenantauth-service")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper.key"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
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

type captureRecorder struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (r *captureRecorder) Record(_ context.Context, e domain.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *captureRecorder) last(t *testing.T) domain.AuditEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.events)
	return r.events[len(r.events)-1]
}

type harness struct {
	store  *sqlite.Store
	clock  *fakeClock
	audit  *captureRecorder
	km     *jwtx.KeyManager
	creds  *CredentialService
	tokens *TokenService
	keys   *KeyRotationService
}

const testIssuer = "tenantauth-test"

func newHarness(t *testing.T) *harness {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	clk := newFakeClock()
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, Now: clk.Now})
	require.NoError(t, err)

	sealer, err := cryptox.NewSealer([]cryptox.SealingKey{{Ref: "k1", Material: []byte("sealing-key-one-0123456789abcdef")}})
	require.NoError(t, err)

	rec := &captureRecorder{}
	creds := &CredentialService{Store: s, Sealer: sealer, Audit: rec, Now: clk.Now}
	return &harness{
		store: s,
		clock: clk,
		audit: rec,
		km:    km,
		creds: creds,
		tokens: &TokenService{
			KeyManager:  km,
			Store:       s,
			Credentials: creds,
			Audit:       rec,
			Issuer:      testIssuer,
			AccessTTL:   jwtx.DefaultAccessTokenTTL,
			Now:         clk.Now,
		},
		keys: &KeyRotationService{KeyManager: km, GracePeriod: time.Hour, Audit: rec, Now: clk.Now},
	}
}

func (h *harness) tenant(t *testing.T, name string) domain.Tenant {
	t.Helper()
	tenant, err := h.creds.CreateTenant(context.Background(), systemActor, name)
	require.NoError(t, err)
	return tenant
}

func (h *harness) user(t *testing.T, tenantID, email string, role domain.Role) domain.User {
	t.Helper()
	u, err := h.creds.CreateUser(context.Background(), CreateUserInput{
		Email:    email,
		Password: "correct horse battery",
		Role:     role,
		TenantID: tenantID,
	})
	require.NoError(t, err)
	return u
}

func principalOf(u domain.User) domain.Principal {
	return domain.Principal{UserID: u.ID, Role: u.Role, TenantID: u.TenantID}
}
