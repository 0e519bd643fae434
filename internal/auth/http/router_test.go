package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantauth/internal/auth/audit"
	"github.com/aussiebroadwan/tenantauth/internal/auth/authz"
	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

const (
	testIssuer         = "tenantauth-http-test"
	testBootstrapToken = "bootstrap-secret"
	testPassword       = "correct horse battery"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "tenantauth-http")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper.key"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testServer struct {
	router *Router
	store  *sqlite.Store
	creds  *service.CredentialService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer})
	require.NoError(t, err)

	sealer, err := cryptox.NewSealer([]cryptox.SealingKey{{Ref: "k1", Material: []byte("sealing-key-one-0123456789abcdef")}})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditor := audit.New(audit.Config{FlushInterval: 10 * time.Millisecond, Logger: logger},
		audit.StoreSink{Events: st.AuditEvents()})
	t.Cleanup(func() { _ = auditor.Close(context.Background()) })

	creds := &service.CredentialService{Store: st, Sealer: sealer, Audit: auditor}
	tokens := &service.TokenService{
		KeyManager:  km,
		Store:       st,
		Credentials: creds,
		Audit:       auditor,
		Issuer:      testIssuer,
		AccessTTL:   jwtx.DefaultAccessTokenTTL,
	}

	r := NewRouter(km, "test", st, logger)
	r.TokenService = tokens
	r.CredentialService = creds
	r.BootstrapService = &service.BootstrapService{Store: st, Token: testBootstrapToken, Audit: auditor}
	r.KeyRotationService = &service.KeyRotationService{KeyManager: km, Audit: auditor}
	r.Enforcer = &authz.Enforcer{
		Tokens:  tokens,
		Limiter: httpx.NewWindowLimiter(httpx.NewMemoryWindowStore(time.Minute), 1000),
		Audit:   auditor,
	}
	r.ApplyRoutes()

	return &testServer{router: r, store: st, creds: creds}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return s.loginFrom(t, "", nil, email, password)
}

// loginFrom logs in from remote (httptest's default when empty) with extra
// request headers.
func (s *testServer) loginFrom(t *testing.T, remote string, headers map[string]string, email, password string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if remote != "" {
		req.RemoteAddr = remote
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) token(t *testing.T, email string) string {
	t.Helper()
	rec := s.login(t, email, testPassword)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp authsdk.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.AccessToken
}

// seed creates a tenant with one user of role and returns both.
func (s *testServer) seed(t *testing.T, tenantName, email string, role domain.Role) (domain.Tenant, domain.User) {
	t.Helper()
	ctx := context.Background()
	super := domain.Principal{UserID: "seed", Role: domain.RoleSuperAdmin}

	tenant, err := s.creds.CreateTenant(ctx, super, tenantName)
	require.NoError(t, err)
	user, err := s.creds.CreateUser(ctx, service.CreateUserInput{
		Email:    email,
		Password: testPassword,
		Role:     role,
		TenantID: tenant.ID,
	})
	require.NoError(t, err)
	return tenant, user
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) authsdk.ErrorResponse {
	t.Helper()
	var body authsdk.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	tenant, user := s.seed(t, "acme", "alice@acme.test", domain.RoleOperator)

	rec := s.login(t, "alice@acme.test", testPassword)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var login authsdk.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))
	require.Equal(t, "Bearer", login.TokenType)
	require.Equal(t, int64(8*60*60), login.ExpiresIn)

	rec = s.do(t, http.MethodGet, "/v1/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var me authsdk.Me
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	require.Equal(t, user.ID, me.UserID)
	require.Equal(t, tenant.ID, me.TenantID)
	require.Equal(t, "operator", me.Role)
	require.Contains(t, me.Operations, string(authz.OpCredentialsRead))
	require.NotContains(t, me.Operations, string(authz.OpCredentialsManage))
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "acme", "bob@acme.test", domain.RoleViewer)

	rec := s.login(t, "bob@acme.test", "wrong password")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_credentials", decodeError(t, rec).Error)

	rec = s.login(t, "nobody@acme.test", testPassword)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_credentials", decodeError(t, rec).Error)

	rec = s.login(t, "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", decodeError(t, rec).Error)
}

func TestLoginIsRateLimitedPerEmail(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "acme", "bob@acme.test", domain.RoleViewer)

	for i := range httpx.StrictLimit.Burst {
		rec := s.login(t, "bob@acme.test", "wrong password")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	// Case changes share the bucket, even with the right password.
	rec := s.login(t, "BOB@acme.test", testPassword)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "rate_limit_exceeded", decodeError(t, rec).Error)

	// Another account from the same address is unaffected.
	s.seed(t, "globex", "eve@globex.test", domain.RoleViewer)
	require.Equal(t, http.StatusOK, s.login(t, "eve@globex.test", testPassword).Code)

	require.Positive(t, s.router.Sweep(time.Now().Add(time.Hour)))
}

func TestLoginLimitIgnoresSpoofedForwarding(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "acme", "bob@acme.test", domain.RoleViewer)

	// The peer is not a trusted proxy, so a fresh X-Forwarded-For per
	// request does not buy a fresh bucket.
	guesses := 0
	for i := range 50 {
		rec := s.loginFrom(t, "198.51.100.7:4000", map[string]string{
			"X-Forwarded-For": fmt.Sprintf("203.0.113.%d", i+1),
		}, "bob@acme.test", "wrong password")
		if rec.Code == http.StatusUnauthorized {
			guesses++
		}
	}
	require.Equal(t, httpx.StrictLimit.Burst, guesses)
}

func TestLoginIsLimitedPerAccountAcrossAddresses(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "acme", "bob@acme.test", domain.RoleViewer)

	guesses := 0
	for i := range 50 {
		rec := s.loginFrom(t, fmt.Sprintf("198.51.100.%d:4000", i+1), nil, "bob@acme.test", "wrong password")
		if rec.Code == http.StatusUnauthorized {
			guesses++
		}
	}
	require.Equal(t, httpx.AccountLimit.Burst, guesses)
}

func TestTrustedProxySetsClientAddress(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "acme", "bob@acme.test", domain.RoleViewer)
	proxies, err := httpx.ParseTrustedProxies("10.0.0.0/8")
	require.NoError(t, err)
	s.router.TrustedProxies = proxies

	// Behind the proxy each forwarded client has its own IP+email bucket,
	// so only the per-account cap applies.
	guesses := 0
	for i := range 50 {
		rec := s.loginFrom(t, "10.0.0.2:4000", map[string]string{
			"X-Forwarded-For": fmt.Sprintf("203.0.113.%d", i+1),
		}, "bob@acme.test", "wrong password")
		if rec.Code == http.StatusUnauthorized {
			guesses++
		}
	}
	require.Equal(t, httpx.AccountLimit.Burst, guesses)
}

func TestProtectedRouteRequiresBearer(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/v1/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	require.Equal(t, "unauthenticated", decodeError(t, rec).Error)

	rec = s.do(t, http.MethodGet, "/v1/me", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "token_malformed", decodeError(t, rec).Error)
}

func TestRevokedTokenIsRejected(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "acme", "carol@acme.test", domain.RoleViewer)
	tok := s.token(t, "carol@acme.test")

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/revoke", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/me", tok, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "token_revoked", decodeError(t, rec).Error)
}

func TestTenantIsolation(t *testing.T) {
	s := newTestServer(t)
	_, _ = s.seed(t, "acme", "admin@acme.test", domain.RoleAdmin)
	other, _ := s.seed(t, "globex", "admin@globex.test", domain.RoleAdmin)
	tok := s.token(t, "admin@acme.test")

	rec := s.do(t, http.MethodGet, "/v1/tenants/"+other.ID+"/users", tok, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "tenant_mismatch", decodeError(t, rec).Error)

	rec = s.do(t, http.MethodGet, "/v1/tenants/"+other.ID+"/credentials/portal-1", tok, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "tenant_mismatch", decodeError(t, rec).Error)
}

func TestSuperAdminCrossesTenants(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "root", "root@root.test", domain.RoleSuperAdmin)
	other, _ := s.seed(t, "globex", "admin@globex.test", domain.RoleAdmin)
	tok := s.token(t, "root@root.test")

	rec := s.do(t, http.MethodGet, "/v1/tenants/"+other.ID+"/users", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var users authsdk.ListUsersResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&users))
	require.Len(t, users.Users, 1)
	require.Equal(t, "admin@globex.test", users.Users[0].Email)
}

func TestRoleIsCheckedBeforeTenant(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "acme", "viewer@acme.test", domain.RoleViewer)
	other, _ := s.seed(t, "globex", "admin@globex.test", domain.RoleAdmin)
	tok := s.token(t, "viewer@acme.test")

	rec := s.do(t, http.MethodGet, "/v1/tenants/"+other.ID+"/users", tok, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "forbidden", decodeError(t, rec).Error)
}

func TestUserManagement(t *testing.T) {
	s := newTestServer(t)
	tenant, _ := s.seed(t, "acme", "admin@acme.test", domain.RoleAdmin)
	tok := s.token(t, "admin@acme.test")
	base := "/v1/tenants/" + tenant.ID + "/users"

	rec := s.do(t, http.MethodPost, base, tok, authsdk.CreateUserRequest{
		Email:    "dave@acme.test",
		Password: testPassword,
		Role:     "operator",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created authsdk.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Equal(t, tenant.ID, created.TenantID)
	require.Equal(t, "operator", created.Role)

	// Only a super_admin may grant super_admin.
	rec = s.do(t, http.MethodPost, base, tok, authsdk.CreateUserRequest{
		Email:    "eve@acme.test",
		Password: testPassword,
		Role:     "super_admin",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, base, tok, authsdk.CreateUserRequest{
		Email:    "dave@acme.test",
		Password: testPassword,
		Role:     "viewer",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "duplicate_email", decodeError(t, rec).Error)

	daveTok := s.token(t, "dave@acme.test")

	rec = s.do(t, http.MethodPut, base+"/"+created.ID+"/role", tok, authsdk.ChangeRoleRequest{Role: "viewer"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, base+"/"+created.ID+"/deactivate", tok, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/me", daveTok, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.login(t, "dave@acme.test", testPassword)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserOfAnotherTenantReadsAsNotFound(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "root", "root@root.test", domain.RoleSuperAdmin)
	acme, _ := s.seed(t, "acme", "admin@acme.test", domain.RoleAdmin)
	_, globexUser := s.seed(t, "globex", "admin@globex.test", domain.RoleAdmin)
	tok := s.token(t, "root@root.test")

	rec := s.do(t, http.MethodPost, "/v1/tenants/"+acme.ID+"/users/"+globexUser.ID+"/deactivate", tok, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMerchantCredentials(t *testing.T) {
	s := newTestServer(t)
	tenant, _ := s.seed(t, "acme", "admin@acme.test", domain.RoleAdmin)
	ctx := context.Background()
	_, err := s.creds.CreateUser(ctx, service.CreateUserInput{
		Email: "op@acme.test", Password: testPassword, Role: domain.RoleOperator, TenantID: tenant.ID,
	})
	require.NoError(t, err)

	admin := s.token(t, "admin@acme.test")
	operator := s.token(t, "op@acme.test")
	path := "/v1/tenants/" + tenant.ID + "/credentials/portal-1"

	secret := authsdk.PortalSecret{Username: "merchant", Password: "hunter2", Extra: map[string]string{"store": "42"}}
	rec := s.do(t, http.MethodPut, path, admin, secret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cred authsdk.Credential
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cred))
	require.Equal(t, "portal-1", cred.PortalID)
	require.Equal(t, "k1", cred.KeyRef)

	// Operators may read but not write.
	rec = s.do(t, http.MethodPut, path, operator, secret)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, path, operator, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got authsdk.PortalSecret
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Equal(t, secret, got)

	rec = s.do(t, http.MethodDelete, path, admin, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, path, operator, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditLog(t *testing.T) {
	s := newTestServer(t)
	tenant, admin := s.seed(t, "acme", "admin@acme.test", domain.RoleAdmin)
	tok := s.token(t, "admin@acme.test")
	path := "/v1/tenants/" + tenant.ID + "/audit"

	rec := s.do(t, http.MethodGet, path+"?limit=0", tok, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Eventually(t, func() bool {
		rec := s.do(t, http.MethodGet, path, tok, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		var resp authsdk.ListAuditResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			return false
		}
		var sawLogin, sawRead bool
		for _, e := range resp.Events {
			if e.TenantID != tenant.ID {
				return false
			}
			switch e.Action {
			case domain.ActionLogin:
				sawLogin = e.ActorID == admin.ID && e.Outcome == string(domain.OutcomeSuccess)
			case "audit.read":
				sawRead = true
			}
		}
		return sawLogin && sawRead
	}, 2*time.Second, 20*time.Millisecond)
}

func TestKeyRotationRequiresSuperAdmin(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "root", "root@root.test", domain.RoleSuperAdmin)
	s.seed(t, "acme", "admin@acme.test", domain.RoleAdmin)
	root := s.token(t, "root@root.test")
	admin := s.token(t, "admin@acme.test")

	rec := s.do(t, http.MethodPost, "/v1/keys/rotate", admin, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/keys/rotate", root, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rotated authsdk.RotateKeyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rotated))
	require.True(t, rotated.NewKey.Primary)
	require.Equal(t, 2, rotated.ActiveKeys)

	// Tokens signed before the rotation keep verifying.
	rec = s.do(t, http.MethodGet, "/v1/me", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/keys", root, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var keys authsdk.ListKeysResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&keys))
	require.Len(t, keys.Keys, 2)
}

func TestBootstrap(t *testing.T) {
	s := newTestServer(t)
	body := authsdk.BootstrapRequest{
		TenantName:    "root",
		AdminEmail:    "root@root.test",
		AdminPassword: testPassword,
	}

	post := func(token string, body any) *httptest.ResponseRecorder {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/v1/bootstrap", bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set(authsdk.BootstrapTokenHeader, token)
		}
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	rec := post("", body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post("wrong", body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(testBootstrapToken, authsdk.BootstrapRequest{TenantName: "bad name!", AdminEmail: "x", AdminPassword: "short"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeError(t, rec)
	require.Contains(t, errBody.Fields, "tenant_name")
	require.Contains(t, errBody.Fields, "admin_email")
	require.Contains(t, errBody.Fields, "admin_password")

	rec = post(testBootstrapToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created authsdk.BootstrapResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotEmpty(t, created.TenantID)
	require.NotEmpty(t, created.AdminUserID)

	rec = post(testBootstrapToken, body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	tok := s.token(t, "root@root.test")
	rec = s.do(t, http.MethodGet, "/v1/me", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBootstrapDisabled(t *testing.T) {
	s := newTestServer(t)
	s.router.BootstrapService.Token = ""

	req := httptest.NewRequest(http.MethodPost, "/v1/bootstrap", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("unreachable") }

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health authsdk.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Checks.Database)
	require.Empty(t, health.Checks.AuditSink)
}

func TestReadyzAuditSinkDegrades(t *testing.T) {
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer})
	require.NoError(t, err)

	h := ReadyzHandler(time.Now(), "test", st, km, failingPinger{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health authsdk.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	require.Equal(t, "degraded", health.Status)
	require.Equal(t, "error", health.Checks.AuditSink)

	h = ReadyzHandler(time.Now(), "test", failingPinger{}, km, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
