package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/authz"
	"github.com/aussiebroadwan/tenantauth/internal/auth/metrics"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"

	_ "github.com/aussiebroadwan/tenantauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	guards       []*httpx.Buckets

	// TrustedProxies may set the client address through forwarding headers.
	TrustedProxies httpx.TrustedProxies

	store              store.Store
	Enforcer           *authz.Enforcer
	AuditSink          Pinger // optional central audit sink for /readyz
	TokenService       *service.TokenService
	CredentialService  *service.CredentialService
	BootstrapService   *service.BootstrapService
	KeyRotationService *service.KeyRotationService
}

func NewRouter(
	keys *jwtx.KeyManager,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain. Instrument sits innermost so it sees
	// the matched route pattern.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger, r.clientIP),
		metrics.Instrument,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSystem()
	r.registerBootstrap()
	r.registerAuth()
	r.registerProfile()
	r.registerTenants()
	r.registerCredentials()
	r.registerAudit()
	r.registerKeyRotation()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			tenantauth API
//	@version		0.1.0
//	@description	Multi-tenant authentication and authorization service. Issues HS256 JWT access tokens,
//	@description	enforces a role table with tenant isolation and keeps an append-only audit log.
//	@description
//	@description				Tokens live for 8 hours by default and can be revoked before they expire.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/tenantauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// guard limits a route that runs before authentication. Its buckets are
// swept by Sweep.
func (r *Router) guard(p httpx.Profile, key httpx.KeyFunc) httpx.Middleware {
	b := httpx.NewBuckets(p)
	r.guards = append(r.guards, b)
	return httpx.Guard(b, key, func(*http.Request) {
		metrics.RateLimited.WithLabelValues(p.Name).Inc()
	})
}

// Sweep drops idle pre-authentication buckets.
func (r *Router) Sweep(now time.Time) int {
	n := 0
	for _, b := range r.guards {
		n += b.Sweep(now)
	}
	return n
}

func (r *Router) clientIP(req *http.Request) string {
	return r.TrustedProxies.ClientIP(req)
}

// protect wraps h with the enforcer for policy.
func (r *Router) protect(policy authz.Policy, h http.HandlerFunc) http.Handler {
	return r.Enforcer.Protect(policy, h)
}

func (r *Router) registerSystem() {
	// Probes share one lenient per-IP budget.
	probes := r.guard(httpx.LenientLimit, r.clientIP)
	r.Mux.Handle("GET /livez", probes(LivezHandler(r.startTime, r.buildVersion)))
	r.Mux.Handle("GET /readyz", probes(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys, r.AuditSink)))
	r.Mux.Handle("GET /metrics", metrics.Handler())
}

func (r *Router) registerBootstrap() {
	bootstrapHandler := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(bootstrapHandler, r.guard(httpx.StrictLimit, r.clientIP)),
	)
}

func (r *Router) registerAuth() {
	// Login is limited per IP and email, and per email alone, before any
	// password work.
	loginHandler := &LoginHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(loginHandler,
			r.guard(httpx.StrictLimit, httpx.JoinKeys(r.clientIP, httpx.EmailField("email"))),
			r.guard(httpx.AccountLimit, httpx.EmailField("email")),
		),
	)

	revokeHandler := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/auth/revoke", r.protect(authz.Policy{
		Operation: authz.OpProfileRead,
	}, revokeHandler.ServeHTTP))
}

func (r *Router) registerProfile() {
	h := &MeHandler{CredentialService: r.CredentialService}

	r.Mux.Handle("GET /v1/me", r.protect(authz.Policy{
		Operation: authz.OpProfileRead,
	}, h.HandleGet))
	r.Mux.Handle("POST /v1/me/password", r.protect(authz.Policy{
		Operation: authz.OpProfileRead,
	}, h.HandleChangePassword))
}

func (r *Router) registerTenants() {
	h := &TenantsHandler{CredentialService: r.CredentialService}
	scoped := authz.TenantFromPath("tenant_id")

	r.Mux.Handle("POST /v1/tenants", r.protect(authz.Policy{
		Operation: authz.OpTenantsManage,
	}, h.HandleCreateTenant))
	r.Mux.Handle("GET /v1/tenants/{tenant_id}", r.protect(authz.Policy{
		Operation: authz.OpUsersRead,
		Tenant:    scoped,
	}, h.HandleGetTenant))
	r.Mux.Handle("GET /v1/tenants/{tenant_id}/users", r.protect(authz.Policy{
		Operation: authz.OpUsersRead,
		Tenant:    scoped,
	}, h.HandleListUsers))
	r.Mux.Handle("POST /v1/tenants/{tenant_id}/users", r.protect(authz.Policy{
		Operation: authz.OpUsersManage,
		Tenant:    scoped,
	}, h.HandleCreateUser))
	r.Mux.Handle("PUT /v1/tenants/{tenant_id}/users/{user_id}/role", r.protect(authz.Policy{
		Operation: authz.OpUsersManage,
		Tenant:    scoped,
	}, h.HandleChangeRole))
	r.Mux.Handle("POST /v1/tenants/{tenant_id}/users/{user_id}/deactivate", r.protect(authz.Policy{
		Operation: authz.OpUsersManage,
		Tenant:    scoped,
	}, h.HandleDeactivate))
}

func (r *Router) registerCredentials() {
	h := &CredentialsHandler{CredentialService: r.CredentialService}
	scoped := authz.TenantFromPath("tenant_id")
	const path = "/v1/tenants/{tenant_id}/credentials/{portal_id}"

	r.Mux.Handle("PUT "+path, r.protect(authz.Policy{
		Operation: authz.OpCredentialsManage,
		Tenant:    scoped,
	}, h.HandlePut))
	r.Mux.Handle("GET "+path, r.protect(authz.Policy{
		Operation: authz.OpCredentialsRead,
		Tenant:    scoped,
	}, h.HandleGet))
	r.Mux.Handle("DELETE "+path, r.protect(authz.Policy{
		Operation: authz.OpCredentialsManage,
		Tenant:    scoped,
	}, h.HandleDelete))
}

func (r *Router) registerAudit() {
	h := &AuditHandler{Events: r.store.AuditEvents()}

	r.Mux.Handle("GET /v1/tenants/{tenant_id}/audit", r.protect(authz.Policy{
		Operation: authz.OpAuditRead,
		Tenant:    authz.TenantFromPath("tenant_id"),
		Action:    "audit.read",
		Audit:     true,
	}, h.ServeHTTP))
}

func (r *Router) registerKeyRotation() {
	// Key rotation endpoints are available in both ephemeral and persistent modes
	// Ephemeral mode: Keys rotated in-memory only (lost on restart)
	// Persistent mode: Keys persisted to database and survive restarts
	h := &KeyRotationHandler{KeyRotationService: r.KeyRotationService}
	keys := authz.Policy{Operation: authz.OpKeysManage}

	r.Mux.Handle("POST /v1/keys/rotate", r.protect(keys, h.HandleRotate))
	r.Mux.Handle("GET /v1/keys", r.protect(keys, h.HandleListKeys))
	r.Mux.Handle("DELETE /v1/keys/{kid}", r.protect(keys, h.HandleRetireKey))
}
