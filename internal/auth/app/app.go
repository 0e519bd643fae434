package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/tenantauth/internal/auth/audit"
	"github.com/aussiebroadwan/tenantauth/internal/auth/authz"
	httpapi "github.com/aussiebroadwan/tenantauth/internal/auth/http"
	"github.com/aussiebroadwan/tenantauth/internal/auth/metrics"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X ...app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	keyManager *jwtx.KeyManager
	sealer     *cryptox.Sealer
	auditor    *audit.Auditor
	auditSink  *audit.PostgresSink // nil without AUDIT_POSTGRES_DSN
	redis      *redis.Client       // nil without RATE_LIMIT_REDIS_ADDR
	limiter    *httpx.WindowLimiter
	windows    service.Sweeper // in-memory window store, nil with Redis

	// Services
	credentialService   *service.CredentialService
	tokenService        *service.TokenService
	bootstrapService    *service.BootstrapService
	keyRotationService  *service.KeyRotationService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tenantauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	// Initialize database first (required for persistent keys)
	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	// Initialize JWT key manager (after database for persistent mode)
	ctx := context.Background()
	keyManager, err := InitAuthKeys(ctx, app.cfg, app.db, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initSealer(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initAudit(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initLimiter()

	metrics.Init()
	app.initServices()
	app.initHTTP()
	app.initHousekeeping()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops accepting requests, drains the audit buffer and closes the
// store last so buffered events still reach it.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	if err := app.auditor.Close(ctx); err != nil {
		app.logger.Error("audit buffer not fully flushed", "error", err, "dropped", app.auditor.Dropped())
	}
	if app.auditSink != nil {
		app.auditSink.Close()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := OpenStore(app.cfg)
	if err != nil {
		return err
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// OpenStore opens the configured SQLite database without migrating it.
func OpenStore(cfg Config) (*sqlite.Store, error) {
	db, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// NewSealer builds the merchant credential sealer. Without configured keys a
// random key is used, which is refused in production by Config.Validate.
func NewSealer(cfg Config, logger *slog.Logger) (*cryptox.Sealer, error) {
	if cfg.CredentialKeys == "" {
		logger.Warn("CREDENTIAL_ENCRYPTION_KEYS not set; merchant credentials are sealed with a throwaway key")
		return cryptox.NewEphemeralSealer()
	}
	keys, err := cryptox.ParseSealingKeys(cfg.CredentialKeys)
	if err != nil {
		return nil, fmt.Errorf("CREDENTIAL_ENCRYPTION_KEYS: %w", err)
	}
	return cryptox.NewSealer(keys)
}

func (app *Application) initSealer() error {
	sealer, err := NewSealer(app.cfg, app.logger)
	if err != nil {
		return err
	}
	app.sealer = sealer
	app.logger.Info("credential sealer ready", "primary_key", sealer.Primary())
	return nil
}

// initAudit starts the audit worker. The local store always receives events;
// a Postgres sink is added when configured.
func (app *Application) initAudit(ctx context.Context) error {
	sinks := []audit.Sink{audit.StoreSink{Events: app.db.AuditEvents()}}

	if app.cfg.AuditPostgresDSN != "" {
		pg, err := audit.NewPostgresSink(ctx, app.cfg.AuditPostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to initialize postgres audit sink: %w", err)
		}
		app.auditSink = pg
		sinks = append(sinks, pg)
		app.logger.Info("central audit sink enabled", "sink", pg.Name())
	}

	app.auditor = audit.New(audit.Config{
		BufferSize: app.cfg.AuditBufferSize,
		Logger:     app.logger,
	}, sinks...)
	return nil
}

func (app *Application) initLimiter() {
	var backend httpx.WindowStore
	if app.cfg.RateLimitRedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: app.cfg.RateLimitRedisAddr})
		backend = httpx.NewRedisWindowStore(app.redis, "tenantauth:ratelimit:", app.cfg.RateLimitWindow)
		app.logger.Info("rate limit counters shared through redis", "addr", app.cfg.RateLimitRedisAddr)
	} else {
		mem := httpx.NewMemoryWindowStore(app.cfg.RateLimitWindow)
		app.windows = mem
		backend = mem
	}
	app.limiter = httpx.NewWindowLimiter(backend, app.cfg.RateLimitThreshold)
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.credentialService = &service.CredentialService{
		Store:  app.db,
		Sealer: app.sealer,
		Audit:  app.auditor,
	}

	app.tokenService = &service.TokenService{
		KeyManager:  app.keyManager,
		Store:       app.db,
		Credentials: app.credentialService,
		Audit:       app.auditor,
		Issuer:      app.cfg.Issuer,
		AccessTTL:   app.cfg.TokenTTL,
	}

	app.bootstrapService = &service.BootstrapService{
		Store: app.db,
		Token: app.cfg.BootstrapToken,
		Audit: app.auditor,
	}

	app.keyRotationService = &service.KeyRotationService{
		KeyManager:  app.keyManager,
		GracePeriod: app.cfg.KeyGracePeriod,
		Audit:       app.auditor,
	}
	if app.cfg.KeyStorageMode == KeyStoragePersistent {
		app.keyRotationService.Store = app.db
		app.logger.Info("key rotation service enabled (persistent mode)")
	} else {
		app.logger.Info("key rotation service enabled (ephemeral mode)")
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.TokenService = app.tokenService
	router.CredentialService = app.credentialService
	router.BootstrapService = app.bootstrapService
	router.KeyRotationService = app.keyRotationService
	router.Enforcer = &authz.Enforcer{
		Tokens:  app.tokenService,
		Limiter: app.limiter,
		Audit:   app.auditor,
	}
	if app.auditSink != nil {
		router.AuditSink = app.auditSink
	}
	// Checked by Config.Validate.
	router.TrustedProxies, _ = httpx.ParseTrustedProxies(app.cfg.TrustedProxies)
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// initHousekeeping sweeps the stores and both in-memory limiters: the
// identity windows and the router's pre-authentication buckets.
func (app *Application) initHousekeeping() {
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.keyManager,
		service.Sweepers{app.windows, app.router},
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}
