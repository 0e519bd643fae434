package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/app"
	"github.com/aussiebroadwan/tenantauth/internal/auth/audit"
	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// operator is the principal recorded in the audit log for CLI actions.
var operator = domain.Principal{UserID: "authctl", Role: domain.RoleSuperAdmin}

// env is an opened, migrated database plus the services the commands need.
type env struct {
	cfg     app.Config
	logger  *slog.Logger
	store   *sqlite.Store
	auditor *audit.Auditor

	creds  *service.CredentialService
	tokens *service.TokenService // nil unless keys were requested
	keys   *service.KeyRotationService
}

type envOptions struct {
	keys        bool // load the signing keyring
	sealingKeys bool // refuse to run with a throwaway sealing key
}

func openEnv(ctx context.Context, opts envOptions) (*env, error) {
	cfg := app.LoadConfig()
	logger := slogx.New(slogx.Config{
		Service: "authctl",
		Version: app.BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  "text",
		Output:  os.Stderr,
	})

	if opts.sealingKeys && cfg.CredentialKeys == "" {
		return nil, errors.New("CREDENTIAL_ENCRYPTION_KEYS must be set")
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	st, err := app.OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	sealer, err := app.NewSealer(cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	e := &env{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		auditor: audit.New(audit.Config{Logger: logger}, audit.StoreSink{Events: st.AuditEvents()}),
	}
	e.creds = &service.CredentialService{Store: st, Sealer: sealer, Audit: e.auditor}

	if opts.keys {
		km, err := app.InitAuthKeys(ctx, cfg, st, logger)
		if err != nil {
			e.close()
			return nil, err
		}
		e.tokens = &service.TokenService{
			KeyManager:  km,
			Store:       st,
			Credentials: e.creds,
			Issuer:      cfg.Issuer,
			AccessTTL:   cfg.TokenTTL,
		}
		e.keys = &service.KeyRotationService{
			KeyManager:  km,
			GracePeriod: cfg.KeyGracePeriod,
			Audit:       e.auditor,
		}
		if cfg.KeyStorageMode == app.KeyStoragePersistent {
			e.keys.Store = st
		}
	}
	return e, nil
}

// close flushes pending audit events before closing the store.
func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.auditor.Close(ctx); err != nil {
		e.logger.Error("audit events not flushed", "error", err)
	}
	_ = e.store.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
