package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
)

// BootstrapResult identifies what Bootstrap created.
type BootstrapResult struct {
	TenantID    string `json:"tenant_id"`
	AdminUserID string `json:"admin_user_id"`
}

// BootstrapService creates the first tenant and its super admin on an empty
// system.
type BootstrapService struct {
	Store store.Store
	Token string // Pre-configured bootstrap token; empty disables bootstrap
	Audit Recorder
	Now   func() time.Time
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	userEmpty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !userEmpty, nil
}

func (s *BootstrapService) Bootstrap(ctx context.Context, token string, req domain.BootstrapData) (BootstrapResult, error) {
	l := slogx.FromContext(ctx)

	// 1. Validate provided token before revealing anything about state
	if s.Token == "" || !cryptox.TokensEqual(token, s.Token) {
		l.Warn("unauthorized bootstrap attempt", slog.String("token_fp", cryptox.FingerprintToken(token)))
		return BootstrapResult{}, ErrBootstrapUnauthorized
	}

	// 2. Check if already bootstrapped
	bootstrapped, err := s.IsBootstrapped(ctx)
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("check bootstrap state: %w", err)
	}
	if bootstrapped {
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return BootstrapResult{}, ErrBootstrapAlready
	}

	// 3. Validate input
	tenantName, err := validateTenantName(req.TenantName)
	if err != nil {
		return BootstrapResult{}, err
	}
	email, err := normalizeEmail(req.AdminEmail)
	if err != nil {
		return BootstrapResult{}, err
	}
	if err := validatePassword(req.AdminPassword); err != nil {
		return BootstrapResult{}, err
	}

	passHash, err := cryptox.HashPassword(req.AdminPassword)
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("hash admin password: %w", err)
	}

	// 4. Create tenant and super admin in a transaction
	now := clock(s.Now)
	res := BootstrapResult{TenantID: idx.New().String(), AdminUserID: idx.New().String()}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Tenants().CreateTenant(ctx, domain.Tenant{
			ID:        res.TenantID,
			Name:      tenantName,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}
		if err := tx.Users().CreateUser(ctx, domain.User{
			ID:           res.AdminUserID,
			Email:        email,
			PasswordHash: passHash,
			Role:         domain.RoleSuperAdmin,
			TenantID:     res.TenantID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
		return nil
	})
	if err != nil {
		l.Error("bootstrap failed", slog.Any("error", err))
		return BootstrapResult{}, err
	}

	ev := actorEvent(systemActor, domain.ActionSystemBootstrap, "user:"+res.AdminUserID)
	ev.TenantID = res.TenantID
	record(ctx, s.Audit, ev)

	l.Info("successfully bootstrapped system",
		slog.String("tenant_id", res.TenantID),
		slog.String("admin_user_id", res.AdminUserID),
	)
	return res, nil
}
