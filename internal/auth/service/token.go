package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// TokenService issues, verifies and revokes access tokens.
type TokenService struct {
	KeyManager  *jwtx.KeyManager
	Store       store.Store
	Credentials *CredentialService
	Audit       Recorder
	Issuer      string
	AccessTTL   time.Duration
	Now         func() time.Time
}

// Login authenticates email and password and issues a token.
func (s *TokenService) Login(ctx context.Context, email, password string) (domain.IssuedToken, error) {
	l := slogx.FromContext(ctx)

	ev := domain.AuditEvent{
		Action:   domain.ActionLogin,
		Resource: "email:" + strings.ToLower(strings.TrimSpace(email)),
		Outcome:  domain.OutcomeSuccess,
	}

	user, err := s.Credentials.Authenticate(ctx, email, password)
	if err != nil {
		l.Info("login failed", slog.String("reason", reasonOf(err)))
		record(ctx, s.Audit, withOutcome(ev, err))
		return domain.IssuedToken{}, err
	}
	ev.TenantID, ev.ActorID, ev.ActorRole = user.TenantID, user.ID, string(user.Role)

	token, err := s.IssueToken(ctx, user)
	record(ctx, s.Audit, withOutcome(ev, err))
	return token, err
}

// IssueToken signs an access token for user with the primary key.
func (s *TokenService) IssueToken(ctx context.Context, user domain.User) (domain.IssuedToken, error) {
	signer := s.KeyManager.GetSigner()
	if signer == nil {
		return domain.IssuedToken{}, errors.New("no signing key available")
	}

	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	now := clock(s.Now)
	claims := jwtx.NewAccessClaims(user.ID, string(user.Role), user.TenantID, s.Issuer, ttl, now)
	raw, err := signer.Sign(claims)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to sign access token", slog.Any("error", err))
		return domain.IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}

	return domain.IssuedToken{
		Token:     raw,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt.Time,
		ExpiresIn: int64(ttl / time.Second),
	}, nil
}

// VerifyToken checks structure, key, signature, expiry and revocation of
// raw, in that order, and returns the principal it carries.
//
// A token also stops verifying once its subject is deactivated or has a
// different role or tenant than the token states.
func (s *TokenService) VerifyToken(ctx context.Context, raw string) (domain.Principal, error) {
	claims, err := s.KeyManager.Verifier.Verify(raw)
	if err != nil {
		return domain.Principal{}, mapVerifyError(err)
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Principal{}, fmt.Errorf("%w: unknown role %q", domain.ErrTokenMalformed, claims.Role)
	}

	revoked, err := s.Store.RevokedTokens().IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return domain.Principal{}, domain.ErrTokenRevoked
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Principal{}, fmt.Errorf("%w: unknown subject", domain.ErrTokenRevoked)
		}
		return domain.Principal{}, fmt.Errorf("load subject: %w", err)
	}
	if !user.Active() || user.Role != role || user.TenantID != claims.TenantID {
		return domain.Principal{}, fmt.Errorf("%w: subject changed since issuance", domain.ErrTokenRevoked)
	}

	return domain.Principal{
		UserID:    claims.Subject,
		Role:      role,
		TenantID:  claims.TenantID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// RevokeToken marks raw unusable until it would have expired. Revoking an
// expired or already revoked token succeeds without doing anything.
func (s *TokenService) RevokeToken(ctx context.Context, raw string) error {
	principal, err := s.VerifyToken(ctx, raw)
	switch {
	case errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenRevoked):
		return nil
	case err != nil:
		return err
	}
	return s.revoke(ctx, principal)
}

// RevokeTokenAs revokes raw on behalf of caller. Callers may revoke their own
// tokens; admins may revoke tokens of their tenant, and super admins any.
func (s *TokenService) RevokeTokenAs(ctx context.Context, caller domain.Principal, raw string) error {
	ev := actorEvent(caller, domain.ActionTokenRevoke, "token")

	err := s.revokeTokenAs(ctx, caller, raw, &ev)
	record(ctx, s.Audit, withOutcome(ev, err))
	return err
}

func (s *TokenService) revokeTokenAs(ctx context.Context, caller domain.Principal, raw string, ev *domain.AuditEvent) error {
	target, err := s.VerifyToken(ctx, raw)
	switch {
	case errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenRevoked):
		return nil
	case err != nil:
		return err
	}
	ev.Resource = "token:" + target.TokenID

	if target.UserID != caller.UserID {
		if caller.Role != domain.RoleAdmin && !caller.Role.CrossTenant() {
			return domain.ErrForbidden
		}
		if err := checkTenant(caller, target.TenantID, domain.ErrTenantMismatch); err != nil {
			return err
		}
	}
	return s.revoke(ctx, target)
}

func (s *TokenService) revoke(ctx context.Context, p domain.Principal) error {
	err := s.Store.RevokedTokens().RevokeToken(ctx, domain.RevokedToken{
		JTI:       p.TokenID,
		Subject:   p.UserID,
		ExpiresAt: p.ExpiresAt,
		RevokedAt: clock(s.Now),
	})
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	slogx.FromContext(ctx).Info("token revoked",
		slog.String("user_id", p.UserID),
		slog.String("token_fp", cryptox.FingerprintToken(p.TokenID)),
	)
	return nil
}

// mapVerifyError folds jwtx errors onto the token error taxonomy. The jwtx
// error stays wrapped for logging.
func mapVerifyError(err error) error {
	switch {
	case errors.Is(err, jwtx.ErrExpired), errors.Is(err, jwtx.ErrNotYetValid):
		return fmt.Errorf("%w: %w", domain.ErrTokenExpired, err)
	case errors.Is(err, jwtx.ErrInvalidSig),
		errors.Is(err, jwtx.ErrUnknownKID),
		errors.Is(err, jwtx.ErrAlgMismatch):
		return fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrTokenMalformed, err)
	}
}

func reasonOf(err error) string {
	de, _ := domain.AsError(err)
	return de.Code
}
