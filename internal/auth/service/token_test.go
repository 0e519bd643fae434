package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestLoginAndVerify(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	acme := h.tenant(t, "acme")
	u := h.user(t, acme.ID, "ops@acme.test", domain.RoleOperator)

	issued, err := h.tokens.Login(ctx, "ops@acme.test", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, "Bearer", issued.TokenType)
	require.EqualValues(t, 8*60*60, issued.ExpiresIn)
	require.True(t, issued.ExpiresAt.Equal(h.clock.Now().Add(8*time.Hour)))

	ev := h.audit.last(t)
	require.Equal(t, domain.ActionLogin, ev.Action)
	require.Equal(t, domain.OutcomeSuccess, ev.Outcome)
	require.Equal(t, u.ID, ev.ActorID)

	p, err := h.tokens.VerifyToken(ctx, issued.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, p.UserID)
	require.Equal(t, domain.RoleOperator, p.Role)
	require.Equal(t, acme.ID, p.TenantID)
	require.NotEmpty(t, p.TokenID)

	t.Run("bad password is audited", func(t *testing.T) {
		_, err := h.tokens.Login(ctx, "ops@acme.test", "nope nope nope")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)

		ev := h.audit.last(t)
		require.Equal(t, domain.OutcomeFailure, ev.Outcome)
		require.Equal(t, "invalid_credentials", ev.Reason)
	})
}

func TestVerifyTokenErrors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	acme := h.tenant(t, "acme")
	u := h.user(t, acme.ID, "ops@acme.test", domain.RoleOperator)

	issued, err := h.tokens.IssueToken(ctx, u)
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	require.Len(t, parts, 3)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", domain.ErrTokenMalformed},
		{"two segments", parts[0] + "." + parts[1], domain.ErrTokenMalformed},
		{"garbage", "not.a.jwt", domain.ErrTokenMalformed},
		{"tampered payload", parts[0] + "." + parts[1] + "x." + parts[2], domain.ErrTokenMalformed},
		{"foreign signature", parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2])), domain.ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.tokens.VerifyToken(ctx, tt.token)
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("signed by an unknown key", func(t *testing.T) {
		other, err := jwtx.GenerateHMACSigner()
		require.NoError(t, err)
		raw, err := other.Sign(jwtx.NewAccessClaims(u.ID, string(u.Role), u.TenantID, testIssuer, time.Hour, h.clock.Now()))
		require.NoError(t, err)

		_, err = h.tokens.VerifyToken(ctx, raw)
		require.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("issued for another service", func(t *testing.T) {
		raw, err := h.km.GetSigner().Sign(jwtx.NewAccessClaims(u.ID, string(u.Role), u.TenantID, "someone-else", time.Hour, h.clock.Now()))
		require.NoError(t, err)

		_, err = h.tokens.VerifyToken(ctx, raw)
		require.ErrorIs(t, err, domain.ErrTokenMalformed)
		require.NotErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("expired at exp", func(t *testing.T) {
		h.clock.Advance(8 * time.Hour)
		t.Cleanup(func() { h.clock.Advance(-8 * time.Hour) })

		_, err := h.tokens.VerifyToken(ctx, issued.Token)
		require.ErrorIs(t, err, domain.ErrTokenExpired)
	})

	t.Run("valid just before exp", func(t *testing.T) {
		h.clock.Advance(8*time.Hour - time.Second)
		t.Cleanup(func() { h.clock.Advance(-(8*time.Hour - time.Second)) })

		_, err := h.tokens.VerifyToken(ctx, issued.Token)
		require.NoError(t, err)
	})
}

func TestRevokeToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	acme := h.tenant(t, "acme")
	u := h.user(t, acme.ID, "ops@acme.test", domain.RoleOperator)

	issued, err := h.tokens.IssueToken(ctx, u)
	require.NoError(t, err)

	require.NoError(t, h.tokens.RevokeToken(ctx, issued.Token))
	_, err = h.tokens.VerifyToken(ctx, issued.Token)
	require.ErrorIs(t, err, domain.ErrTokenRevoked)

	require.NoError(t, h.tokens.RevokeToken(ctx, issued.Token), "revoking twice succeeds")

	t.Run("expired token is a no-op", func(t *testing.T) {
		other, err := h.tokens.IssueToken(ctx, u)
		require.NoError(t, err)
		h.clock.Advance(9 * time.Hour)
		t.Cleanup(func() { h.clock.Advance(-9 * time.Hour) })

		require.NoError(t, h.tokens.RevokeToken(ctx, other.Token))
	})

	t.Run("garbage fails", func(t *testing.T) {
		require.ErrorIs(t, h.tokens.RevokeToken(ctx, "garbage"), domain.ErrTokenMalformed)
	})
}

func TestRevokeTokenAs(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	acme := h.tenant(t, "acme")
	globex := h.tenant(t, "globex")

	viewer := h.user(t, acme.ID, "viewer@acme.test", domain.RoleViewer)
	colleague := h.user(t, acme.ID, "colleague@acme.test", domain.RoleViewer)
	admin := h.user(t, acme.ID, "admin@acme.test", domain.RoleAdmin)
	foreignAdmin := h.user(t, globex.ID, "admin@globex.test", domain.RoleAdmin)

	colleagueToken, err := h.tokens.IssueToken(ctx, colleague)
	require.NoError(t, err)

	require.ErrorIs(t, h.tokens.RevokeTokenAs(ctx, principalOf(viewer), colleagueToken.Token), domain.ErrForbidden)
	require.ErrorIs(t, h.tokens.RevokeTokenAs(ctx, principalOf(foreignAdmin), colleagueToken.Token), domain.ErrTenantMismatch)
	require.NoError(t, h.tokens.RevokeTokenAs(ctx, principalOf(admin), colleagueToken.Token))

	own, err := h.tokens.IssueToken(ctx, viewer)
	require.NoError(t, err)
	require.NoError(t, h.tokens.RevokeTokenAs(ctx, principalOf(viewer), own.Token))

	ev := h.audit.last(t)
	require.Equal(t, domain.ActionTokenRevoke, ev.Action)
	require.Equal(t, domain.OutcomeSuccess, ev.Outcome)
}

func TestTokensStopVerifyingWhenSubjectChanges(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	acme := h.tenant(t, "acme")
	admin := principalOf(h.user(t, acme.ID, "admin@acme.test", domain.RoleAdmin))

	t.Run("deactivation", func(t *testing.T) {
		u := h.user(t, acme.ID, "leaver@acme.test", domain.RoleOperator)
		issued, err := h.tokens.IssueToken(ctx, u)
		require.NoError(t, err)

		require.NoError(t, h.creds.Deactivate(ctx, admin, u.ID))
		_, err = h.tokens.VerifyToken(ctx, issued.Token)
		require.ErrorIs(t, err, domain.ErrTokenRevoked)
	})

	t.Run("role change", func(t *testing.T) {
		u := h.user(t, acme.ID, "demoted@acme.test", domain.RoleOperator)
		issued, err := h.tokens.IssueToken(ctx, u)
		require.NoError(t, err)

		require.NoError(t, h.creds.ChangeRole(ctx, admin, u.ID, domain.RoleViewer))
		_, err = h.tokens.VerifyToken(ctx, issued.Token)
		require.ErrorIs(t, err, domain.ErrTokenRevoked)
	})
}

func TestMapVerifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   error
		want error
	}{
		{jwtx.ErrExpired, domain.ErrTokenExpired},
		{jwtx.ErrNotYetValid, domain.ErrTokenExpired},
		{jwtx.ErrInvalidSig, domain.ErrInvalidSignature},
		{jwtx.ErrUnknownKID, domain.ErrInvalidSignature},
		{jwtx.ErrIssuer, domain.ErrTokenMalformed},
		{jwtx.ErrMalformed, domain.ErrTokenMalformed},
		{jwtx.ErrInvalidClaim, domain.ErrTokenMalformed},
	}
	for _, tt := range tests {
		got := mapVerifyError(tt.in)
		require.ErrorIs(t, got, tt.want)
		require.ErrorIs(t, got, tt.in)
	}
}
