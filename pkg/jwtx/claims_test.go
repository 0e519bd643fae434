package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewAccessClaims(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := jwtx.NewAccessClaims("user-1", "operator", "tenant-1", "tenantauth", jwtx.DefaultAccessTokenTTL, now)

	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "operator", c.Role)
	require.Equal(t, "tenant-1", c.TenantID)
	require.True(t, c.IssuedAt.Time.Equal(now))
	require.True(t, c.ExpiresAt.Time.Equal(now.Add(8*time.Hour)))
	require.NotEmpty(t, c.ID)
	require.NoError(t, c.ValidateRequired())

	other := jwtx.NewAccessClaims("user-1", "operator", "tenant-1", "tenantauth", time.Hour, now)
	require.NotEqual(t, c.ID, other.ID)
}

func TestValidateRequired(t *testing.T) {
	now := time.Now()
	valid := jwtx.NewAccessClaims("u", "viewer", "t", "iss", time.Hour, now)

	tests := []struct {
		name   string
		mutate func(c *jwtx.Claims)
	}{
		{"missing subject", func(c *jwtx.Claims) { c.Subject = "" }},
		{"missing role", func(c *jwtx.Claims) { c.Role = "" }},
		{"missing tenant", func(c *jwtx.Claims) { c.TenantID = "" }},
		{"missing jti", func(c *jwtx.Claims) { c.ID = "" }},
		{"missing exp", func(c *jwtx.Claims) { c.ExpiresAt = nil }},
		{"exp equals iat", func(c *jwtx.Claims) { c.ExpiresAt = c.IssuedAt }},
		{"exp before iat", func(c *jwtx.Claims) { c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			require.ErrorIs(t, c.ValidateRequired(), jwtx.ErrInvalidClaim)
		})
	}
}

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "tenantauth"}}

	require.NoError(t, c.ValidateIssuer("tenantauth"))
	require.NoError(t, c.ValidateIssuer(""))
	require.ErrorIs(t, c.ValidateIssuer("someone-else"), jwtx.ErrIssuer)
}

func TestValidateTimes(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}}

	require.NoError(t, c.ValidateTimes(now, 0))
	require.NoError(t, c.ValidateTimes(now.Add(time.Minute-time.Nanosecond), 0))
	require.ErrorIs(t, c.ValidateTimes(now.Add(time.Minute), 0), jwtx.ErrExpired)
	require.ErrorIs(t, c.ValidateTimes(now.Add(-time.Second), 0), jwtx.ErrNotYetValid)

	t.Run("leeway", func(t *testing.T) {
		require.NoError(t, c.ValidateTimes(now.Add(time.Minute+10*time.Second), 30*time.Second))
		require.ErrorIs(t, c.ValidateTimes(now.Add(2*time.Minute), 30*time.Second), jwtx.ErrExpired)
		require.NoError(t, c.ValidateTimes(now.Add(-10*time.Second), 30*time.Second))
	})

	t.Run("no exp or nbf", func(t *testing.T) {
		require.NoError(t, (&jwtx.Claims{}).ValidateTimes(now, 0))
	})
}
