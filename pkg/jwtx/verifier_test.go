package jwtx_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestHMACVerifier(t *testing.T) {
	clock := newClock()
	keys := jwtx.NewKeySet()
	signer, err := jwtx.NewHMACSigner("kid-a", secretA)
	require.NoError(t, err)
	keys.Add(signer.KID(), secretA, time.Time{})

	v := jwtx.NewHMACVerifier(keys, "test-issuer", jwtx.WithClock(clock.Now))

	sign := func(c jwtx.Claims) string {
		tok, err := signer.Sign(c)
		require.NoError(t, err)
		return tok
	}
	valid := jwtx.NewAccessClaims("user-1", "viewer", "tenant-1", "test-issuer", 8*time.Hour, clock.Now())

	t.Run("valid", func(t *testing.T) {
		_, err := v.Verify(sign(valid))
		require.NoError(t, err)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		tok := sign(valid)
		clock := &fakeClock{now: clock.Now().Add(8*time.Hour + time.Second)}
		late := jwtx.NewHMACVerifier(keys, "test-issuer", jwtx.WithClock(clock.Now))
		_, err := late.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	malformed := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"two segments", "abc.def"},
		{"bad base64 header", "!!!.e30.sig"},
		{"json not object", base64.RawURLEncoding.EncodeToString([]byte(`"x"`)) + ".e30.c2ln"},
	}
	for _, tt := range malformed {
		t.Run("malformed "+tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			require.ErrorIs(t, err, jwtx.ErrMalformed)
		})
	}

	t.Run("missing kid is malformed", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, valid).SignedString(secretA)
		require.NoError(t, err)
		_, err = v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("tampered payload", func(t *testing.T) {
		tok := sign(valid)
		parts := strings.Split(tok, ".")
		forged := valid
		forged.Role = "super_admin"
		forgedTok := sign(forged)
		parts[1] = strings.Split(forgedTok, ".")[1]
		_, err := v.Verify(strings.Join(parts, "."))
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := jwtx.NewHMACSigner("kid-a", secretB)
		require.NoError(t, err)
		tok, err := other.Sign(valid)
		require.NoError(t, err)
		_, err = v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("alg none rejected", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, valid)
		tok.Header["kid"] = "kid-a"
		s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.Verify(s)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("unknown kid", func(t *testing.T) {
		other, err := jwtx.NewHMACSigner("kid-b", secretB)
		require.NoError(t, err)
		tok, err := other.Sign(valid)
		require.NoError(t, err)
		_, err = v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		c := valid
		c.Issuer = "elsewhere"
		_, err := v.Verify(sign(c))
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("missing tenant claim", func(t *testing.T) {
		c := valid
		c.TenantID = ""
		_, err := v.Verify(sign(c))
		require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
	})
}
