package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomString(t *testing.T) {
	s, err := RandomString(16)
	require.NoError(t, err)
	require.Len(t, s, 22)

	other, err := RandomString(16)
	require.NoError(t, err)
	require.NotEqual(t, s, other)

	require.Len(t, MustRandomString(32), 43)

	for _, n := range []int{0, -1} {
		_, err := RandomString(n)
		require.Error(t, err)
	}
	require.Panics(t, func() { MustRandomString(0) })
}

func TestTokensEqual(t *testing.T) {
	require.True(t, TokensEqual("bootstrap-secret", "bootstrap-secret"))
	require.False(t, TokensEqual("bootstrap-secre", "bootstrap-secret"))
	require.False(t, TokensEqual("", "bootstrap-secret"))
	require.True(t, TokensEqual("", ""))
}

func TestFingerprintToken(t *testing.T) {
	fp := FingerprintToken("test-token-1")
	require.Equal(t, fp, FingerprintToken("test-token-1"))
	require.NotEqual(t, fp, FingerprintToken("test-token-2"))
	require.Len(t, fp, 43)
}

func TestKeyID(t *testing.T) {
	kid := KeyID([]byte("secret-a"))
	require.Len(t, kid, 16)
	require.Equal(t, kid, KeyID([]byte("secret-a")))
	require.NotEqual(t, kid, KeyID([]byte("secret-b")))
}
