package cryptox_test

import (
	"encoding/base64"
	"testing"

	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func mustSealer(t *testing.T, keyList string) *cryptox.Sealer {
	t.Helper()
	keys, err := cryptox.ParseSealingKeys(keyList)
	require.NoError(t, err)
	s, err := cryptox.NewSealer(keys)
	require.NoError(t, err)
	return s
}

func TestParseSealingKeys(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	keys, err := cryptox.ParseSealingKeys("k2:" + b64 + ", k1:raw-material-not-base64!")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	require.Equal(t, "k2", keys[0].Ref)
	require.Equal(t, []byte("0123456789abcdef0123456789abcdef"), keys[0].Material)
	require.Equal(t, []byte("raw-material-not-base64!"), keys[1].Material)

	for _, bad := range []string{"", " , ", "noref", ":abc", "ref:"} {
		_, err := cryptox.ParseSealingKeys(bad)
		require.Error(t, err, "keys %q", bad)
	}
}

func TestNewSealer_Rejects(t *testing.T) {
	_, err := cryptox.NewSealer(nil)
	require.Error(t, err)

	_, err = cryptox.NewSealer([]cryptox.SealingKey{{Ref: "short", Material: []byte("tiny")}})
	require.Error(t, err)

	long := []byte("0123456789abcdef0123")
	_, err = cryptox.NewSealer([]cryptox.SealingKey{{Ref: "a", Material: long}, {Ref: "a", Material: long}})
	require.Error(t, err)
}

func TestSealer_RoundTrip(t *testing.T) {
	s := mustSealer(t, "v1:first-key-material-0123456789")
	aad := []byte("tenant-1|portal-sat")

	sealed, ref, err := s.Seal([]byte(`{"username":"u","password":"p"}`), aad)
	require.NoError(t, err)
	require.Equal(t, "v1", ref)
	require.NotContains(t, string(sealed), "password")

	plain, err := s.Open(sealed, ref, aad)
	require.NoError(t, err)
	require.Equal(t, `{"username":"u","password":"p"}`, string(plain))
}

func TestSealer_BindsAssociatedData(t *testing.T) {
	s := mustSealer(t, "v1:first-key-material-0123456789")

	sealed, ref, err := s.Seal([]byte("secret"), []byte("tenant-1|portal"))
	require.NoError(t, err)

	_, err = s.Open(sealed, ref, []byte("tenant-2|portal"))
	require.ErrorIs(t, err, cryptox.ErrSealedDataInvalid)
}

func TestSealer_KeyRotation(t *testing.T) {
	old := mustSealer(t, "v1:first-key-material-0123456789")
	sealed, ref, err := old.Seal([]byte("secret"), nil)
	require.NoError(t, err)

	rotated := mustSealer(t, "v2:second-key-material-987654321,v1:first-key-material-0123456789")
	require.Equal(t, "v2", rotated.Primary())

	plain, err := rotated.Open(sealed, ref, nil)
	require.NoError(t, err)
	require.Equal(t, "secret", string(plain))

	_, newRef, err := rotated.Seal(plain, nil)
	require.NoError(t, err)
	require.Equal(t, "v2", newRef)

	dropped := mustSealer(t, "v2:second-key-material-987654321")
	_, err = dropped.Open(sealed, ref, nil)
	require.ErrorIs(t, err, cryptox.ErrUnknownKeyRef)
}

func TestSealer_RejectsTampering(t *testing.T) {
	s := mustSealer(t, "v1:first-key-material-0123456789")
	sealed, ref, err := s.Seal([]byte("secret"), nil)
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x01
	_, err = s.Open(sealed, ref, nil)
	require.ErrorIs(t, err, cryptox.ErrSealedDataInvalid)

	_, err = s.Open([]byte{0x01, 0x02}, ref, nil)
	require.ErrorIs(t, err, cryptox.ErrSealedDataInvalid)
}
