package cryptox_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func useMasterKey(t *testing.T, value string) {
	t.Helper()
	t.Setenv(cryptox.MasterKeyEnv, value)
	cryptox.ResetMasterKeyForTesting()
	t.Cleanup(cryptox.ResetMasterKeyForTesting)
}

func TestEncryptDecryptSecret(t *testing.T) {
	useMasterKey(t, "test-master-key-for-encryption-12345")

	secret := []byte("hmac-signing-secret-0123456789abcdef")

	encrypted, err := cryptox.EncryptSecret(secret)
	require.NoError(t, err)
	require.NotEqual(t, secret, encrypted)

	again, err := cryptox.EncryptSecret(secret)
	require.NoError(t, err)
	require.NotEqual(t, encrypted, again, "nonce must be random")

	decrypted, err := cryptox.DecryptSecret(encrypted)
	require.NoError(t, err)
	require.Equal(t, secret, decrypted)
}

func TestDecryptSecret_Rejects(t *testing.T) {
	useMasterKey(t, "test-master-key-rejects")

	encrypted, err := cryptox.EncryptSecret([]byte("original-data"))
	require.NoError(t, err)

	t.Run("tampered", func(t *testing.T) {
		tampered := append([]byte(nil), encrypted...)
		tampered[len(tampered)-1] ^= 0xFF
		_, err := cryptox.DecryptSecret(tampered)
		require.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := cryptox.DecryptSecret([]byte("short"))
		require.ErrorContains(t, err, "too short")
	})

	t.Run("different master key", func(t *testing.T) {
		useMasterKey(t, "some-other-master-key")
		_, err := cryptox.DecryptSecret(encrypted)
		require.Error(t, err)
	})
}

func TestMasterKeyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	require.NoError(t, os.WriteFile(path, []byte("file-based-master-key-content-xyz"), 0600))

	cryptox.SetMasterKeyPath(path)
	t.Cleanup(func() { cryptox.SetMasterKeyPath("") })

	encrypted, err := cryptox.EncryptSecret([]byte("with-file-key"))
	require.NoError(t, err)

	decrypted, err := cryptox.DecryptSecret(encrypted)
	require.NoError(t, err)
	require.Equal(t, []byte("with-file-key"), decrypted)
}

func TestMasterKeyFileIsGenerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "master.key")
	cryptox.SetMasterKeyPath(path)
	t.Cleanup(func() { cryptox.SetMasterKeyPath("") })

	encrypted, err := cryptox.EncryptSecret([]byte("survives restart"))
	require.NoError(t, err)
	require.FileExists(t, path)

	// Reloading from the same file decrypts.
	cryptox.SetMasterKeyPath(path)
	decrypted, err := cryptox.DecryptSecret(encrypted)
	require.NoError(t, err)
	require.Equal(t, []byte("survives restart"), decrypted)
}
