package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

// InitAuthKeys creates the token keyring for the configured storage mode.
//
// Storage modes:
//   - "ephemeral": the signing secret comes from AUTH_SIGNING_SECRET or is
//     generated on startup. A generated secret invalidates every token on
//     restart. AUTH_PREVIOUS_SIGNING_SECRETS keep verifying.
//   - "persistent": keys are stored in the database, encrypted with the
//     master key, and survive restarts. Rotation persists too.
func InitAuthKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	switch cfg.KeyStorageMode {
	case KeyStoragePersistent:
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)

		logger.Info("initializing persistent key manager", "grace_period", cfg.KeyGracePeriod)
		keyManager, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			Store:  store.NewKeyStoreAdapter(db),
			Issuer: cfg.Issuer,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}

		logger.Info("persistent signing keys loaded",
			"active_keys", keyManager.NumSigners(),
			"issuer", cfg.Issuer,
		)
		return keyManager, nil

	default:
		var secrets [][]byte
		if cfg.SigningSecret != "" {
			secrets = append(secrets, []byte(cfg.SigningSecret))
			for _, s := range cfg.PreviousSigningSecrets {
				secrets = append(secrets, []byte(s))
			}
		}

		keyManager, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
			Issuer:  cfg.Issuer,
			Secrets: secrets,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}

		logger.Info("ephemeral signing keys loaded",
			"verification_keys", len(keyManager.KeySet.Kids()),
			"issuer", cfg.Issuer,
		)
		if cfg.SigningSecret == "" {
			logger.Warn("no AUTH_SIGNING_SECRET set; tokens issued before this restart are invalid")
		}
		return keyManager, nil
	}
}
