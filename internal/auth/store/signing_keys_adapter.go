package store

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

// KeyStoreAdapter lets jwtx load and persist keys through a Store without
// importing the domain package.
type KeyStoreAdapter struct {
	store Store
}

func NewKeyStoreAdapter(store Store) *KeyStoreAdapter {
	return &KeyStoreAdapter{store: store}
}

func (a *KeyStoreAdapter) ListUsableSigningKeys(ctx context.Context, now time.Time) ([]jwtx.SigningKeyRecord, error) {
	keys, err := a.store.SigningKeys().ListUsableSigningKeys(ctx, now)
	if err != nil {
		return nil, err
	}
	records := make([]jwtx.SigningKeyRecord, len(keys))
	for i, k := range keys {
		records[i] = SigningKeyToRecord(k)
	}
	return records, nil
}

func (a *KeyStoreAdapter) CreateSigningKey(ctx context.Context, rec jwtx.SigningKeyRecord) error {
	return a.store.SigningKeys().CreateSigningKey(ctx, RecordToSigningKey(rec))
}

func SigningKeyToRecord(k domain.SigningKey) jwtx.SigningKeyRecord {
	return jwtx.SigningKeyRecord{
		ID:              k.ID,
		Kid:             k.Kid,
		Algorithm:       k.Algorithm,
		SecretEncrypted: k.SecretEncrypted,
		CreatedAt:       k.CreatedAt,
		RetiredAt:       k.RetiredAt,
		ExpiresAt:       k.ExpiresAt,
	}
}

func RecordToSigningKey(r jwtx.SigningKeyRecord) domain.SigningKey {
	return domain.SigningKey{
		ID:              r.ID,
		Kid:             r.Kid,
		Algorithm:       r.Algorithm,
		SecretEncrypted: r.SecretEncrypted,
		CreatedAt:       r.CreatedAt,
		RetiredAt:       r.RetiredAt,
		ExpiresAt:       r.ExpiresAt,
	}
}
