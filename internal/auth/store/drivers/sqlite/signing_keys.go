package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite/gen"
)

type signingKeysRepo struct {
	q *gen.Queries
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, key domain.SigningKey) error {
	err := r.q.CreateSigningKey(ctx, gen.SigningKey{
		ID:              key.ID,
		Kid:             key.Kid,
		Algorithm:       key.Algorithm,
		SecretEncrypted: key.SecretEncrypted,
		CreatedAt:       toMillis(key.CreatedAt),
		RetiredAt:       mapOptionalMillis(key.RetiredAt),
		ExpiresAt:       mapOptionalMillis(key.ExpiresAt),
	})
	return mapConstraint(err)
}

func (r *signingKeysRepo) GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error) {
	row, err := r.q.GetSigningKeyByKid(ctx, kid)
	if err != nil {
		return domain.SigningKey{}, mapNotFound(err)
	}
	return mapSigningKey(row), nil
}

func (r *signingKeysRepo) ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	rows, err := r.q.ListSigningKeys(ctx)
	if err != nil {
		return nil, err
	}
	return mapSigningKeys(rows), nil
}

func (r *signingKeysRepo) ListUsableSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error) {
	rows, err := r.q.ListUsableSigningKeys(ctx, toMillis(now))
	if err != nil {
		return nil, err
	}
	return mapSigningKeys(rows), nil
}

func (r *signingKeysRepo) RetireSigningKey(ctx context.Context, kid string, retiredAt, expiresAt time.Time) error {
	return requireAffected(r.q.RetireSigningKey(ctx, kid, toMillis(retiredAt), toMillis(expiresAt)))
}

func (r *signingKeysRepo) DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredSigningKeys(ctx, toMillis(now))
}

func mapSigningKeys(rows []gen.SigningKey) []domain.SigningKey {
	out := make([]domain.SigningKey, len(rows))
	for i, row := range rows {
		out[i] = mapSigningKey(row)
	}
	return out
}

func mapSigningKey(row gen.SigningKey) domain.SigningKey {
	return domain.SigningKey{
		ID:              row.ID,
		Kid:             row.Kid,
		Algorithm:       row.Algorithm,
		SecretEncrypted: row.SecretEncrypted,
		CreatedAt:       fromMillis(row.CreatedAt),
		RetiredAt:       mapNullMillis(row.RetiredAt),
		ExpiresAt:       mapNullMillis(row.ExpiresAt),
	}
}
