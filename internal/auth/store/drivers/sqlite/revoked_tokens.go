package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite/gen"
)

type revokedTokensRepo struct {
	q *gen.Queries
}

func (r *revokedTokensRepo) RevokeToken(ctx context.Context, t domain.RevokedToken) error {
	return r.q.RevokeToken(ctx, gen.RevokedToken{
		Jti:       t.JTI,
		Subject:   t.Subject,
		ExpiresAt: toMillis(t.ExpiresAt),
		RevokedAt: toMillis(t.RevokedAt),
	})
}

func (r *revokedTokensRepo) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return r.q.IsTokenRevoked(ctx, jti)
}

func (r *revokedTokensRepo) DeleteExpiredRevocations(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredRevocations(ctx, toMillis(now))
}
