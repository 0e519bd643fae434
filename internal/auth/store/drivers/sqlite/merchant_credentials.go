package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite/gen"
)

type merchantCredentialsRepo struct {
	q *gen.Queries
}

func (r *merchantCredentialsRepo) UpsertMerchantCredential(ctx context.Context, c domain.MerchantCredential) (bool, error) {
	_, err := r.q.GetMerchantCredential(ctx, c.TenantID, c.PortalID)
	replaced := err == nil
	if err != nil && !errors.Is(mapNotFound(err), store.ErrNotFound) {
		return false, err
	}

	err = r.q.UpsertMerchantCredential(ctx, gen.UpsertMerchantCredentialParams{
		ID:         c.ID,
		TenantID:   c.TenantID,
		PortalID:   c.PortalID,
		Ciphertext: c.Ciphertext,
		KeyRef:     c.KeyRef,
		At:         toMillis(c.UpdatedAt),
	})
	if err != nil {
		return false, err
	}
	return replaced, nil
}

func (r *merchantCredentialsRepo) ResealMerchantCredential(ctx context.Context, c domain.MerchantCredential, prevKeyRef string, prevUpdatedAt time.Time) error {
	return requireAffected(r.q.ResealMerchantCredential(ctx, gen.ResealMerchantCredentialParams{
		TenantID:   c.TenantID,
		PortalID:   c.PortalID,
		Ciphertext: c.Ciphertext,
		KeyRef:     c.KeyRef,
		At:         toMillis(c.UpdatedAt),
		PrevKeyRef: prevKeyRef,
		PrevAt:     toMillis(prevUpdatedAt),
	}))
}

func (r *merchantCredentialsRepo) GetMerchantCredential(ctx context.Context, tenantID, portalID string) (domain.MerchantCredential, error) {
	row, err := r.q.GetMerchantCredential(ctx, tenantID, portalID)
	if err != nil {
		return domain.MerchantCredential{}, mapNotFound(err)
	}
	return mapCredential(row), nil
}

func (r *merchantCredentialsRepo) ListMerchantCredentials(ctx context.Context, tenantID string) ([]domain.MerchantCredential, error) {
	rows, err := r.q.ListMerchantCredentials(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return mapCredentials(rows), nil
}

func (r *merchantCredentialsRepo) ListMerchantCredentialsNotSealedWith(ctx context.Context, keyRef string) ([]domain.MerchantCredential, error) {
	rows, err := r.q.ListMerchantCredentialsNotSealedWith(ctx, keyRef)
	if err != nil {
		return nil, err
	}
	return mapCredentials(rows), nil
}

func (r *merchantCredentialsRepo) DeleteMerchantCredential(ctx context.Context, tenantID, portalID string) error {
	return requireAffected(r.q.DeleteMerchantCredential(ctx, tenantID, portalID))
}

func mapCredentials(rows []gen.MerchantCredential) []domain.MerchantCredential {
	out := make([]domain.MerchantCredential, len(rows))
	for i, row := range rows {
		out[i] = mapCredential(row)
	}
	return out
}

func mapCredential(row gen.MerchantCredential) domain.MerchantCredential {
	return domain.MerchantCredential{
		ID:         row.ID,
		TenantID:   row.TenantID,
		PortalID:   row.PortalID,
		Ciphertext: row.Ciphertext,
		KeyRef:     row.KeyRef,
		CreatedAt:  fromMillis(row.CreatedAt),
		UpdatedAt:  fromMillis(row.UpdatedAt),
	}
}
