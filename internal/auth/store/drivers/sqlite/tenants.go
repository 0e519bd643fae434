package sqlite

import (
	"context"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite/gen"
)

type tenantsRepo struct {
	q *gen.Queries
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	err := r.q.CreateTenant(ctx, gen.CreateTenantParams{
		ID:        t.ID,
		Name:      t.Name,
		CreatedAt: toMillis(t.CreatedAt),
	})
	return mapConstraint(err)
}

func (r *tenantsRepo) GetTenantByID(ctx context.Context, id string) (domain.Tenant, error) {
	row, err := r.q.GetTenantByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	return mapTenant(row), nil
}

func (r *tenantsRepo) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.q.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Tenant, len(rows))
	for i, row := range rows {
		out[i] = mapTenant(row)
	}
	return out, nil
}

func (r *tenantsRepo) IsEmpty(ctx context.Context) (bool, error) {
	n, err := r.q.CountTenants(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func mapTenant(row gen.Tenant) domain.Tenant {
	return domain.Tenant{
		ID:            row.ID,
		Name:          row.Name,
		CreatedAt:     fromMillis(row.CreatedAt),
		DeactivatedAt: mapNullMillis(row.DeactivatedAt),
	}
}
