package gen

import "context"

const tenantColumns = `id, name, created_at, deactivated_at`

func scanTenant(row scanner) (Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.DeactivatedAt)
	return t, err
}

const createTenant = `INSERT INTO tenants (id, name, created_at) VALUES (?, ?, ?)`

type CreateTenantParams struct {
	ID        string
	Name      string
	CreatedAt int64
}

func (q *Queries) CreateTenant(ctx context.Context, arg CreateTenantParams) error {
	_, err := q.db.ExecContext(ctx, createTenant, arg.ID, arg.Name, arg.CreatedAt)
	return err
}

const getTenantByID = `SELECT ` + tenantColumns + ` FROM tenants WHERE id = ?`

func (q *Queries) GetTenantByID(ctx context.Context, id string) (Tenant, error) {
	return scanTenant(q.db.QueryRowContext(ctx, getTenantByID, id))
}

const listTenants = `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at, id`

func (q *Queries) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := q.db.QueryContext(ctx, listTenants)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTenant)
}

const countTenants = `SELECT COUNT(*) FROM tenants`

func (q *Queries) CountTenants(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTenants).Scan(&n)
	return n, err
}
