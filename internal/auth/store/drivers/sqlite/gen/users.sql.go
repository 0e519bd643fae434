package gen

import "context"

const userColumns = `id, tenant_id, email, password_hash, role, created_at, updated_at, deactivated_at`

func scanUser(row scanner) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.TenantID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeactivatedAt,
	)
	return u, err
}

const createUser = `INSERT INTO users (id, tenant_id, email, password_hash, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type CreateUserParams struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID,
		arg.TenantID,
		arg.Email,
		arg.PasswordHash,
		arg.Role,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return err
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ? COLLATE NOCASE`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const listUsersByTenant = `SELECT ` + userColumns + ` FROM users WHERE tenant_id = ? ORDER BY created_at, id`

func (q *Queries) ListUsersByTenant(ctx context.Context, tenantID string) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsersByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUser)
}

const updateUserPasswordHash = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUserPasswordHash(ctx context.Context, id, hash string, at int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUserPasswordHash, hash, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateUserRole = `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUserRole(ctx context.Context, id, role string, at int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUserRole, role, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deactivateUser = `UPDATE users SET deactivated_at = COALESCE(deactivated_at, ?), updated_at = ? WHERE id = ?`

func (q *Queries) DeactivateUser(ctx context.Context, id string, at int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deactivateUser, at, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countUsers = `SELECT COUNT(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&n)
	return n, err
}
