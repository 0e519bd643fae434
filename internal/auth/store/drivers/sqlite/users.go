package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite/gen"
)

type usersRepo struct {
	q *gen.Queries
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row, err := r.q.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) ListUsersByTenant(ctx context.Context, tenantID string) ([]domain.User, error) {
	rows, err := r.q.ListUsersByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, len(rows))
	for i, row := range rows {
		out[i] = mapUser(row)
	}
	return out, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	err := r.q.CreateUser(ctx, gen.CreateUserParams{
		ID:           u.ID,
		TenantID:     u.TenantID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    toMillis(u.CreatedAt),
	})
	return mapConstraint(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error {
	return requireAffected(r.q.UpdateUserPasswordHash(ctx, userID, hash, toMillis(at)))
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role, at time.Time) error {
	return requireAffected(r.q.UpdateUserRole(ctx, userID, string(role), toMillis(at)))
}

func (r *usersRepo) DeactivateUser(ctx context.Context, userID string, at time.Time) error {
	return requireAffected(r.q.DeactivateUser(ctx, userID, toMillis(at)))
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func mapUser(row gen.User) domain.User {
	return domain.User{
		ID:            row.ID,
		Email:         row.Email,
		PasswordHash:  row.PasswordHash,
		Role:          domain.Role(row.Role),
		TenantID:      row.TenantID,
		CreatedAt:     fromMillis(row.CreatedAt),
		UpdatedAt:     fromMillis(row.UpdatedAt),
		DeactivatedAt: mapNullMillis(row.DeactivatedAt),
	}
}
