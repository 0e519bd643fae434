package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories, so a transaction hands out the same repos bound to
// the transaction instead of nesting.
type Store interface {
	Tenants() Tenants
	Users() Users
	MerchantCredentials() MerchantCredentials
	AuditEvents() AuditEvents
	SigningKeys() SigningKeys
	RevokedTokens() RevokedTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Tenants interface {
	CreateTenant(ctx context.Context, t domain.Tenant) error
	GetTenantByID(ctx context.Context, id string) (domain.Tenant, error)
	ListTenants(ctx context.Context) ([]domain.Tenant, error)
	IsEmpty(ctx context.Context) (bool, error)
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsersByTenant returns a tenant's users ordered by creation.
	ListUsersByTenant(ctx context.Context, tenantID string) ([]domain.User, error)

	// CreateUser fails with ErrAlreadyExists on a duplicate email.
	CreateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error
	UpdateRole(ctx context.Context, userID string, role domain.Role, at time.Time) error

	// DeactivateUser sets deactivated_at once; users are never deleted.
	DeactivateUser(ctx context.Context, userID string, at time.Time) error

	IsEmpty(ctx context.Context) (bool, error)
}

type MerchantCredentials interface {
	// UpsertMerchantCredential inserts or replaces the sealed credential for
	// (tenant, portal). It reports whether a previous credential existed.
	UpsertMerchantCredential(ctx context.Context, c domain.MerchantCredential) (replaced bool, err error)

	GetMerchantCredential(ctx context.Context, tenantID, portalID string) (domain.MerchantCredential, error)

	// ResealMerchantCredential swaps in the ciphertext and key reference of c
	// only while the stored row still has prevKeyRef and prevUpdatedAt.
	// ErrNotFound means the row changed or is gone.
	ResealMerchantCredential(ctx context.Context, c domain.MerchantCredential, prevKeyRef string, prevUpdatedAt time.Time) error

	ListMerchantCredentials(ctx context.Context, tenantID string) ([]domain.MerchantCredential, error)

	// ListMerchantCredentialsNotSealedWith returns credentials across tenants
	// whose key reference differs from keyRef.
	ListMerchantCredentialsNotSealedWith(ctx context.Context, keyRef string) ([]domain.MerchantCredential, error)

	DeleteMerchantCredential(ctx context.Context, tenantID, portalID string) error
}

// AuditEvents is append-only. There is deliberately no update or delete.
type AuditEvents interface {
	AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error
	ListAuditEventsByTenant(ctx context.Context, tenantID string, limit int) ([]domain.AuditEvent, error)
}

type SigningKeys interface {
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error
	GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error)

	// ListSigningKeys returns every stored key, newest first.
	ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// ListUsableSigningKeys returns active keys and retired keys that have
	// not reached expires_at.
	ListUsableSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error)

	// RetireSigningKey sets retired_at and the end of the grace window.
	RetireSigningKey(ctx context.Context, kid string, retiredAt, expiresAt time.Time) error

	// DeleteExpiredSigningKeys removes retired keys past expires_at.
	DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error)
}

type RevokedTokens interface {
	// RevokeToken is idempotent.
	RevokeToken(ctx context.Context, t domain.RevokedToken) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpiredRevocations(ctx context.Context, now time.Time) (int64, error)
}
