package gen

import "database/sql"

// Timestamps are unix milliseconds.

type Tenant struct {
	ID            string
	Name          string
	CreatedAt     int64
	DeactivatedAt sql.NullInt64
}

type User struct {
	ID            string
	TenantID      string
	Email         string
	PasswordHash  string
	Role          string
	CreatedAt     int64
	UpdatedAt     int64
	DeactivatedAt sql.NullInt64
}

type MerchantCredential struct {
	ID         string
	TenantID   string
	PortalID   string
	Ciphertext []byte
	KeyRef     string
	CreatedAt  int64
	UpdatedAt  int64
}

type AuditEvent struct {
	ID         string
	TenantID   string
	ActorID    string
	ActorRole  string
	Action     string
	Resource   string
	Outcome    string
	Reason     string
	RequestID  string
	RemoteAddr string
	CreatedAt  int64
}

type SigningKey struct {
	ID              string
	Kid             string
	Algorithm       string
	SecretEncrypted []byte
	CreatedAt       int64
	RetiredAt       sql.NullInt64
	ExpiresAt       sql.NullInt64
}

type RevokedToken struct {
	Jti       string
	Subject   string
	ExpiresAt int64
	RevokedAt int64
}
