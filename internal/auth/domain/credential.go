package domain

import "time"

// MerchantCredential is the stored, sealed form of a tenant's third-party
// portal credentials. The plaintext is never persisted.
type MerchantCredential struct {
	ID         string
	TenantID   string
	PortalID   string
	Ciphertext []byte
	KeyRef     string // sealing key that produced Ciphertext
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PortalSecret is the plaintext of a MerchantCredential.
type PortalSecret struct {
	Username string            `json:"username"`
	Password string            `json:"password"`
	Extra    map[string]string `json:"extra,omitempty"`
}
