package authsdk

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	// Error is the stable error code (e.g., "tenant_mismatch")
	Error string `json:"error"`

	// ErrorDescription is a generic human-readable description
	ErrorDescription string `json:"error_description,omitempty"`

	// Fields holds per-field validation failures, when there are any
	Fields map[string]string `json:"fields,omitempty"`
}

// ============================================================================
// Authentication Types
// ============================================================================

// LoginResponse is returned by POST /v1/auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   string `json:"expires_at"` // RFC3339
}

// Me describes the caller of an authenticated request.
type Me struct {
	UserID     string   `json:"user_id"`
	Email      string   `json:"email"`
	Role       string   `json:"role"`
	TenantID   string   `json:"tenant_id"`
	Operations []string `json:"operations"`
	ExpiresAt  string   `json:"expires_at"` // token expiry, RFC3339
}

// ChangePasswordRequest is the body of POST /v1/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ============================================================================
// Bootstrap Types
// ============================================================================

// BootstrapRequest creates the first tenant and its super admin.
type BootstrapRequest struct {
	TenantName    string `json:"tenant_name"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

// BootstrapResponse identifies what bootstrap created.
type BootstrapResponse struct {
	TenantID    string `json:"tenant_id"`
	AdminUserID string `json:"admin_user_id"`
}

// ============================================================================
// Tenant and User Types
// ============================================================================

// Tenant is the public view of a tenant.
type Tenant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// CreateTenantRequest is the body of POST /v1/tenants.
type CreateTenantRequest struct {
	Name string `json:"name"`
}

// User is the public view of a user. It never includes the password hash.
type User struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Role          string  `json:"role"`
	TenantID      string  `json:"tenant_id"`
	CreatedAt     string  `json:"created_at"`
	DeactivatedAt *string `json:"deactivated_at,omitempty"`
}

// ListUsersResponse contains a tenant's users.
type ListUsersResponse struct {
	Users []User `json:"users"`
}

// CreateUserRequest is the body of POST /v1/tenants/{tenant_id}/users.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ChangeRoleRequest is the body of PUT /v1/tenants/{tenant_id}/users/{user_id}/role.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// ============================================================================
// Merchant Credential Types
// ============================================================================

// PortalSecret is the plaintext of a merchant portal credential.
type PortalSecret struct {
	Username string            `json:"username"`
	Password string            `json:"password"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Credential is the metadata of a stored merchant credential.
type Credential struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	PortalID  string `json:"portal_id"`
	KeyRef    string `json:"key_ref"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ============================================================================
// Audit Types
// ============================================================================

// AuditEvent is one entry of a tenant's audit log.
type AuditEvent struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
	ActorRole  string `json:"actor_role,omitempty"`
	Action     string `json:"action"`
	Resource   string `json:"resource,omitempty"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// ListAuditResponse contains audit events, newest first.
type ListAuditResponse struct {
	Events []AuditEvent `json:"events"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Signer indicates the JWT signing capability status
	Signer string `json:"signer"`

	// AuditSink indicates the central audit sink status, when one is configured
	AuditSink string `json:"audit_sink,omitempty"`
}

// ============================================================================
// Key Rotation Types
// ============================================================================

// RotateKeyRequest represents a request to rotate signing keys.
type RotateKeyRequest struct {
	// RetireExisting moves current keys into their grace window if true.
	// If false, the new key is added alongside existing keys.
	RetireExisting bool `json:"retire_existing"`
}

// SigningKeyInfo represents a JWT signing key with its metadata.
type SigningKeyInfo struct {
	Kid       string  `json:"kid"`
	Algorithm string  `json:"alg"`
	Primary   bool    `json:"primary"`
	CreatedAt *string `json:"created_at,omitempty"` // RFC3339, absent for env keys
	RetiredAt *string `json:"retired_at,omitempty"`
	ExpiresAt *string `json:"expires_at,omitempty"` // end of the grace window
}

// ListKeysResponse contains the signing keys, primary first.
type ListKeysResponse struct {
	Keys []SigningKeyInfo `json:"keys"`
}

// RotateKeyResponse represents the result of a key rotation operation.
type RotateKeyResponse struct {
	NewKey      SigningKeyInfo   `json:"new_key"`
	RetiredKeys []SigningKeyInfo `json:"retired_keys,omitempty"`
	ActiveKeys  int              `json:"active_keys"`
}
