package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ============================================================================
// Profile
// ============================================================================

// Me returns the caller's identity and permitted operations.
func (s *Session) Me(ctx context.Context) (*Me, error) {
	var me Me
	if err := s.doAuthJSON(ctx, http.MethodGet, "/v1/me", nil, &me, http.StatusOK); err != nil {
		return nil, err
	}
	return &me, nil
}

// ChangePassword replaces the caller's password.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	req := ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	return s.doAuthJSON(ctx, http.MethodPost, "/v1/me/password", req, nil, http.StatusNoContent)
}

// ============================================================================
// Tenants
// ============================================================================

// CreateTenant registers a new tenant.
// Requires: super_admin
func (s *Session) CreateTenant(ctx context.Context, name string) (*Tenant, error) {
	var tenant Tenant
	req := CreateTenantRequest{Name: name}
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/tenants", req, &tenant, http.StatusCreated); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetTenant returns a tenant.
// Requires: admin of the tenant, or super_admin
func (s *Session) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	var tenant Tenant
	if err := s.doAuthJSON(ctx, http.MethodGet, tenantPath(tenantID), nil, &tenant, http.StatusOK); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ============================================================================
// Users
// ============================================================================

// ListUsers returns the users of a tenant.
// Requires: admin of the tenant, or super_admin
func (s *Session) ListUsers(ctx context.Context, tenantID string) ([]User, error) {
	var users ListUsersResponse
	if err := s.doAuthJSON(ctx, http.MethodGet, tenantPath(tenantID)+"/users", nil, &users, http.StatusOK); err != nil {
		return nil, err
	}
	return users.Users, nil
}

// CreateUser adds a user to a tenant.
// Requires: admin of the tenant, or super_admin
func (s *Session) CreateUser(ctx context.Context, tenantID string, req CreateUserRequest) (*User, error) {
	var user User
	if err := s.doAuthJSON(ctx, http.MethodPost, tenantPath(tenantID)+"/users", req, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangeRole sets a user's role.
// Requires: admin of the tenant, or super_admin
func (s *Session) ChangeRole(ctx context.Context, tenantID, userID, role string) error {
	path := tenantPath(tenantID) + "/users/" + url.PathEscape(userID) + "/role"
	return s.doAuthJSON(ctx, http.MethodPut, path, ChangeRoleRequest{Role: role}, nil, http.StatusNoContent)
}

// DeactivateUser disables a user. Their outstanding tokens stop verifying.
// Requires: admin of the tenant, or super_admin
func (s *Session) DeactivateUser(ctx context.Context, tenantID, userID string) error {
	path := tenantPath(tenantID) + "/users/" + url.PathEscape(userID) + "/deactivate"
	return s.doAuthJSON(ctx, http.MethodPost, path, nil, nil, http.StatusNoContent)
}

// ============================================================================
// Audit
// ============================================================================

// ListAudit returns up to limit audit events of a tenant, newest first. A
// limit of zero uses the server default.
// Requires: admin of the tenant, or super_admin
func (s *Session) ListAudit(ctx context.Context, tenantID string, limit int) ([]AuditEvent, error) {
	path := tenantPath(tenantID) + "/audit"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	var events ListAuditResponse
	if err := s.doAuthJSON(ctx, http.MethodGet, path, nil, &events, http.StatusOK); err != nil {
		return nil, err
	}
	return events.Events, nil
}

func tenantPath(tenantID string) string {
	return "/v1/tenants/" + url.PathEscape(tenantID)
}
