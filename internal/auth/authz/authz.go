// Package authz is the access control layer between the transport and the
// services. Every protected route is declared with a Policy and wrapped by
// Enforcer.Protect; handlers read the caller from PrincipalFromContext.
package authz

import (
	"net/http"
	"slices"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
)

// Operation is a category of request a role may be granted.
type Operation string

const (
	OpProfileRead       Operation = "profile:read"
	OpDataRead          Operation = "data:read"
	OpDataWrite         Operation = "data:write"
	OpCredentialsRead   Operation = "credentials:read"
	OpCredentialsManage Operation = "credentials:manage"
	OpUsersRead         Operation = "users:read"
	OpUsersManage       Operation = "users:manage"
	OpAuditRead         Operation = "audit:read"
	OpTenantsManage     Operation = "tenants:manage"
	OpKeysManage        Operation = "keys:manage"
)

var (
	viewerOps   = []Operation{OpProfileRead, OpDataRead}
	operatorOps = append(slices.Clone(viewerOps), OpDataWrite, OpCredentialsRead)
	adminOps    = append(slices.Clone(operatorOps), OpCredentialsManage, OpUsersRead, OpUsersManage, OpAuditRead)
	superOps    = append(slices.Clone(adminOps), OpTenantsManage, OpKeysManage)
)

// roleOperations is the complete grant table. A role not listed here is
// granted nothing.
var roleOperations = map[domain.Role][]Operation{
	domain.RoleViewer:     viewerOps,
	domain.RoleOperator:   operatorOps,
	domain.RoleAdmin:      adminOps,
	domain.RoleSuperAdmin: superOps,
}

// Allowed reports whether role is granted op.
func Allowed(role domain.Role, op Operation) bool {
	return slices.Contains(roleOperations[role], op)
}

// Operations lists what role is granted.
func Operations(role domain.Role) []Operation {
	return slices.Clone(roleOperations[role])
}

// TenantResolver returns the tenant a request refers to, or "" when the
// request is not tenant scoped.
type TenantResolver func(*http.Request) string

// TenantFromPath resolves the tenant from a ServeMux path wildcard.
func TenantFromPath(name string) TenantResolver {
	return func(r *http.Request) string { return r.PathValue(name) }
}

// Policy declares what a route requires.
type Policy struct {
	Operation Operation
	Tenant    TenantResolver // nil for routes without a tenant in the request

	// Action names the audit event written for an allowed request when
	// Audit is set. Denials are always audited.
	Action string
	Audit  bool
}

// Authorize decides whether p may perform policy's operation on a resource
// of resourceTenant. The role is checked before the tenant.
func Authorize(p domain.Principal, policy Policy, resourceTenant string) error {
	if !Allowed(p.Role, policy.Operation) {
		return domain.ErrForbidden
	}
	if resourceTenant != "" && resourceTenant != p.TenantID && !p.Role.CrossTenant() {
		return domain.ErrTenantMismatch
	}
	return nil
}
