package domain

import "time"

// Role is the RBAC role carried by a user and its tokens.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleOperator   Role = "operator"
	RoleViewer     Role = "viewer"
)

// Roles lists every known role, most privileged first.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleOperator, RoleViewer}

// ParseRole returns the Role named s.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// CrossTenant reports whether the role may act on any tenant.
func (r Role) CrossTenant() bool { return r == RoleSuperAdmin }

type User struct {
	ID            string
	Email         string // lowercase, unique
	PasswordHash  string // argon2id PHC string, or legacy bcrypt
	Role          Role
	TenantID      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeactivatedAt *time.Time
}

// Active reports whether the user may still authenticate.
func (u *User) Active() bool { return u.DeactivatedAt == nil }
