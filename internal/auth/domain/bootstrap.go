package domain

// BootstrapData describes the first tenant and its super admin, created once
// on an empty system.
type BootstrapData struct {
	TenantName    string
	AdminEmail    string
	AdminPassword string
}
