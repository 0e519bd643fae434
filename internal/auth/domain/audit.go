package domain

import "time"

// AuditOutcome is the result recorded on an AuditEvent.
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFailure AuditOutcome = "failure"
	OutcomeDenied  AuditOutcome = "denied"
)

// Audit actions.
const (
	ActionLogin             = "auth.login"
	ActionAuthenticate      = "auth.authenticate"
	ActionAuthorize         = "auth.authorize"
	ActionRateLimited       = "auth.rate_limited"
	ActionTokenRevoke       = "token.revoke"
	ActionKeyRotate         = "key.rotate"
	ActionKeyRetire         = "key.retire"
	ActionTenantCreate      = "tenant.create"
	ActionUserCreate        = "user.create"
	ActionUserRoleChange    = "user.role_change"
	ActionUserDeactivate    = "user.deactivate"
	ActionPasswordChange    = "user.password_change"
	ActionCredentialStore   = "credential.store"
	ActionCredentialRotate  = "credential.rotate"
	ActionCredentialRead    = "credential.read"
	ActionCredentialDelete  = "credential.delete"
	ActionCredentialsReseal = "credential.reseal"
	ActionSystemBootstrap   = "system.bootstrap"
)

// AuditEvent is an append-only record of a security relevant action. Once
// written it is never updated or deleted.
type AuditEvent struct {
	ID         string
	TenantID   string
	ActorID    string
	ActorRole  string
	Action     string
	Resource   string
	Outcome    AuditOutcome
	Reason     string // stable error code for failures and denials
	RequestID  string
	RemoteAddr string
	CreatedAt  time.Time
}
