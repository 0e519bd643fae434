package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
)

// Recorder accepts audit events. Record must not block the caller and must
// not report failures back; the audit package provides the implementation.
type Recorder interface {
	Record(ctx context.Context, e domain.AuditEvent)
}

func record(ctx context.Context, r Recorder, e domain.AuditEvent) {
	if r == nil {
		return
	}
	r.Record(ctx, e)
}

// actorEvent starts an audit event attributed to actor.
func actorEvent(actor domain.Principal, action, resource string) domain.AuditEvent {
	return domain.AuditEvent{
		TenantID:  actor.TenantID,
		ActorID:   actor.UserID,
		ActorRole: string(actor.Role),
		Action:    action,
		Resource:  resource,
		Outcome:   domain.OutcomeSuccess,
	}
}

// withOutcome marks e as failed or denied when err is non-nil.
func withOutcome(e domain.AuditEvent, err error) domain.AuditEvent {
	if err == nil {
		return e
	}
	de, _ := domain.AsError(err)
	e.Reason = de.Code
	e.Outcome = domain.OutcomeFailure
	switch de {
	case domain.ErrForbidden, domain.ErrTenantMismatch, domain.ErrAccessDenied:
		e.Outcome = domain.OutcomeDenied
	}
	return e
}

// systemActor is the principal used for operator actions that do not come
// through the HTTP surface (bootstrap, admin CLI).
var systemActor = domain.Principal{UserID: "system", Role: domain.RoleSuperAdmin}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
