package sqlite

import (
	"context"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite/gen"
)

type auditEventsRepo struct {
	q *gen.Queries
}

func (r *auditEventsRepo) AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error {
	err := r.q.AppendAuditEvent(ctx, gen.AuditEvent{
		ID:         e.ID,
		TenantID:   e.TenantID,
		ActorID:    e.ActorID,
		ActorRole:  e.ActorRole,
		Action:     e.Action,
		Resource:   e.Resource,
		Outcome:    string(e.Outcome),
		Reason:     e.Reason,
		RequestID:  e.RequestID,
		RemoteAddr: e.RemoteAddr,
		CreatedAt:  toMillis(e.CreatedAt),
	})
	return mapConstraint(err)
}

func (r *auditEventsRepo) ListAuditEventsByTenant(ctx context.Context, tenantID string, limit int) ([]domain.AuditEvent, error) {
	rows, err := r.q.ListAuditEventsByTenant(ctx, tenantID, int64(limit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.AuditEvent, len(rows))
	for i, row := range rows {
		out[i] = domain.AuditEvent{
			ID:         row.ID,
			TenantID:   row.TenantID,
			ActorID:    row.ActorID,
			ActorRole:  row.ActorRole,
			Action:     row.Action,
			Resource:   row.Resource,
			Outcome:    domain.AuditOutcome(row.Outcome),
			Reason:     row.Reason,
			RequestID:  row.RequestID,
			RemoteAddr: row.RemoteAddr,
			CreatedAt:  fromMillis(row.CreatedAt),
		}
	}
	return out, nil
}
