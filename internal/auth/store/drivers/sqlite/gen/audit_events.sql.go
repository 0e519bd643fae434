package gen

import "context"

const appendAuditEvent = `INSERT INTO audit_events
    (id, tenant_id, actor_id, actor_role, action, resource, outcome, reason, request_id, remote_addr, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) AppendAuditEvent(ctx context.Context, e AuditEvent) error {
	_, err := q.db.ExecContext(ctx, appendAuditEvent,
		e.ID,
		e.TenantID,
		e.ActorID,
		e.ActorRole,
		e.Action,
		e.Resource,
		e.Outcome,
		e.Reason,
		e.RequestID,
		e.RemoteAddr,
		e.CreatedAt,
	)
	return err
}

const listAuditEventsByTenant = `SELECT
    id, tenant_id, actor_id, actor_role, action, resource, outcome, reason, request_id, remote_addr, created_at
FROM audit_events
WHERE tenant_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`

func (q *Queries) ListAuditEventsByTenant(ctx context.Context, tenantID string, limit int64) ([]AuditEvent, error) {
	rows, err := q.db.QueryContext(ctx, listAuditEventsByTenant, tenantID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (AuditEvent, error) {
		var e AuditEvent
		err := row.Scan(
			&e.ID,
			&e.TenantID,
			&e.ActorID,
			&e.ActorRole,
			&e.Action,
			&e.Resource,
			&e.Outcome,
			&e.Reason,
			&e.RequestID,
			&e.RemoteAddr,
			&e.CreatedAt,
		)
		return e, err
	})
}
