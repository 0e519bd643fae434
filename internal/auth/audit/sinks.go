package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
)

// StoreSink appends events to the service's own database.
type StoreSink struct {
	Events store.AuditEvents
}

func (StoreSink) Name() string { return "store" }

func (s StoreSink) Write(ctx context.Context, events []domain.AuditEvent) (int, error) {
	var (
		written int
		errs    []error
	)
	for _, e := range events {
		if err := s.Events.AppendAuditEvent(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("append %s: %w", e.ID, err))
			continue
		}
		written++
	}
	return written, errors.Join(errs...)
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL DEFAULT '',
    actor_id    TEXT NOT NULL DEFAULT '',
    actor_role  TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    resource    TEXT NOT NULL DEFAULT '',
    outcome     TEXT NOT NULL,
    reason      TEXT NOT NULL DEFAULT '',
    request_id  TEXT NOT NULL DEFAULT '',
    remote_addr TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_tenant ON audit_events (tenant_id, created_at);

CREATE OR REPLACE FUNCTION audit_events_append_only() RETURNS trigger AS $$
BEGIN
    RAISE EXCEPTION 'audit_events is append-only';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS audit_events_append_only ON audit_events;
CREATE TRIGGER audit_events_append_only
    BEFORE UPDATE OR DELETE ON audit_events
    FOR EACH ROW EXECUTE FUNCTION audit_events_append_only();
`

const postgresInsert = `
INSERT INTO audit_events (
    id, tenant_id, actor_id, actor_role, action, resource,
    outcome, reason, request_id, remote_addr, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING`

// PostgresSink ships events to a central Postgres database for retention
// beyond the service's own store.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to dsn and creates the audit table if needed.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit postgres schema: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

func (*PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Write(ctx context.Context, events []domain.AuditEvent) (int, error) {
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(postgresInsert,
			e.ID, e.TenantID, e.ActorID, e.ActorRole, e.Action, e.Resource,
			string(e.Outcome), e.Reason, e.RequestID, e.RemoteAddr, e.CreatedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	written := 0
	var errs []error
	for range events {
		if _, err := br.Exec(); err != nil {
			errs = append(errs, err)
			continue
		}
		written++
	}
	if err := br.Close(); err != nil {
		errs = append(errs, err)
	}
	return written, errors.Join(errs...)
}

func (s *PostgresSink) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresSink) Close() { s.pool.Close() }
