package authz

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/metrics"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// TokenVerifier resolves a bearer token to its principal.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, raw string) (domain.Principal, error)
}

// Limiter counts requests per identity.
type Limiter interface {
	Allow(ctx context.Context, key string) httpx.WindowResult
}

// Recorder accepts audit events without blocking.
type Recorder interface {
	Record(ctx context.Context, e domain.AuditEvent)
}

// Enforcer guards protected routes. Limiter and Audit are optional.
type Enforcer struct {
	Tokens  TokenVerifier
	Limiter Limiter
	Audit   Recorder
	Now     func() time.Time
}

// Protect wraps next so that it only runs for an authenticated, permitted,
// not rate limited caller. The steps run in a fixed order: bearer
// extraction, token verification, rate limit, authorization.
func (e *Enforcer) Protect(policy Policy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resource := r.Method + " " + r.URL.Path

		raw, ok := httpx.BearerToken(r)
		if !ok {
			e.record(ctx, domain.AuditEvent{Action: domain.ActionAuthenticate, Resource: resource}, domain.ErrUnauthenticated)
			WriteError(w, r, domain.ErrUnauthenticated)
			return
		}

		principal, err := e.Tokens.VerifyToken(ctx, raw)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			de, _ := domain.AsError(err)
			e.record(ctx, domain.AuditEvent{Action: domain.ActionAuthenticate, Resource: resource}, err)
			if de.Status == http.StatusUnauthorized {
				slogx.FromContext(ctx).Info("bearer token rejected", slog.String("reason", de.Code))
			}
			WriteError(w, r, err)
			return
		}

		ctx = slogx.WithAttrs(ctx, "user_id", principal.UserID, "tenant_id", principal.TenantID)
		ev := domain.AuditEvent{
			TenantID:  principal.TenantID,
			ActorID:   principal.UserID,
			ActorRole: string(principal.Role),
			Resource:  resource,
		}

		if e.Limiter != nil {
			res := e.Limiter.Allow(ctx, "user:"+principal.UserID)
			httpx.WriteRateLimitHeaders(w, res, e.now())
			if !res.Allowed {
				metrics.RateLimited.WithLabelValues("identity").Inc()
				ev.Action = domain.ActionRateLimited
				e.record(ctx, ev, domain.ErrRateLimitExceeded)
				slogx.FromContext(ctx).Warn("rate limit exceeded", slog.String("operation", string(policy.Operation)))
				WriteError(w, r.WithContext(ctx), domain.ErrRateLimitExceeded)
				return
			}
		}

		var tenant string
		if policy.Tenant != nil {
			tenant = policy.Tenant(r)
		}
		if err := Authorize(principal, policy, tenant); err != nil {
			de, _ := domain.AsError(err)
			metrics.AuthDecisions.WithLabelValues(string(policy.Operation), de.Code).Inc()
			ev.Action = domain.ActionAuthorize
			if tenant != "" {
				ev.Resource = resource + " tenant:" + tenant
			}
			e.record(ctx, ev, err)
			slogx.FromContext(ctx).Info("access denied",
				slog.String("operation", string(policy.Operation)),
				slog.String("reason", de.Code),
			)
			WriteError(w, r.WithContext(ctx), err)
			return
		}
		metrics.AuthDecisions.WithLabelValues(string(policy.Operation), "allowed").Inc()

		if policy.Audit {
			ev.Action = policy.Action
			e.record(ctx, ev, nil)
		}

		ctx = ContextWithPrincipal(ctx, principal)
		ctx = ContextWithToken(ctx, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (e *Enforcer) record(ctx context.Context, ev domain.AuditEvent, err error) {
	if e.Audit == nil {
		return
	}
	ev.Outcome = domain.OutcomeSuccess
	if err != nil {
		de, _ := domain.AsError(err)
		ev.Reason = de.Code
		ev.Outcome = domain.OutcomeFailure
		if de.Status == http.StatusForbidden || de.Status == http.StatusTooManyRequests {
			ev.Outcome = domain.OutcomeDenied
		}
	}
	e.Audit.Record(ctx, ev)
}

func (e *Enforcer) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
