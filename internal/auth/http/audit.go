package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/tenantauth/internal/auth/authz"
	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// AuditHandler lists a tenant's audit log.
type AuditHandler struct {
	Events store.AuditEvents
}

// ServeHTTP handles GET /v1/tenants/{tenant_id}/audit
//
//	@Summary		List audit events
//	@Description	Returns the tenant's audit events, newest first. Reading the audit log is itself audited.
//	@Tags			Audit
//	@Produce		json
//	@Param			tenant_id	path		string	true	"Tenant ID"
//	@Param			limit		query		int		false	"Maximum events to return (1-500, default 100)"
//	@Success		200			{object}	authsdk.ListAuditResponse
//	@Failure		400			{object}	authsdk.ErrorResponse	"Invalid limit"
//	@Failure		403			{object}	authsdk.ErrorResponse	"Forbidden or tenant mismatch"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{tenant_id}/audit [get]
func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxAuditLimit {
			authz.WriteError(w, r, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidInput, maxAuditLimit))
			return
		}
		limit = n
	}

	events, err := h.Events.ListAuditEventsByTenant(r.Context(), r.PathValue("tenant_id"), limit)
	if err != nil {
		authz.WriteError(w, r, fmt.Errorf("list audit events: %w", err))
		return
	}

	resp := authsdk.ListAuditResponse{Events: make([]authsdk.AuditEvent, len(events))}
	for i, e := range events {
		resp.Events[i] = toAuditEvent(e)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
