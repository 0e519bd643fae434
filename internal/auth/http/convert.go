package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// decodeBody decodes a JSON request body into v. Unknown fields are refused.
func decodeBody(r *http.Request, w http.ResponseWriter, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("%w: content-type must be application/json", domain.ErrInvalidInput)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

// parseForm parses an application/x-www-form-urlencoded body.
func parseForm(r *http.Request) error {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		return fmt.Errorf("%w: content-type must be application/x-www-form-urlencoded", domain.ErrInvalidInput)
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: invalid form body", domain.ErrInvalidInput)
	}
	return nil
}

func rfc3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func rfc3339Ptr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := rfc3339(*t)
	return &s
}

func toTenant(t domain.Tenant) authsdk.Tenant {
	return authsdk.Tenant{ID: t.ID, Name: t.Name, CreatedAt: rfc3339(t.CreatedAt)}
}

func toUser(u domain.User) authsdk.User {
	return authsdk.User{
		ID:            u.ID,
		Email:         u.Email,
		Role:          string(u.Role),
		TenantID:      u.TenantID,
		CreatedAt:     rfc3339(u.CreatedAt),
		DeactivatedAt: rfc3339Ptr(u.DeactivatedAt),
	}
}

func toCredential(c domain.MerchantCredential) authsdk.Credential {
	return authsdk.Credential{
		ID:        c.ID,
		TenantID:  c.TenantID,
		PortalID:  c.PortalID,
		KeyRef:    c.KeyRef,
		CreatedAt: rfc3339(c.CreatedAt),
		UpdatedAt: rfc3339(c.UpdatedAt),
	}
}

func toAuditEvent(e domain.AuditEvent) authsdk.AuditEvent {
	return authsdk.AuditEvent{
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
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
