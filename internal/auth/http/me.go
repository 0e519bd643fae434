package http

import (
	"net/http"

	"github.com/aussiebroadwan/tenantauth/internal/auth/authz"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
)

// MeHandler serves the caller's own profile.
type MeHandler struct {
	CredentialService *service.CredentialService
}

// HandleGet handles GET /v1/me
//
//	@Summary		Current user
//	@Description	Returns the caller's identity, tenant and the operations their role permits
//	@Tags			Profile
//	@Produce		json
//	@Success		200	{object}	authsdk.Me
//	@Failure		401	{object}	authsdk.ErrorResponse	"Unauthorized"
//	@Failure		429	{object}	authsdk.ErrorResponse	"Too many requests"
//	@Security		BearerAuth
//	@Router			/v1/me [get]
func (h *MeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())

	user, err := h.CredentialService.GetUser(r.Context(), p.UserID)
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}

	ops := authz.Operations(p.Role)
	me := authsdk.Me{
		UserID:     p.UserID,
		Email:      user.Email,
		Role:       string(p.Role),
		TenantID:   p.TenantID,
		Operations: make([]string, len(ops)),
		ExpiresAt:  rfc3339(p.ExpiresAt),
	}
	for i, op := range ops {
		me.Operations[i] = string(op)
	}
	httpx.WriteJSON(w, http.StatusOK, me)
}

// HandleChangePassword handles POST /v1/me/password
//
//	@Summary		Change password
//	@Description	Replaces the caller's password after checking the current one
//	@Tags			Profile
//	@Accept			json
//	@Param			body	body	authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		204		"Password changed"
//	@Failure		400		{object}	authsdk.ErrorResponse	"New password too short"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Current password is wrong"
//	@Security		BearerAuth
//	@Router			/v1/me/password [post]
func (h *MeHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())

	var req authsdk.ChangePasswordRequest
	if err := decodeBody(r, w, &req); err != nil {
		authz.WriteError(w, r, err)
		return
	}

	if err := h.CredentialService.ChangePassword(r.Context(), p, req.CurrentPassword, req.NewPassword); err != nil {
		authz.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
