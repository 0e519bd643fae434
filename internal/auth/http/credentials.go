package http

import (
	"net/http"

	"github.com/aussiebroadwan/tenantauth/internal/auth/authz"
	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
)

// CredentialsHandler serves a tenant's sealed merchant portal credentials.
type CredentialsHandler struct {
	CredentialService *service.CredentialService
}

// HandlePut handles PUT /v1/tenants/{tenant_id}/credentials/{portal_id}
//
//	@Summary		Store or rotate a merchant credential
//	@Description	Seals the portal credential with the primary sealing key. Storing again for the same portal rotates it.
//	@Tags			Credentials
//	@Accept			json
//	@Produce		json
//	@Param			tenant_id	path		string					true	"Tenant ID"
//	@Param			portal_id	path		string					true	"Portal ID"
//	@Param			body		body		authsdk.PortalSecret	true	"Portal credential"
//	@Success		200			{object}	authsdk.Credential
//	@Failure		400			{object}	authsdk.ErrorResponse	"Invalid portal id or credential"
//	@Failure		403			{object}	authsdk.ErrorResponse	"Forbidden or tenant mismatch"
//	@Failure		404			{object}	authsdk.ErrorResponse	"Tenant not found"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{tenant_id}/credentials/{portal_id} [put]
func (h *CredentialsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())

	var req authsdk.PortalSecret
	if err := decodeBody(r, w, &req); err != nil {
		authz.WriteError(w, r, err)
		return
	}

	cred, err := h.CredentialService.StoreMerchantCredential(
		r.Context(),
		p,
		r.PathValue("tenant_id"),
		r.PathValue("portal_id"),
		domain.PortalSecret{Username: req.Username, Password: req.Password, Extra: req.Extra},
	)
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCredential(cred))
}

// HandleGet handles GET /v1/tenants/{tenant_id}/credentials/{portal_id}
//
//	@Summary		Retrieve a merchant credential
//	@Description	Returns the plaintext portal credential. Every read is audited.
//	@Tags			Credentials
//	@Produce		json
//	@Param			tenant_id	path		string	true	"Tenant ID"
//	@Param			portal_id	path		string	true	"Portal ID"
//	@Success		200			{object}	authsdk.PortalSecret
//	@Failure		403			{object}	authsdk.ErrorResponse	"Forbidden or tenant mismatch"
//	@Failure		404			{object}	authsdk.ErrorResponse	"Credential not found"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{tenant_id}/credentials/{portal_id} [get]
func (h *CredentialsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())

	secret, err := h.CredentialService.RetrieveMerchantCredential(
		r.Context(),
		p,
		r.PathValue("tenant_id"),
		r.PathValue("portal_id"),
	)
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.PortalSecret{
		Username: secret.Username,
		Password: secret.Password,
		Extra:    secret.Extra,
	})
}

// HandleDelete handles DELETE /v1/tenants/{tenant_id}/credentials/{portal_id}
//
//	@Summary		Delete a merchant credential
//	@Tags			Credentials
//	@Param			tenant_id	path	string	true	"Tenant ID"
//	@Param			portal_id	path	string	true	"Portal ID"
//	@Success		204			"Credential deleted"
//	@Failure		403			{object}	authsdk.ErrorResponse	"Forbidden or tenant mismatch"
//	@Failure		404			{object}	authsdk.ErrorResponse	"Credential not found"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{tenant_id}/credentials/{portal_id} [delete]
func (h *CredentialsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())

	err := h.CredentialService.DeleteMerchantCredential(r.Context(), p, r.PathValue("tenant_id"), r.PathValue("portal_id"))
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
