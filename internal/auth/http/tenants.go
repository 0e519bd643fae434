package http

import (
	"net/http"

	"github.com/aussiebroadwan/tenantauth/internal/auth/authz"
	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
)

// TenantsHandler manages tenants and their users.
type TenantsHandler struct {
	CredentialService *service.CredentialService
}

// HandleCreateTenant handles POST /v1/tenants
//
//	@Summary		Create tenant
//	@Tags			Tenants
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.CreateTenantRequest	true	"Tenant name"
//	@Success		201		{object}	authsdk.Tenant
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid name"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Requires super_admin"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Name already taken"
//	@Security		BearerAuth
//	@Router			/v1/tenants [post]
func (h *TenantsHandler) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())

	var req authsdk.CreateTenantRequest
	if err := decodeBody(r, w, &req); err != nil {
		authz.WriteError(w, r, err)
		return
	}

	tenant, err := h.CredentialService.CreateTenant(r.Context(), p, req.Name)
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toTenant(tenant))
}

// HandleGetTenant handles GET /v1/tenants/{tenant_id}
//
//	@Summary		Get tenant
//	@Tags			Tenants
//	@Produce		json
//	@Param			tenant_id	path		string	true	"Tenant ID"
//	@Success		200			{object}	authsdk.Tenant
//	@Failure		403			{object}	authsdk.ErrorResponse	"Forbidden or tenant mismatch"
//	@Failure		404			{object}	authsdk.ErrorResponse	"Tenant not found"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{tenant_id} [get]
func (h *TenantsHandler) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.CredentialService.GetTenant(r.Context(), r.PathValue("tenant_id"))
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTenant(tenant))
}

// HandleListUsers handles GET /v1/tenants/{tenant_id}/users
//
//	@Summary		List users
//	@Tags			Users
//	@Produce		json
//	@Param			tenant_id	path		string	true	"Tenant ID"
//	@Success		200			{object}	authsdk.ListUsersResponse
//	@Failure		403			{object}	authsdk.ErrorResponse	"Forbidden or tenant mismatch"
//	@Failure		404			{object}	authsdk.ErrorResponse	"Tenant not found"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{tenant_id}/users [get]
func (h *TenantsHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.CredentialService.ListUsers(r.Context(), r.PathValue("tenant_id"))
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}

	resp := authsdk.ListUsersResponse{Users: make([]authsdk.User, len(users))}
	for i, u := range users {
		resp.Users[i] = toUser(u)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreateUser handles POST /v1/tenants/{tenant_id}/users
//
//	@Summary		Create user
//	@Description	Adds a user to the tenant. Only a super_admin may create another super_admin.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			tenant_id	path		string						true	"Tenant ID"
//	@Param			body		body		authsdk.CreateUserRequest	true	"Email, password and role"
//	@Success		201			{object}	authsdk.User
//	@Failure		400			{object}	authsdk.ErrorResponse	"Invalid email, role or password"
//	@Failure		403			{object}	authsdk.ErrorResponse	"Forbidden or tenant mismatch"
//	@Failure		404			{object}	authsdk.ErrorResponse	"Tenant not found"
//	@Failure		409			{object}	authsdk.ErrorResponse	"Email already registered"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{tenant_id}/users [post]
func (h *TenantsHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())

	var req authsdk.CreateUserRequest
	if err := decodeBody(r, w, &req); err != nil {
		authz.WriteError(w, r, err)
		return
	}

	user, err := h.CredentialService.CreateUserAs(r.Context(), p, service.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
		TenantID: r.PathValue("tenant_id"),
	})
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUser(user))
}

// HandleChangeRole handles PUT /v1/tenants/{tenant_id}/users/{user_id}/role
//
//	@Summary		Change role
//	@Description	Sets a user's role. The user's outstanding tokens stop verifying.
//	@Tags			Users
//	@Accept			json
//	@Param			tenant_id	path	string						true	"Tenant ID"
//	@Param			user_id		path	string						true	"User ID"
//	@Param			body		body	authsdk.ChangeRoleRequest	true	"New role"
//	@Success		204			"Role changed"
//	@Failure		400			{object}	authsdk.ErrorResponse	"Unknown role"
//	@Failure		403			{object}	authsdk.ErrorResponse	"Forbidden or tenant mismatch"
//	@Failure		404			{object}	authsdk.ErrorResponse	"User not found"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{tenant_id}/users/{user_id}/role [put]
func (h *TenantsHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())

	var req authsdk.ChangeRoleRequest
	if err := decodeBody(r, w, &req); err != nil {
		authz.WriteError(w, r, err)
		return
	}

	userID, err := h.userInTenant(r)
	if err == nil {
		err = h.CredentialService.ChangeRole(r.Context(), p, userID, domain.Role(req.Role))
	}
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeactivate handles POST /v1/tenants/{tenant_id}/users/{user_id}/deactivate
//
//	@Summary		Deactivate user
//	@Description	Disables a user. Deactivated users cannot log in and their tokens stop verifying.
//	@Tags			Users
//	@Param			tenant_id	path	string	true	"Tenant ID"
//	@Param			user_id		path	string	true	"User ID"
//	@Success		204			"User deactivated"
//	@Failure		403			{object}	authsdk.ErrorResponse	"Forbidden or tenant mismatch"
//	@Failure		404			{object}	authsdk.ErrorResponse	"User not found"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{tenant_id}/users/{user_id}/deactivate [post]
func (h *TenantsHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())

	userID, err := h.userInTenant(r)
	if err == nil {
		err = h.CredentialService.Deactivate(r.Context(), p, userID)
	}
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userInTenant resolves the {user_id} path value and checks it belongs to
// the {tenant_id} of the route. A user of another tenant reads as not found.
func (h *TenantsHandler) userInTenant(r *http.Request) (string, error) {
	user, err := h.CredentialService.GetUser(r.Context(), r.PathValue("user_id"))
	if err != nil {
		return "", err
	}
	if user.TenantID != r.PathValue("tenant_id") {
		return "", domain.ErrNotFound
	}
	return user.ID, nil
}
