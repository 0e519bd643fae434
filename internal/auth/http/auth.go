package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/authz"
	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
)

// LoginHandler serves POST /v1/auth/login.
// Accepts application/x-www-form-urlencoded.
type LoginHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Password login
//	@Description	Exchanges an email and password for an access token valid for the configured lifetime (8h by default).
//	@Description	Unknown email, wrong password and deactivated accounts all fail with the same invalid_credentials error.
//	@Tags			Auth
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			email		formData	string					true	"Account email"
//	@Param			password	formData	string					true	"Account password"
//	@Success		200			{object}	authsdk.LoginResponse	"access_token, token_type, expires_in, expires_at"
//	@Failure		400			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		429			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200			{string}	Cache-Control			"no-store"
//	@Header			200			{string}	Pragma					"no-cache"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		authz.WriteError(w, r, err)
		return
	}

	email := r.PostForm.Get("email")
	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		authz.WriteError(w, r, domain.ErrInvalidInput)
		return
	}

	token, err := h.TokenService.Login(r.Context(), email, password)
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		AccessToken: token.Token,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
		ExpiresAt:   token.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// RevokeHandler serves POST /v1/auth/revoke. Without a token parameter the
// caller's own bearer token is revoked.
type RevokeHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token revocation
//	@Description	Revokes an access token until its natural expiry. Revoking an expired or already revoked token succeeds.
//	@Description	Users may revoke their own tokens; admins may revoke tokens of their tenant's users.
//	@Tags			Auth
//	@Accept			application/x-www-form-urlencoded
//	@Param			token	formData	string	false	"Token to revoke (defaults to the bearer token)"
//	@Success		204		"Token revoked (or was already unusable)"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		403		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/auth/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, _ := authz.PrincipalFromContext(ctx)

	if err := parseForm(r); err != nil {
		authz.WriteError(w, r, err)
		return
	}

	token := r.PostForm.Get("token")
	if token == "" {
		token, _ = authz.TokenFromContext(ctx)
	}

	if err := h.TokenService.RevokeTokenAs(ctx, caller, token); err != nil {
		authz.WriteError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
