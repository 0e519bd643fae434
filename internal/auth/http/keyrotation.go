package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tenantauth/internal/auth/authz"
	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
)

var errKeyRotationUnavailable = errors.New("key rotation service not initialized")

// KeyRotationHandler handles key rotation operations for both ephemeral and persistent modes.
// All endpoints require the keys:manage operation (super_admin).
type KeyRotationHandler struct {
	KeyRotationService *service.KeyRotationService
}

// HandleRotate handles POST /v1/keys/rotate
//
//	@Summary		Rotate signing keys
//	@Description	Generate a new signing key and optionally retire existing keys (works in both ephemeral and persistent modes)
//	@Description	Retired keys keep verifying tokens for the grace period, one token lifetime by default.
//	@Tags			Keys
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RotateKeyRequest	false	"Rotation options"
//	@Success		200		{object}	authsdk.RotateKeyResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Bad Request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Unauthorized"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Forbidden - requires super_admin"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal Server Error"
//	@Security		BearerAuth
//	@Router			/v1/keys/rotate [post]
func (h *KeyRotationHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	if h.KeyRotationService == nil {
		authz.WriteError(w, r, errKeyRotationUnavailable)
		return
	}
	p, _ := authz.PrincipalFromContext(r.Context())

	var req authsdk.RotateKeyRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, w, &req); err != nil {
			authz.WriteError(w, r, err)
			return
		}
	}

	resp, err := h.KeyRotationService.RotateKey(r.Context(), p, service.RotateKeyRequest{
		RetireExisting: req.RetireExisting,
	})
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RotateKeyResponse{
		NewKey:      toSDKKey(resp.NewKey),
		RetiredKeys: toSDKKeys(resp.RetiredKeys),
		ActiveKeys:  resp.ActiveKeys,
	})
}

// HandleListKeys handles GET /v1/keys
//
//	@Summary		List signing keys
//	@Description	List all signing keys with their status (works in both ephemeral and persistent modes)
//	@Tags			Keys
//	@Produce		json
//	@Success		200	{object}	authsdk.ListKeysResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Unauthorized"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Forbidden - requires super_admin"
//	@Failure		500	{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/keys [get]
func (h *KeyRotationHandler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	if h.KeyRotationService == nil {
		authz.WriteError(w, r, errKeyRotationUnavailable)
		return
	}

	keys, err := h.KeyRotationService.ListSigningKeys(r.Context())
	if err != nil {
		authz.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.ListKeysResponse{Keys: toSDKKeys(keys)})
}

// HandleRetireKey handles DELETE /v1/keys/{kid}
//
//	@Summary		Retire a signing key
//	@Description	Stop signing with a key without generating a new one. It keeps verifying for the grace period.
//	@Description	The last active key cannot be retired.
//	@Tags			Keys
//	@Param			kid	path	string	true	"Key ID to retire"
//	@Success		204	"No Content - key retired successfully"
//	@Failure		400	{object}	authsdk.ErrorResponse	"Last active key"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Unauthorized"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Forbidden - requires super_admin"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Key not found"
//	@Failure		500	{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/keys/{kid} [delete]
func (h *KeyRotationHandler) HandleRetireKey(w http.ResponseWriter, r *http.Request) {
	if h.KeyRotationService == nil {
		authz.WriteError(w, r, errKeyRotationUnavailable)
		return
	}
	p, _ := authz.PrincipalFromContext(r.Context())

	kid := r.PathValue("kid")
	if kid == "" {
		authz.WriteError(w, r, domain.ErrInvalidInput)
		return
	}

	if err := h.KeyRotationService.RetireKey(r.Context(), p, kid); err != nil {
		authz.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toSDKKey(key service.SigningKeyInfo) authsdk.SigningKeyInfo {
	return authsdk.SigningKeyInfo{
		Kid:       key.Kid,
		Algorithm: key.Algorithm,
		Primary:   key.Primary,
		CreatedAt: rfc3339Ptr(key.CreatedAt),
		RetiredAt: rfc3339Ptr(key.RetiredAt),
		ExpiresAt: rfc3339Ptr(key.ExpiresAt),
	}
}

func toSDKKeys(keys []service.SigningKeyInfo) []authsdk.SigningKeyInfo {
	out := make([]authsdk.SigningKeyInfo, len(keys))
	for i, key := range keys {
		out[i] = toSDKKey(key)
	}
	return out
}
