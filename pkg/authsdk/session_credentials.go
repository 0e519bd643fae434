package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// PutCredential stores or rotates the merchant credential of a portal.
// Requires: admin of the tenant, or super_admin
func (s *Session) PutCredential(ctx context.Context, tenantID, portalID string, secret PortalSecret) (*Credential, error) {
	var cred Credential
	if err := s.doAuthJSON(ctx, http.MethodPut, credentialPath(tenantID, portalID), secret, &cred, http.StatusOK); err != nil {
		return nil, err
	}
	return &cred, nil
}

// GetCredential returns the plaintext merchant credential of a portal.
// Requires: operator of the tenant or above
func (s *Session) GetCredential(ctx context.Context, tenantID, portalID string) (*PortalSecret, error) {
	var secret PortalSecret
	if err := s.doAuthJSON(ctx, http.MethodGet, credentialPath(tenantID, portalID), nil, &secret, http.StatusOK); err != nil {
		return nil, err
	}
	return &secret, nil
}

// DeleteCredential destroys the merchant credential of a portal.
// Requires: admin of the tenant, or super_admin
func (s *Session) DeleteCredential(ctx context.Context, tenantID, portalID string) error {
	return s.doAuthJSON(ctx, http.MethodDelete, credentialPath(tenantID, portalID), nil, nil, http.StatusNoContent)
}

func credentialPath(tenantID, portalID string) string {
	return tenantPath(tenantID) + "/credentials/" + url.PathEscape(portalID)
}
