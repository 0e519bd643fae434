package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// RotateKey generates a new signing key and makes it primary.
// Requires: super_admin
func (s *Session) RotateKey(ctx context.Context, req RotateKeyRequest) (*RotateKeyResponse, error) {
	var rotateResp RotateKeyResponse
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/keys/rotate", req, &rotateResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &rotateResp, nil
}

// ListKeys returns all signing keys with their status.
// Requires: super_admin
func (s *Session) ListKeys(ctx context.Context) ([]SigningKeyInfo, error) {
	var keys ListKeysResponse
	if err := s.doAuthJSON(ctx, http.MethodGet, "/v1/keys", nil, &keys, http.StatusOK); err != nil {
		return nil, err
	}
	return keys.Keys, nil
}

// RetireKey moves a signing key into its grace window.
// Requires: super_admin
func (s *Session) RetireKey(ctx context.Context, kid string) error {
	return s.doAuthJSON(ctx, http.MethodDelete, "/v1/keys/"+url.PathEscape(kid), nil, nil, http.StatusNoContent)
}
