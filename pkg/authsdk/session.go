package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Session represents an authenticated session. Tokens are not refreshed;
// log in again once the token has expired or been revoked.
type Session struct {
	client *SDKClient

	accessToken string
	expiresAt   time.Time
}

// AccessToken returns the bearer token of the session.
func (s *Session) AccessToken() string {
	return s.accessToken
}

// ExpiresAt returns when the token expires, or the zero time if unknown.
func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}

// Expired reports whether the token is known to have expired.
func (s *Session) Expired() bool {
	return !s.expiresAt.IsZero() && !time.Now().Before(s.expiresAt)
}

// Revoke revokes the session's own token.
func (s *Session) Revoke(ctx context.Context) error {
	return s.RevokeToken(ctx, "")
}

// RevokeToken revokes token, or the session's own token when token is empty.
// Admins may revoke tokens issued to users of their tenant.
func (s *Session) RevokeToken(ctx context.Context, token string) error {
	data := url.Values{}
	if token != "" {
		data.Set("token", token)
	}

	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/revoke", strings.NewReader(data.Encode()), headers)
	if err != nil {
		return err
	}

	return checkStatusNoContent(resp)
}
