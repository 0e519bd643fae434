package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SDKClient is a client for the tenantauth service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// LoginToken exchanges an email and password for an access token.
func (c *SDKClient) LoginToken(ctx context.Context, email, password string) (*LoginResponse, error) {
	data := url.Values{
		"email":    {email},
		"password": {password},
	}

	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/login", strings.NewReader(data.Encode()), headers)
	if err != nil {
		return nil, err
	}

	var login LoginResponse
	if err := decodeJSON(resp, &login, http.StatusOK); err != nil {
		return nil, err
	}

	return &login, nil
}

// Login authenticates with an email and password and returns a Session.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	login, err := c.LoginToken(ctx, email, password)
	if err != nil {
		return nil, err
	}

	expiresAt, err := time.Parse(time.RFC3339, login.ExpiresAt)
	if err != nil {
		expiresAt = time.Now().Add(time.Duration(login.ExpiresIn) * time.Second)
	}
	return &Session{client: c, accessToken: login.AccessToken, expiresAt: expiresAt}, nil
}

// NewSession wraps an access token obtained elsewhere. The expiry is unknown,
// so Expired always reports false and the server decides.
func (c *SDKClient) NewSession(accessToken string) *Session {
	return &Session{client: c, accessToken: accessToken}
}
