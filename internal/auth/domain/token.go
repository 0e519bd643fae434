package domain

import "time"

// Principal is the authenticated identity of a request: who is calling, with
// which role, on behalf of which tenant. Handlers receive it from the access
// control layer and must not derive it any other way.
type Principal struct {
	UserID    string
	Role      Role
	TenantID  string
	TokenID   string
	ExpiresAt time.Time
}

// IssuedToken is what a successful login returns.
type IssuedToken struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int64     `json:"expires_in"`
}

// RevokedToken marks a token id unusable until the token would have expired.
type RevokedToken struct {
	JTI       string
	Subject   string
	ExpiresAt time.Time
	RevokedAt time.Time
}
