package domain

import (
	"errors"
	"net/http"
)

// Error is a rejection with a stable, client-visible code. The message is
// generic on purpose; detail goes into wrapped errors and logs only.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Code }

func newError(status int, code, msg string) *Error {
	return &Error{Code: code, Status: status, Message: msg}
}

var (
	ErrUnauthenticated    = newError(http.StatusUnauthorized, "unauthenticated", "authentication required")
	ErrInvalidCredentials = newError(http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	ErrTokenExpired       = newError(http.StatusUnauthorized, "token_expired", "token has expired")
	ErrTokenRevoked       = newError(http.StatusUnauthorized, "token_revoked", "token has been revoked")
	ErrTokenMalformed     = newError(http.StatusUnauthorized, "token_malformed", "token is malformed")
	ErrInvalidSignature   = newError(http.StatusUnauthorized, "invalid_signature", "token signature is invalid")

	ErrForbidden      = newError(http.StatusForbidden, "forbidden", "operation not permitted for this role")
	ErrTenantMismatch = newError(http.StatusForbidden, "tenant_mismatch", "resource belongs to another tenant")
	ErrAccessDenied   = newError(http.StatusForbidden, "access_denied", "access denied")

	ErrInvalidInput    = newError(http.StatusBadRequest, "invalid_request", "request is invalid")
	ErrNotFound        = newError(http.StatusNotFound, "not_found", "resource not found")
	ErrTenantNotFound  = newError(http.StatusNotFound, "tenant_not_found", "tenant not found")
	ErrDuplicateEmail  = newError(http.StatusConflict, "duplicate_email", "email already registered")
	ErrDuplicateTenant = newError(http.StatusConflict, "duplicate_tenant", "tenant name already taken")

	ErrRateLimitExceeded = newError(http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests")

	ErrInternal = newError(http.StatusInternalServerError, "server_error", "internal server error")
)

// AsError returns the rejection carried by err. Anything that is not a
// rejection becomes ErrInternal and ok is false.
func AsError(err error) (e *Error, ok bool) {
	if errors.As(err, &e) {
		return e, true
	}
	return ErrInternal, false
}

// IsTokenError reports whether err is a token lifecycle failure.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrInvalidSignature)
}
