package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes returned in the "error" field of error responses.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeUnauthenticated    = "unauthenticated"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeTokenExpired       = "token_expired"
	ErrorCodeTokenRevoked       = "token_revoked"
	ErrorCodeTokenMalformed     = "token_malformed"
	ErrorCodeInvalidSignature   = "invalid_signature"
	ErrorCodeForbidden          = "forbidden"
	ErrorCodeTenantMismatch     = "tenant_mismatch"
	ErrorCodeAccessDenied       = "access_denied"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeTenantNotFound     = "tenant_not_found"
	ErrorCodeDuplicateEmail     = "duplicate_email"
	ErrorCodeDuplicateTenant    = "duplicate_tenant"
	ErrorCodeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorCodeServerError        = "server_error"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int

	// Code is the stable error code (e.g., "forbidden")
	Code string

	// Description is the generic description sent by the server
	Description string

	// Fields holds per-field validation failures
	Fields map[string]string

	// RetryAfter is the Retry-After header of a 429, if any
	RetryAfter string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// IsTokenError reports whether the bearer token itself was rejected.
func (e *APIError) IsTokenError() bool {
	return e.StatusCode == http.StatusUnauthorized && e.Code != ErrorCodeInvalidCredentials
}

// parseErrorResponse turns an error response into an *APIError.
// Returns nil if the response indicates success (2xx status code).
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RetryAfter: resp.Header.Get("Retry-After"),
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Error
		apiErr.Description = errResp.ErrorDescription
		apiErr.Fields = errResp.Fields
		return apiErr
	}

	// Fallback: create generic error from status code
	apiErr.Code = ErrorCodeServerError
	apiErr.Description = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	return apiErr
}
