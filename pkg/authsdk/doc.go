/*
Package authsdk provides a client SDK for the tenantauth service.

# SDKClient vs Session

The package is organized around two types:

  - SDKClient: unauthenticated operations (health, bootstrap, login)
  - Session: operations that carry a bearer token

Create an SDKClient for the public endpoints:

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Check service health
	health, err := client.GetReadiness(ctx)

	// Bootstrap the service (one-time setup)
	res, err := client.Bootstrap(ctx, token, authsdk.BootstrapRequest{
		TenantName:    "acme",
		AdminEmail:    "root@acme.test",
		AdminPassword: "correct horse battery",
	})

	// Log in to create a session
	session, err := client.Login(ctx, "root@acme.test", "correct horse battery")

Use a Session for everything behind a bearer token:

	me, err := session.Me(ctx)
	users, err := session.ListUsers(ctx, me.TenantID)
	secret, err := session.GetCredential(ctx, me.TenantID, "portal-a")

Tokens are not refreshed. When a token expires every call fails with an
*APIError whose Code is "token_expired" and the caller logs in again.

# Errors

Every non-2xx response is returned as an *APIError carrying the HTTP status,
the stable error code and the generic description:

	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeTenantMismatch {
		// caller reached into another tenant
	}
*/
package authsdk
