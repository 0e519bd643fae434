package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
)

func TestBootstrapSuccess(t *testing.T) {
	client := setupAuthContainer(t, nil)

	resp, session := bootstrapService(t, client)

	me, err := session.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, resp.AdminUserID, me.UserID)
	require.Equal(t, resp.TenantID, me.TenantID)
	require.Equal(t, "super_admin", me.Role)
}

// Bootstrap only works against an empty database.
func TestBootstrapIdempotency(t *testing.T) {
	client := setupAuthContainer(t, nil)
	bootstrapService(t, client)

	_, err := client.Bootstrap(t.Context(), bootstrapToken, authsdk.BootstrapRequest{
		TenantName:    "second",
		AdminEmail:    "second@operators.test",
		AdminPassword: "Another123!secure",
	})
	requireAPIError(t, err, http.StatusUnauthorized, "")
}

func TestBootstrapWrongToken(t *testing.T) {
	client := setupAuthContainer(t, nil)

	_, err := client.Bootstrap(t.Context(), "not-the-token", authsdk.BootstrapRequest{
		TenantName:    rootTenantName,
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
	})
	requireAPIError(t, err, http.StatusUnauthorized, "")

	// The real token still works afterwards.
	bootstrapService(t, client)
}
