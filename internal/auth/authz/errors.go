package authz

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// WriteError writes err as the JSON error body. Rejections keep their code
// and generic message; anything else is logged and written as server_error.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	de, ok := domain.AsError(err)
	if !ok {
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
	}
	httpx.WriteError(w, de.Status, de.Code, de.Message)
}
