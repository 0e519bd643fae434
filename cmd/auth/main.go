// Command auth runs the tenantauth HTTP service. All settings come from the
// environment; see internal/auth/app/config.go.
package main

import (
	"fmt"
	"os"

	"github.com/aussiebroadwan/tenantauth/internal/auth/app"
)

func main() {
	application, err := app.New(app.LoadConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "auth: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "auth: %v\n", err)
		os.Exit(1)
	}
}
