// Command authctl administers a tenantauth database directly: migrations,
// tenants, users, signing keys and sealed credentials. It reads the same
// environment as the server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/tenantauth/internal/auth/app"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Administer a tenantauth deployment",
		Version:       app.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(keyCmd())
	rootCmd.AddCommand(credentialsCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
