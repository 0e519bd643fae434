package main

import (
	"time"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect access tokens",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print the principal it carries",
		Long: `Verify a token against the configured keyring, the revocation list
and the current state of its user, exactly as the server does.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), envOptions{keys: true})
			if err != nil {
				return err
			}
			defer e.close()

			p, err := e.tokens.VerifyToken(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"user_id":    p.UserID,
				"role":       string(p.Role),
				"tenant_id":  p.TenantID,
				"jti":        p.TokenID,
				"expires_at": p.ExpiresAt.UTC().Format(time.RFC3339),
			})
		},
	})
	return cmd
}
