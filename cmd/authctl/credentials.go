package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage sealed merchant credentials",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "reseal",
		Short: "Re-encrypt every merchant credential with the primary sealing key",
		Long: `Re-encrypt every merchant credential with the primary sealing key.

Run this after putting a new key first in CREDENTIAL_ENCRYPTION_KEYS. Once
it succeeds the old key can be removed from the list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), envOptions{sealingKeys: true})
			if err != nil {
				return err
			}
			defer e.close()

			n, err := e.creds.ResealMerchantCredentials(cmd.Context())
			if err != nil {
				return fmt.Errorf("resealed %d credentials before failing: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "resealed %d credentials with key %s\n", n, e.creds.Sealer.Primary())
			return nil
		},
	})
	return cmd
}
