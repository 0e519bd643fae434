package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/tenantauth/internal/auth/app"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
)

var errEphemeralKeys = errors.New("signing keys are only managed from the CLI with AUTH_KEY_STORAGE_MODE=persistent")

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage token signing keys",
		Long: `Manage token signing keys.

Keys live in the database (persistent mode). A running server picks up
keys rotated here on its next start; use POST /v1/keys/rotate to rotate a
live server's keyring.`,
	}
	cmd.AddCommand(keyRotateCmd())
	cmd.AddCommand(keyListCmd())
	return cmd
}

func keyRotateCmd() *cobra.Command {
	var retire bool

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Generate a new primary signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), envOptions{keys: true})
			if err != nil {
				return err
			}
			defer e.close()
			if e.cfg.KeyStorageMode != app.KeyStoragePersistent {
				return errEphemeralKeys
			}

			resp, err := e.keys.RotateKey(cmd.Context(), operator, service.RotateKeyRequest{RetireExisting: retire})
			if err != nil {
				return describe(err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "new primary key %s\n", resp.NewKey.Kid)
			for _, k := range resp.RetiredKeys {
				fmt.Fprintf(w, "retired %s, verifies until %s\n", k.Kid, k.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&retire, "retire-existing", false, "retire the current keys (they keep verifying for the grace period)")
	return cmd
}

func keyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List signing keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), envOptions{keys: true})
			if err != nil {
				return err
			}
			defer e.close()
			if e.cfg.KeyStorageMode != app.KeyStoragePersistent {
				return errEphemeralKeys
			}

			keys, err := e.keys.ListSigningKeys(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KID\tALG\tPRIMARY\tCREATED\tRETIRED\tEXPIRES")
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n",
					k.Kid, k.Algorithm, k.Primary, timeOrDash(k.CreatedAt), timeOrDash(k.RetiredAt), timeOrDash(k.ExpiresAt))
			}
			return tw.Flush()
		},
	}
}

func timeOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
