package main

import (
	"time"

	"github.com/spf13/cobra"
)

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}
	cmd.AddCommand(tenantCreateCmd())
	return cmd
}

func tenantCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), envOptions{})
			if err != nil {
				return err
			}
			defer e.close()

			tenant, err := e.creds.CreateTenant(cmd.Context(), operator, name)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"id":         tenant.ID,
				"name":       tenant.Name,
				"created_at": tenant.CreatedAt.Format(time.RFC3339),
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "tenant name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
