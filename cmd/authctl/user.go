package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(userCreateCmd())
	cmd.AddCommand(userDeactivateCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	var (
		email    string
		password string
		role     string
		tenantID string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user in a tenant",
		Long: `Create a user in a tenant.

Without --password a random password is generated and printed once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := domain.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			if _, err := idx.Parse(tenantID); err != nil {
				return fmt.Errorf("--tenant: %w", err)
			}

			generated := password == ""
			if generated {
				var err error
				if password, err = cryptox.GeneratePassword(); err != nil {
					return err
				}
			}

			e, err := openEnv(cmd.Context(), envOptions{})
			if err != nil {
				return err
			}
			defer e.close()

			user, err := e.creds.CreateUserAs(cmd.Context(), operator, service.CreateUserInput{
				Email:    email,
				Password: password,
				Role:     r,
				TenantID: tenantID,
			})
			if err != nil {
				return describe(err)
			}

			out := map[string]string{
				"id":         user.ID,
				"email":      user.Email,
				"role":       string(user.Role),
				"tenant_id":  user.TenantID,
				"created_at": user.CreatedAt.Format(time.RFC3339),
			}
			if generated {
				out["password"] = password
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "initial password (generated when empty)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleViewer), "role: super_admin, admin, operator or viewer")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func userDeactivateCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate a user; their tokens stop verifying",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := idx.Parse(userID); err != nil {
				return fmt.Errorf("--id: %w", err)
			}

			e, err := openEnv(cmd.Context(), envOptions{})
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.creds.Deactivate(cmd.Context(), operator, userID); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s deactivated\n", userID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "id", "", "user id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// describe turns a rejection into its code and message. Other errors pass
// through with their full chain, since an operator is reading them.
func describe(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return fmt.Errorf("%s: %s (%w)", de.Code, de.Message, err)
	}
	return err
}
