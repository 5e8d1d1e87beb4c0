package cmd

import (
	"fmt"

	"github.com/fahndung/backend/internal/models"
	"github.com/spf13/cobra"
)

func newSetRoleCmd(factory ProvisionerFactory) *cobra.Command {
	var (
		userID string
		role   string
	)

	setRoleCmd := &cobra.Command{
		Use:   "set-role",
		Short: "Change the role of an existing account",
		Long: `Set the role of a user by id. A missing profile row is created.

Examples:
  fahndung-admin set-role --id 6f1c2a9e-0b7d-4c55-9a43-2f0e8d1b7c11 --role super_admin
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := models.ParseRole(role)
			if err != nil {
				return err
			}

			provisioner, err := factory()
			if err != nil {
				return err
			}

			profile, err := provisioner.SetRole(cmd.Context(), userID, parsed)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Set role of %s to %s\n", profile.ID, profile.Role)
			return nil
		},
	}

	setRoleCmd.Flags().StringVar(&userID, "id", "", "user id")
	setRoleCmd.Flags().StringVar(&role, "role", "", "role: user, editor, admin or super_admin")
	_ = setRoleCmd.MarkFlagRequired("id")
	_ = setRoleCmd.MarkFlagRequired("role")

	return setRoleCmd
}
