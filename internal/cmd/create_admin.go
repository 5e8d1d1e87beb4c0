package cmd

import (
	"fmt"

	"github.com/fahndung/backend/internal/models"
	"github.com/spf13/cobra"
)

func newCreateAdminCmd(factory ProvisionerFactory) *cobra.Command {
	var (
		email    string
		password string
		name     string
		role     string
	)

	createCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a staff account",
		Long: `Create an identity with a confirmed email and a profile row.

Examples:
  # Create the first administrator
  fahndung-admin create-admin --email chef@polizei.example --password geheim123 --name "Erika Muster"

  # Create an editor
  fahndung-admin create-admin --email redaktion@polizei.example --password geheim123 --name Redaktion --role editor
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

			profile, err := provisioner.CreateStaffUser(cmd.Context(), email, password, name, parsed)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s) with role %s\n", profile.Email, profile.ID, profile.Role)
			return nil
		},
	}

	createCmd.Flags().StringVar(&email, "email", "", "email address of the account")
	createCmd.Flags().StringVar(&password, "password", "", "initial password, at least 8 characters")
	createCmd.Flags().StringVar(&name, "name", "", "display name")
	createCmd.Flags().StringVar(&role, "role", models.RoleAdmin.String(), "role: user, editor, admin or super_admin")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("password")
	_ = createCmd.MarkFlagRequired("name")

	return createCmd
}
