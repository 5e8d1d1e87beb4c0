// Package cmd holds the fahndung-admin command line for provisioning staff accounts
package cmd

import (
	"context"

	"github.com/fahndung/backend/internal/models"
	"github.com/spf13/cobra"
)

// Provisioner creates staff accounts and assigns roles without an acting user
type Provisioner interface {
	// Method CreateStaffUser creates an identity with a profile of the given role.
	CreateStaffUser(ctx context.Context, email, password, name string, role models.Role) (*models.Profile, error)
	// Method SetRole sets the role of a user, creating the profile row if it is missing.
	SetRole(ctx context.Context, userID string, role models.Role) (*models.Profile, error)
}

// ProvisionerFactory builds the provisioner once a command actually runs
type ProvisionerFactory func() (Provisioner, error)

// NewRootCmd creates the fahndung-admin root command
func NewRootCmd(factory ProvisionerFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fahndung-admin",
		Short: "Provision Fahndung staff accounts",
		Long: `fahndung-admin manages staff accounts on the identity backend.

It needs SUPABASE_URL, SUPABASE_ANON_KEY and SUPABASE_SERVICE_ROLE_KEY,
read from the environment or a .env file in the working directory.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newCreateAdminCmd(factory))
	rootCmd.AddCommand(newSetRoleCmd(factory))

	return rootCmd
}
