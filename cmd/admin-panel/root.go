package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the admin panel CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin-panel",
		Short: "School administration panel server",
		Long: `admin-panel serves the sign-in and user roster API for the school
administration panel. Settings are read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewPurgeSessionsCmd())

	return cmd
}
