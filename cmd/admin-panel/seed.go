package main

import (
	"context"

	"github.com/spf13/cobra"
)

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create default roles and the admin account",
		Long: `Ensure the admin and teacher roles exist and create the "admin" account
when it is missing. The password comes from ADMIN_PASSWORD.`,
		RunE: runSeed,
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, logr, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := connect(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.seed.Seed(ctx)
	if err != nil {
		return err
	}
	if result.AdminCreated {
		cmd.Println("Admin account created")
	} else {
		cmd.Println("Admin account already present")
	}
	return nil
}
