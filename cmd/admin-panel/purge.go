package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-admin-panel/internal/service"
)

// NewPurgeSessionsCmd creates the purge-sessions subcommand.
func NewPurgeSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete expired login sessions",
		RunE:  runPurgeSessions,
	}
}

func runPurgeSessions(cmd *cobra.Command, _ []string) error {
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

	deleted, err := service.NewSessionJanitor(a.sessions, nil, cfg.Session.PurgeSchedule, a.metrics, logr).RunOnce(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Deleted %d expired sessions\n", deleted)
	return nil
}
