package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admin-panel/internal/service"
	"github.com/noah-isme/sma-admin-panel/pkg/database"
	"github.com/noah-isme/sma-admin-panel/pkg/jobs"
)

type serveOptions struct {
	migrate bool
	seed    bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and session maintenance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.migrate, "migrate", true, "apply database migrations before starting")
	cmd.Flags().BoolVar(&opts.seed, "seed", true, "ensure default roles and the admin account before starting")
	return cmd
}

func runServe(parent context.Context, opts *serveOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logr, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := connect(ctx, cfg, logr)
	if err != nil {
		logr.Error("failed to connect to storage", zap.Error(err))
		return err
	}
	defer a.Close()

	if opts.migrate {
		if err := database.Migrate(ctx, a.db.DB); err != nil {
			logr.Error("migration failed", zap.Error(err))
			return err
		}
	}
	if opts.seed {
		if _, err := a.seed.Seed(ctx); err != nil {
			logr.Error("seeding failed", zap.Error(err))
			return err
		}
	}

	queue := jobs.NewQueue("maintenance", jobs.QueueConfig{Workers: 1, RetryDelay: 5 * time.Second, Logger: logr})
	janitor := service.NewSessionJanitor(a.sessions, queue, cfg.Session.PurgeSchedule, a.metrics, logr)
	queue.Start(ctx)
	defer queue.Stop()
	if err := janitor.Start(); err != nil {
		return err
	}
	defer janitor.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logr.Error("server failed", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
