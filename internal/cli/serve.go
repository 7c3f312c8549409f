package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/config"
	"github.com/roach88/attest/internal/engine"
	"github.com/roach88/attest/internal/scheduler"
	"github.com/roach88/attest/internal/server"
	"github.com/roach88/attest/internal/store"
	"github.com/roach88/attest/internal/worker"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Config   string
	Database string
	Port     int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the manager HTTP API",
		Long: `Start the attest manager: the HTTP API for checklists, runs, snapshot
seeding, schedules, and webhooks, plus the cron scheduler for periodic runs.

Example:
  attest serve --db ./attest.db
  attest serve --config /etc/attest/attest.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().IntVar(&opts.Port, "port", 0, "listen port (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}

	slog.Info("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	eng := engine.New(st, worker.NewClient(cfg.Worker.Timeout))
	api := server.New(st, eng, slog.Default())

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Scheduler.Enabled {
		notifier := scheduler.NewNotifier(st, 10*time.Second, slog.Default())
		sched := scheduler.New(st, eng, notifier,
			scheduler.WithRunTimeout(cfg.Scheduler.RunTimeout))
		if err := sched.Sync(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to load schedules", err)
		}
		sched.Start()
		defer sched.Stop()

		// Periodic re-sync picks up schedules created over the API.
		go func() {
			ticker := time.NewTicker(cfg.Scheduler.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := sched.Sync(ctx); err != nil {
						slog.Error("schedule sync failed", "error", err)
					}
				}
			}
		}()
		slog.Info("scheduler started", "sync_interval", cfg.Scheduler.SyncInterval)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.Handler(),
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("server listening", "port", cfg.Port, "env", cfg.Env)
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "server error", err)
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitCommandError, "shutdown error", err)
		}
	}

	slog.Info("server stopped gracefully")
	return nil
}
