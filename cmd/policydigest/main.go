package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deusflow/policydigest/internal/app"
	"github.com/deusflow/policydigest/internal/config"
	"github.com/deusflow/policydigest/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "policydigest",
		Short: "Daily policy news digest from RSS feeds",
		Long: `policydigest fetches news feeds, keeps articles about public policy,
merges duplicate coverage into events, summarizes each event and delivers
a topic-grouped report by email, Telegram or stdout.

Examples:
  # Build and deliver today's digest
  policydigest run

  # Same, with /health and /metrics served while running
  policydigest run --monitor

  # Print the report without delivering or recording anything
  policydigest preview

  # Inspect the PostgreSQL seen store
  policydigest checkdb`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd(), newPreviewCmd(), newCheckDBCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var monitor bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, digest and deliver, then mark delivered items as seen",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.Init()
			cfg, err := config.Load()
			if err != nil {
				log.Error("invalid configuration", "error", err)
				return err
			}
			if err := cfg.ValidateDelivery(); err != nil {
				log.Error("invalid delivery configuration", "error", err)
				return err
			}

			if monitor || os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
				go startMonitoringServer(cfg.MonitoringPort, log)
			}

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("startup failed", "error", err)
				return err
			}
			defer a.Close()

			if err := a.Run(cmd.Context()); err != nil {
				log.Error("run failed", "error", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&monitor, "monitor", false, "serve /health and /metrics on MONITORING_PORT")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Print the digest without delivering it or updating the seen store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.Init()
			cfg, err := config.Load()
			if err != nil {
				log.Error("invalid configuration", "error", err)
				return err
			}

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("startup: %w", err)
			}
			defer a.Close()

			return a.Preview(cmd.Context(), cmd.OutOrStdout())
		},
	}
}
