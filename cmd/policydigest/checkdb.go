package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/deusflow/policydigest/internal/logger"
	"github.com/deusflow/policydigest/internal/storage"
)

func newCheckDBCmd() *cobra.Command {
	var (
		limit int
		prune bool
	)
	cmd := &cobra.Command{
		Use:   "checkdb",
		Short: "Check the PostgreSQL seen store and list recently delivered items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.Init()
			_ = godotenv.Load()
			dbURL := os.Getenv("DATABASE_URL")
			if dbURL == "" {
				return fmt.Errorf("DATABASE_URL not set in environment")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database URL: %s\n", maskPassword(dbURL))

			ps, err := storage.NewPostgresStore(cmd.Context(), dbURL, 48*time.Hour, log)
			if err != nil {
				return fmt.Errorf("connect to PostgreSQL: %w", err)
			}
			defer ps.Close()
			fmt.Fprintln(out, "Connected to PostgreSQL")

			stats, err := ps.GetStats(cmd.Context())
			if err != nil {
				log.Warn("failed to get stats", "error", err)
			} else {
				fmt.Fprintf(out, "\nTotal items:  %d\nActive items: %d\n", stats["total_items"], stats["active_items"])
			}

			if prune {
				rows, err := ps.Cleanup(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d expired rows\n", rows)
			}

			recent, err := ps.GetRecent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("get recent items: %w", err)
			}
			fmt.Fprintf(out, "\nRecent items (last %d):\n", limit)
			if len(recent) == 0 {
				fmt.Fprintln(out, "  (nothing delivered yet)")
			}
			for i, item := range recent {
				fmt.Fprintf(out, "  %d. %s\n     %s | %s | seen %s\n",
					i+1, item.Title, item.Source, item.Link, item.SeenAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "number of recent items to list")
	cmd.Flags().BoolVar(&prune, "prune", false, "delete rows older than 48h")
	return cmd
}

// maskPassword hides the password part of a connection URL.
func maskPassword(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil || u.User == nil {
		return dbURL
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
