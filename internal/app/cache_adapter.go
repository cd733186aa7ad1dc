package app

import (
	"context"
	"log/slog"

	"github.com/deusflow/policydigest/internal/config"
	"github.com/deusflow/policydigest/internal/storage"
)

// openSeenStore picks the seen-store backend and its connection target
// from the configuration.
func openSeenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.SeenStore, error) {
	target := ""
	switch cfg.SeenStore {
	case config.StoreFile:
		target = cfg.CacheFilePath
	case config.StorePostgres:
		target = cfg.DatabaseURL
	case config.StoreRedis:
		target = cfg.RedisURL
	}

	store, err := storage.Open(ctx, cfg.SeenStore, target, cfg.SeenTTL, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("seen store ready", "kind", cfg.SeenStore)
	return store, nil
}

// pruneSeenStore drops expired records from stores that keep them past
// their TTL. Redis expires keys itself.
func pruneSeenStore(ctx context.Context, store storage.SeenStore, logger *slog.Logger) {
	switch s := store.(type) {
	case *storage.FileStore:
		s.Cleanup()
	case *storage.PostgresStore:
		if _, err := s.Cleanup(ctx); err != nil {
			logger.Warn("seen store cleanup failed", "error", err)
		}
	}
}
