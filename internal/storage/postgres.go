package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/deusflow/policydigest/internal/news"
)

const schema = `
CREATE TABLE IF NOT EXISTS seen (
	link TEXT PRIMARY KEY,
	title VARCHAR(500) NOT NULL DEFAULT '',
	source VARCHAR(100) NOT NULL DEFAULT '',
	seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_seen_seen_at ON seen(seen_at);
`

const upsertSeen = `
INSERT INTO seen (link, title, source, seen_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (link) DO UPDATE SET title = EXCLUDED.title, seen_at = NOW()
`

// PostgresStore keeps delivered links in the seen table.
type PostgresStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, connectionString string, ttl time.Duration, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	ps := &PostgresStore{db: db, ttl: ttl, logger: logger.With("component", "postgres")}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ps.logger.Info("PostgreSQL seen-store connected")
	return ps, nil
}

func (ps *PostgresStore) cutoff() time.Time {
	if ps.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(-ps.ttl)
}

func (ps *PostgresStore) Seen(ctx context.Context, links []string) (map[string]bool, error) {
	seen := make(map[string]bool)
	links = uniqueLinks(links)
	if len(links) == 0 {
		return seen, nil
	}

	rows, err := ps.db.QueryContext(ctx,
		`SELECT link FROM seen WHERE link = ANY($1) AND seen_at > $2`,
		pq.Array(links), ps.cutoff())
	if err != nil {
		return nil, fmt.Errorf("query seen links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("scan seen link: %w", err)
		}
		seen[link] = true
	}
	return seen, rows.Err()
}

// MarkSeen upserts items in one transaction.
func (ps *PostgresStore) MarkSeen(ctx context.Context, items []news.Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, upsertSeen)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if it.Link == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, it.Link, truncateTitle(it.Title), it.Source); err != nil {
			return fmt.Errorf("failed to mark %s as seen: %w", it.Link, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	ps.logger.Info("saved seen articles", "count", len(items))
	return nil
}

// Cleanup removes rows older than the TTL.
func (ps *PostgresStore) Cleanup(ctx context.Context) (int64, error) {
	if ps.ttl <= 0 {
		return 0, nil
	}
	result, err := ps.db.ExecContext(ctx, `DELETE FROM seen WHERE seen_at < $1`, ps.cutoff())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		ps.logger.Info("cleaned up old seen records", "rows", rows)
	}
	return rows, nil
}

// GetStats returns row counts overall and inside the TTL window.
func (ps *PostgresStore) GetStats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	var total int
	if err := ps.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen`).Scan(&total); err != nil {
		return nil, err
	}
	stats["total_items"] = total

	var active int
	if err := ps.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen WHERE seen_at > $1`, ps.cutoff()).Scan(&active); err != nil {
		return nil, err
	}
	stats["active_items"] = active

	return stats, nil
}

// GetRecent returns the most recently delivered links.
func (ps *PostgresStore) GetRecent(ctx context.Context, limit int) ([]SeenItem, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := ps.db.QueryContext(ctx,
		`SELECT link, title, source, seen_at FROM seen ORDER BY seen_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SeenItem
	for rows.Next() {
		var item SeenItem
		if err := rows.Scan(&item.Link, &item.Title, &item.Source, &item.SeenAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (ps *PostgresStore) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}
