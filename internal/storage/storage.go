// Package storage remembers which article links were already delivered.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/policydigest/internal/news"
)

// MaxTitleLen bounds stored titles, in runes.
const MaxTitleLen = 500

// SeenStore records delivered links.
type SeenStore interface {
	// Seen reports which of links were delivered before.
	Seen(ctx context.Context, links []string) (map[string]bool, error)
	// MarkSeen records items as delivered. Re-marking a link refreshes it.
	MarkSeen(ctx context.Context, items []news.Item) error
	Close() error
}

// SeenItem is a delivered link as kept by the stores.
type SeenItem struct {
	Link   string    `json:"link"`
	Title  string    `json:"title"`
	Source string    `json:"source"`
	SeenAt time.Time `json:"seen_at"`
}

// Open returns the store named by kind: file, postgres, redis or memory.
func Open(ctx context.Context, kind, target string, ttl time.Duration, logger *slog.Logger) (SeenStore, error) {
	switch kind {
	case "", "file":
		fs := NewFileStore(target, ttl)
		if err := fs.Load(); err != nil {
			return nil, err
		}
		return fs, nil
	case "memory":
		return NewFileStore("", ttl), nil
	case "postgres":
		return NewPostgresStore(ctx, target, ttl, logger)
	case "redis":
		return NewRedisStore(ctx, target, ttl)
	default:
		return nil, fmt.Errorf("unknown seen store %q", kind)
	}
}

// FilterUnseen drops items whose link was delivered before. A failing
// lookup keeps every item.
func FilterUnseen(ctx context.Context, store SeenStore, items []news.Item, logger *slog.Logger) []news.Item {
	if logger == nil {
		logger = slog.Default()
	}
	links := make([]string, 0, len(items))
	for _, it := range items {
		links = append(links, it.Link)
	}

	seen, err := store.Seen(ctx, links)
	if err != nil {
		logger.Error("seen-store lookup failed, treating all items as new", "error", err)
		return items
	}

	fresh := make([]news.Item, 0, len(items))
	for _, it := range items {
		if !seen[it.Link] {
			fresh = append(fresh, it)
		}
	}
	return fresh
}

func truncateTitle(title string) string {
	r := []rune(title)
	if len(r) <= MaxTitleLen {
		return title
	}
	return string(r[:MaxTitleLen])
}

func uniqueLinks(links []string) []string {
	seen := make(map[string]bool, len(links))
	out := make([]string, 0, len(links))
	for _, l := range links {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
