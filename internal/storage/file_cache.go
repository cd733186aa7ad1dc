package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/deusflow/policydigest/internal/news"
)

// FileStore keeps delivered links in a JSON file. An empty path keeps
// them in memory only.
type FileStore struct {
	filePath string
	ttl      time.Duration
	items    map[string]SeenItem
	now      func() time.Time
	mu       sync.RWMutex
}

func NewFileStore(filePath string, ttl time.Duration) *FileStore {
	return &FileStore{
		filePath: filePath,
		ttl:      ttl,
		items:    make(map[string]SeenItem),
		now:      time.Now,
	}
}

// Load loads existing cache from file
func (fs *FileStore) Load() error {
	if fs.filePath == "" {
		return nil
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var items []SeenItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to unmarshal cache: %w", err)
	}

	for _, item := range items {
		if fs.live(item) {
			fs.items[item.Link] = item
		}
	}
	return nil
}

// Save saves current cache to file
func (fs *FileStore) Save() error {
	if fs.filePath == "" {
		return nil
	}
	fs.mu.RLock()
	items := make([]SeenItem, 0, len(fs.items))
	for _, item := range fs.items {
		if fs.live(item) {
			items = append(items, item)
		}
	}
	fs.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].SeenAt.Before(items[j].SeenAt) })

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.WriteFile(fs.filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

func (fs *FileStore) Seen(_ context.Context, links []string) (map[string]bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	seen := make(map[string]bool)
	for _, link := range links {
		if item, ok := fs.items[link]; ok && fs.live(item) {
			seen[link] = true
		}
	}
	return seen, nil
}

// MarkSeen records items and persists the file.
func (fs *FileStore) MarkSeen(_ context.Context, items []news.Item) error {
	fs.mu.Lock()
	now := fs.now()
	for _, it := range items {
		if it.Link == "" {
			continue
		}
		fs.items[it.Link] = SeenItem{
			Link:   it.Link,
			Title:  truncateTitle(it.Title),
			Source: it.Source,
			SeenAt: now,
		}
	}
	fs.mu.Unlock()

	return fs.Save()
}

// Cleanup removes expired items from memory
func (fs *FileStore) Cleanup() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for link, item := range fs.items {
		if !fs.live(item) {
			delete(fs.items, link)
		}
	}
}

func (fs *FileStore) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.items)
}

func (fs *FileStore) Close() error {
	return fs.Save()
}

func (fs *FileStore) live(item SeenItem) bool {
	return fs.ttl <= 0 || item.SeenAt.After(fs.now().Add(-fs.ttl))
}
