package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deusflow/policydigest/internal/news"
)

const redisKeyPrefix = "policydigest:seen:"

// RedisStore keeps one key per delivered link, expiring after the TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects using a redis:// URL.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStoreFromClient(client, ttl), nil
}

func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(link string) string {
	return redisKeyPrefix + link
}

func (rs *RedisStore) Seen(ctx context.Context, links []string) (map[string]bool, error) {
	seen := make(map[string]bool)
	links = uniqueLinks(links)
	if len(links) == 0 {
		return seen, nil
	}

	keys := make([]string, len(links))
	for i, l := range links {
		keys[i] = redisKey(l)
	}
	vals, err := rs.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, v := range vals {
		if v != nil {
			seen[links[i]] = true
		}
	}
	return seen, nil
}

// MarkSeen writes all items in one pipeline.
func (rs *RedisStore) MarkSeen(ctx context.Context, items []news.Item) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now()

	_, err := rs.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, it := range items {
			if it.Link == "" {
				continue
			}
			data, err := json.Marshal(SeenItem{Link: it.Link, Title: truncateTitle(it.Title), Source: it.Source, SeenAt: now})
			if err != nil {
				return err
			}
			pipe.Set(ctx, redisKey(it.Link), data, rs.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis mark seen: %w", err)
	}
	return nil
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
