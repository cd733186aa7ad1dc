// Package cache keeps recent model responses so identical prompts inside
// one run do not hit a provider twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSize = 512
	DefaultTTL  = 6 * time.Hour
)

type Cache struct {
	lru *expirable.LRU[string, string]
}

// New returns a cache holding at most size entries for ttl each.
// Non-positive values fall back to the defaults.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *Cache) Set(key, value string) {
	c.lru.Add(key, value)
}

func (c *Cache) Get(key string) (string, bool) {
	return c.lru.Get(key)
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

// GenerateKey derives a stable key from the given parts.
func GenerateKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
