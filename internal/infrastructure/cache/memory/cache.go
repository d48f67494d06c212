// Package memory is a process-local TTL cache. Entries are advisory: a miss
// only costs a recomputation, so nothing is shared across instances.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 5 * time.Minute

type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration
	nowFunc    func() time.Time
	group      singleflight.Group
}

type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.nowFunc = now
		}
	}
}

func New(defaultTTL time.Duration, opts ...Option) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	c := &Cache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the stored value, evicting the entry first when it expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.nowFunc()) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores value under key and sweeps every expired entry. A ttl <= 0
// uses the cache default.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFunc()
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry{value: value, createdAt: now, ttl: ttl}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len counts stored entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// GetOrSet returns the cached value for key or computes, stores and returns
// it. Concurrent misses on one key share a single compute call. Errors are
// not cached.
func GetOrSet[V any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (V, error)) (V, error) {
	if raw, ok := c.Get(key); ok {
		if v, ok := raw.(V); ok {
			return v, nil
		}
	}
	raw, err, _ := c.group.Do(key, func() (any, error) {
		if raw, ok := c.Get(key); ok {
			if v, ok := raw.(V); ok {
				return v, nil
			}
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := raw.(V)
	return v, nil
}

// SearchKey derives a deterministic key from a search's query text,
// category and tenant.
func SearchKey(query, category, tenantID string) string {
	return "search:" + digest(strings.TrimSpace(query), category, tenantID)
}

// EmbeddingKey derives a deterministic key from raw text. Model scopes the
// key so vectors of different models never mix.
func EmbeddingKey(model, text string) string {
	return "embedding:" + digest(model, text)
}

func digest(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
