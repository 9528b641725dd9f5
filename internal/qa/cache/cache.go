// Package cache memoizes answers by normalized question in two tiers: an
// in-process expirable LRU and an optional Redis backend shared between
// instances. Concurrent misses for the same question are collapsed.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "answer:"

// Backend is the shared tier. pkg/redis.Client satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPrefix(ctx context.Context, prefix string) (int64, error)
}

type Options[V any] struct {
	Size int
	TTL  time.Duration
	// Namespace is mixed into every key so that answers produced under a
	// different retrieval or provider setup are not served.
	Namespace string
	// Cacheable filters values before they are stored. Nil stores everything.
	Cacheable func(V) bool
}

type Stats struct {
	Hits       int64  `json:"hits"`
	MemoryHits int64  `json:"memory_hits"`
	RedisHits  int64  `json:"redis_hits"`
	Misses     int64  `json:"misses"`
	Total      int64  `json:"total"`
	HitRate    string `json:"hit_rate"`
	Entries    int    `json:"entries"`
	Redis      bool   `json:"redis"`
}

type Cache[V any] struct {
	opts    Options[V]
	lru     *expirable.LRU[string, V]
	backend Backend
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger

	memoryHits atomic.Int64
	redisHits  atomic.Int64
	misses     atomic.Int64
}

// New builds a cache. backend and m may be nil.
func New[V any](opts Options[V], backend Backend, m *metrics.Metrics) *Cache[V] {
	if opts.Size <= 0 {
		opts.Size = 1024
	}
	return &Cache[V]{
		opts:    opts,
		lru:     expirable.NewLRU[string, V](opts.Size, nil, opts.TTL),
		backend: backend,
		metrics: m,
		logger:  slog.Default().With("component", "answer-cache"),
	}
}

// Get looks in memory, then Redis. A Redis hit is promoted to memory.
func (c *Cache[V]) Get(ctx context.Context, question string) (V, bool) {
	key := c.Key(question)
	if v, ok := c.lru.Get(key); ok {
		c.memoryHits.Add(1)
		c.observeHit("memory")
		return v, true
	}

	var zero V
	if c.backend == nil {
		c.miss()
		return zero, false
	}
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("redis get failed", "key", key, "error", err)
		c.miss()
		return zero, false
	}
	if !ok {
		c.miss()
		return zero, false
	}
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return zero, false
	}
	c.lru.Add(key, v)
	c.redisHits.Add(1)
	c.observeHit("redis")
	return v, true
}

// Set stores v in both tiers unless Cacheable rejects it.
func (c *Cache[V]) Set(ctx context.Context, question string, v V) {
	if c.opts.Cacheable != nil && !c.opts.Cacheable(v) {
		return
	}
	key := c.Key(question)
	c.lru.Add(key, v)
	if c.backend == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.opts.TTL); err != nil {
		c.logger.Warn("redis set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached value or runs compute once per key across
// concurrent callers. The bool reports a cache hit.
func (c *Cache[V]) GetOrCompute(ctx context.Context, question string, compute func(context.Context) (V, error)) (V, bool, error) {
	if v, ok := c.Get(ctx, question); ok {
		return v, true, nil
	}
	key := c.Key(question)
	val, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return v, err
		}
		c.Set(ctx, question, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return val.(V), false, nil
}

// Invalidate clears memory and every answer key in Redis.
func (c *Cache[V]) Invalidate(ctx context.Context) (int64, error) {
	removed := int64(c.lru.Len())
	c.lru.Purge()
	if c.backend != nil {
		n, err := c.backend.FlushByPrefix(ctx, keyPrefix)
		if err != nil {
			return removed, fmt.Errorf("invalidating redis answers: %w", err)
		}
		removed += n
	}
	c.logger.Info("cache invalidated", "keys_removed", removed)
	return removed, nil
}

func (c *Cache[V]) Stats() Stats {
	mem, red, miss := c.memoryHits.Load(), c.redisHits.Load(), c.misses.Load()
	hits := mem + red
	total := hits + miss
	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total) * 100
	}
	return Stats{
		Hits:       hits,
		MemoryHits: mem,
		RedisHits:  red,
		Misses:     miss,
		Total:      total,
		HitRate:    fmt.Sprintf("%.1f%%", rate),
		Entries:    c.lru.Len(),
		Redis:      c.backend != nil,
	}
}

// Key hashes the namespace and the case- and spacing-normalized question.
func (c *Cache[V]) Key(question string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	hash := sha256.Sum256([]byte(c.opts.Namespace + "|" + normalized))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func (c *Cache[V]) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *Cache[V]) observeHit(tier string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(tier).Inc()
	}
}
