// Package cache memoises Monte Carlo summaries in memory or Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisTimeout = 500 * time.Millisecond

// Cache is a byte-oriented TTL cache
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

type memory struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

type entry struct {
	b   []byte
	exp time.Time
}

// NewMemory creates an in-process cache
func NewMemory() Cache {
	return &memory{m: make(map[string]entry), now: time.Now}
}

func (c *memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		delete(c.m, key)
		return nil, false
	}
	return append([]byte(nil), e.b...), true
}

func (c *memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = c.now().Add(ttl)
	}
	c.m[key] = e
}

type redisCache struct {
	r      redis.UniversalClient
	prefix string
}

// NewRedis wraps a go-redis client; keys are namespaced with prefix
func NewRedis(client redis.UniversalClient, prefix string) Cache {
	return &redisCache{r: client, prefix: prefix}
}

// New returns a Redis cache when addr is set, otherwise the memory cache
func New(addr, prefix string) Cache {
	if addr == "" {
		return NewMemory()
	}
	log.Debug().Str("addr", addr).Msg("Using redis summary cache")
	return NewRedis(redis.NewClient(&redis.Options{Addr: addr}), prefix)
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	v, err := r.r.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("Redis get failed")
		}
		return nil, false
	}
	return v, true
}

func (r *redisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := r.r.Set(ctx, r.prefix+key, val, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis set failed")
	}
}

// GetJSON decodes a cached JSON value into v
func GetJSON(ctx context.Context, c Cache, key string, v any) bool {
	b, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return false
	}
	return true
}

// SetJSON stores v as JSON
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	c.Set(ctx, key, b, ttl)
	return nil
}

// SummaryKey builds the cache key for a Monte Carlo summary. fingerprint
// identifies the envelope and starting state the batch was simulated with.
func SummaryKey(fingerprint, pathType string, baseSeed uint64, runs, steps int) string {
	return fmt.Sprintf("mc:%s:%s:%d:%d:%d", fingerprint, pathType, baseSeed, runs, steps)
}
