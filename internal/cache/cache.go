package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/warden/internal/domain"
)

// New creates a new rule cache based on configuration.
// For Community tier: returns LRU cache.
// For Pro tier with two-phase: returns TwoPhaseCache wrapping LRU + Redis.
// For Pro tier without two-phase: returns Redis cache.
func New(cfg domain.CacheConfig) (domain.RuleCache, error) {
	switch cfg.Type {
	case "memory", "":
		return NewLRUCache(cfg.LocalMaxSize, cfg.LocalTTL), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.LocalTTL)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache implements the two-phase caching strategy.
// L1: Local LRU cache for fast reads
// L2: Redis shared across nodes
type TwoPhaseCache struct {
	local  *LRUCache
	remote *RedisCache
}

// NewTwoPhaseCache creates a two-phase cache with LRU + Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.LocalTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}
	return NewTwoPhaseCacheFrom(NewLRUCache(cfg.LocalMaxSize, cfg.LocalTTL), remote), nil
}

// NewTwoPhaseCacheFrom combines existing L1 and L2 caches.
func NewTwoPhaseCacheFrom(local *LRUCache, remote *RedisCache) *TwoPhaseCache {
	return &TwoPhaseCache{local: local, remote: remote}
}

// Get retrieves from L1 first, then L2. Populates L1 on L2 hit with the
// remaining L2 lifetime so an entry never outlives its TTL.
func (c *TwoPhaseCache) Get(ctx context.Context, key domain.CacheKey) (*domain.CacheEntry, bool) {
	if entry, ok := c.local.Get(ctx, key); ok {
		return entry, true
	}

	entry, remaining, err := c.remote.get(ctx, key)
	if err != nil {
		slog.Warn("redis cache get failed", "key", key.String(), "error", err)
		return nil, false
	}
	if entry == nil || remaining <= 0 {
		return nil, false
	}

	c.local.putEntry(entry, min(remaining, c.local.ttl))
	return entry, true
}

// Put writes to both L1 and L2.
func (c *TwoPhaseCache) Put(ctx context.Context, key domain.CacheKey, rules []domain.Rule) error {
	if err := c.local.Put(ctx, key, rules); err != nil {
		return err
	}
	return c.remote.Put(ctx, key, rules)
}

// Invalidate removes from both L1 and L2.
func (c *TwoPhaseCache) Invalidate(ctx context.Context, program string) error {
	if err := c.local.Invalidate(ctx, program); err != nil {
		return err
	}
	return c.remote.Invalidate(ctx, program)
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both L1 and L2.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns L1 cache statistics.
func (c *TwoPhaseCache) Stats() Stats {
	return c.local.Stats()
}

var (
	_ domain.RuleCache = (*LRUCache)(nil)
	_ domain.RuleCache = (*RedisCache)(nil)
	_ domain.RuleCache = (*TwoPhaseCache)(nil)
)
