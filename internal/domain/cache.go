package domain

import (
	"context"
	"time"
)

// CacheKey identifies a cached rule set.
type CacheKey struct {
	Program string `json:"program"`
	MCC     string `json:"mcc"`
}

// String returns the storage form of the key.
func (k CacheKey) String() string {
	return "rules:" + k.Program + ":" + k.MCC
}

// CacheEntry is an immutable snapshot of the rules for a key.
type CacheEntry struct {
	Key      CacheKey  `json:"key"`
	Rules    []Rule    `json:"rules"`
	CachedAt time.Time `json:"cachedAt"`
}

// RuleCache caches rule sets per (program, MCC).
type RuleCache interface {
	// Get returns the entry if present and fresh.
	Get(ctx context.Context, key CacheKey) (*CacheEntry, bool)

	// Put stores a rule set, replacing any previous entry atomically.
	Put(ctx context.Context, key CacheKey, rules []Rule) error

	// Invalidate drops every entry for the program. An empty program drops all entries.
	Invalidate(ctx context.Context, program string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `yaml:"type"`

	// Local LRU cache settings (Community tier)
	LocalMaxSize int           `yaml:"local_max_size"`
	LocalTTL     time.Duration `yaml:"local_ttl"`

	// Redis settings (Pro tier)
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Two-phase settings
	EnableTwoPhase bool `yaml:"enable_two_phase"` // If true, check local first, then Redis
}
