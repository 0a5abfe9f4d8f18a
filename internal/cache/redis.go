package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "warden:"

// RedisCache implements RuleCache using Redis.
// Used as the Pro tier cache and as L2 in two-phase caching.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	now    domain.Clock
}

// NewRedisCache creates a new Redis cache and verifies the connection.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisCacheFromClient(client, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, now: domain.SystemClock}
}

// Get retrieves a rule set from Redis. Errors are logged and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key domain.CacheKey) (*domain.CacheEntry, bool) {
	entry, _, err := c.get(ctx, key)
	if err != nil {
		slog.Warn("redis cache get failed", "key", key.String(), "error", err)
		return nil, false
	}
	return entry, entry != nil
}

// get returns the entry and its remaining lifetime.
func (c *RedisCache) get(ctx context.Context, key domain.CacheKey) (*domain.CacheEntry, time.Duration, error) {
	fullKey := c.makeKey(key)

	pipe := c.client.Pipeline()
	getCmd := pipe.Get(ctx, fullKey)
	ttlCmd := pipe.PTTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, err
	}

	data, err := getCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, 0, fmt.Errorf("decode cache entry: %w", err)
	}
	return &entry, ttlCmd.Val(), nil
}

// Put stores a rule set in Redis with the cache TTL.
func (c *RedisCache) Put(ctx context.Context, key domain.CacheKey, rules []domain.Rule) error {
	data, err := json.Marshal(newEntry(key, rules, c.now()))
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return c.client.Set(ctx, c.makeKey(key), data, c.ttl).Err()
}

// Invalidate deletes every key for the program, or all rule keys for an empty program.
func (c *RedisCache) Invalidate(ctx context.Context, program string) error {
	pattern := keyPrefix + "rules:*"
	if program != "" {
		pattern = keyPrefix + "rules:" + program + ":*"
	}

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) makeKey(key domain.CacheKey) string {
	return keyPrefix + key.String()
}
