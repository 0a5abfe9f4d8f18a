// Package cache provides rule-set caching implementations for Warden.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
)

// DefaultTTL is how long a cached rule set stays fresh.
const DefaultTTL = 5 * time.Minute

// LRUCache is a thread-safe LRU cache of rule sets with TTL support.
// Used as the Community tier cache and as L1 in two-phase caching.
//
// Entries are immutable snapshots: Put swaps in a new *CacheEntry, so a reader
// holding an entry never observes a partially replaced rule set.
type LRUCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     domain.Clock
	items   map[domain.CacheKey]*list.Element
	order   *list.List

	hits   int64
	misses int64
}

type lruEntry struct {
	entry     *domain.CacheEntry
	expiresAt time.Time
}

// LRUOption configures an LRUCache.
type LRUOption func(*LRUCache)

// WithClock sets the time source used for expiry.
func WithClock(clock domain.Clock) LRUOption {
	return func(c *LRUCache) { c.now = clock }
}

// NewLRUCache creates a new LRU cache with the specified max size and TTL.
func NewLRUCache(maxSize int, ttl time.Duration, opts ...LRUOption) *LRUCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &LRUCache{
		maxSize: maxSize,
		ttl:     ttl,
		now:     domain.SystemClock,
		items:   make(map[domain.CacheKey]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry for key if present and not expired.
// Callers must treat the returned entry as read-only.
func (c *LRUCache) Get(ctx context.Context, key domain.CacheKey) (*domain.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}

	e := elem.Value.(*lruEntry)
	if !c.now().Before(e.expiresAt) {
		c.removeElement(elem)
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return e.entry, true
}

// Put stores a copy of rules under key, replacing any previous entry.
func (c *LRUCache) Put(ctx context.Context, key domain.CacheKey, rules []domain.Rule) error {
	c.putEntry(newEntry(key, rules, c.now()), c.ttl)
	return nil
}

// putEntry installs an already built snapshot with its own lifetime.
func (c *LRUCache) putEntry(entry *domain.CacheEntry, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)

	if elem, ok := c.items[entry.Key]; ok {
		c.order.MoveToFront(elem)
		elem.Value = &lruEntry{entry: entry, expiresAt: expiresAt}
		return
	}

	elem := c.order.PushFront(&lruEntry{entry: entry, expiresAt: expiresAt})
	c.items[entry.Key] = elem

	for c.order.Len() > c.maxSize {
		c.removeOldest()
	}
}

// Invalidate drops all entries for program. An empty program drops everything,
// since a global rule belongs to every key.
func (c *LRUCache) Invalidate(ctx context.Context, program string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if program == "" {
		c.items = make(map[domain.CacheKey]*list.Element)
		c.order.Init()
		return nil
	}

	for key, elem := range c.items {
		if key.Program == program {
			c.removeElement(elem)
		}
	}
	return nil
}

// Ping checks cache health.
func (c *LRUCache) Ping(ctx context.Context) error {
	return nil
}

// Close cleans up the cache.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[domain.CacheKey]*list.Element)
	c.order.Init()
	return nil
}

// Stats returns cache statistics.
func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.order.Len(), Capacity: c.maxSize, Hits: c.hits, Misses: c.misses}
}

// Stats describes cache occupancy and effectiveness.
type Stats struct {
	Size     int
	Capacity int
	Hits     int64
	Misses   int64
}

func (c *LRUCache) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*lruEntry).entry.Key)
}

func (c *LRUCache) removeOldest() {
	if elem := c.order.Back(); elem != nil {
		c.removeElement(elem)
	}
}

func newEntry(key domain.CacheKey, rules []domain.Rule, now time.Time) *domain.CacheEntry {
	snapshot := make([]domain.Rule, len(rules))
	copy(snapshot, rules)
	return &domain.CacheEntry{Key: key, Rules: snapshot, CachedAt: now}
}
