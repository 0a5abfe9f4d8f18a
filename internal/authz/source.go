package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
	"github.com/opensource-finance/warden/internal/metrics"
	"github.com/opensource-finance/warden/internal/rules"
)

// DefaultLookupTimeout bounds rule lookups when none is configured.
const DefaultLookupTimeout = 250 * time.Millisecond

// RuleSource reads rule sets through the cache, falling back to the store.
type RuleSource struct {
	store   domain.RuleStore
	cache   domain.RuleCache
	metrics *metrics.Metrics
	timeout time.Duration

	// generation advances on every invalidation so a fetch that raced with a
	// rule mutation does not repopulate the cache with the old rule set.
	generation atomic.Uint64
}

// NewRuleSource creates a rule source. A nil cache reads the store every time.
func NewRuleSource(store domain.RuleStore, cache domain.RuleCache, m *metrics.Metrics, timeout time.Duration) *RuleSource {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &RuleSource{store: store, cache: cache, metrics: m, timeout: timeout}
}

// Rules returns the evaluable rule set for a program and merchant code.
// Rules are validated once when read from the store; malformed rules are
// logged, counted and left out of both the result and the cache.
// Store failures and timeouts wrap domain.ErrRepositoryUnavailable.
func (s *RuleSource) Rules(ctx context.Context, program, mcc string) ([]domain.Rule, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := domain.CacheKey{Program: program, MCC: mcc}
	if s.cache != nil {
		if entry, ok := s.cache.Get(ctx, key); ok {
			s.metrics.IncCache(true)
			return entry.Rules, nil
		}
		s.metrics.IncCache(false)
	}

	gen := s.generation.Load()
	fetched, err := s.store.FetchRules(ctx, program, mcc)
	if err != nil {
		if !errors.Is(err, domain.ErrRepositoryUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrRepositoryUnavailable, err)
		}
		return nil, err
	}
	valid := s.evaluable(fetched)

	if s.cache != nil && s.generation.Load() == gen {
		s.put(ctx, key, valid, gen)
	}
	return valid, nil
}

// put caches a rule set read at generation gen. An invalidation can land
// between the generation check and the write, so the generation is checked
// again afterwards and the entry dropped if it moved.
func (s *RuleSource) put(ctx context.Context, key domain.CacheKey, ruleset []domain.Rule, gen uint64) {
	if err := s.cache.Put(ctx, key, ruleset); err != nil {
		slog.Warn("failed to cache rules",
			"program", key.Program,
			"mcc", key.MCC,
			"error", err,
		)
		return
	}
	if s.generation.Load() == gen {
		return
	}
	if err := s.cache.Invalidate(context.WithoutCancel(ctx), key.Program); err != nil {
		slog.Error("failed to drop rules cached during invalidation",
			"program", key.Program,
			"mcc", key.MCC,
			"error", err,
		)
	}
}

// evaluable drops rules that cannot be evaluated.
func (s *RuleSource) evaluable(fetched []domain.Rule) []domain.Rule {
	out := make([]domain.Rule, 0, len(fetched))
	for _, r := range fetched {
		if err := rules.Validate(&r); err != nil {
			s.metrics.IncInvalidRules()
			slog.Warn("skipping invalid rule",
				"rule_id", r.ID,
				"rule_code", r.Code,
				"error", err,
			)
			continue
		}
		out = append(out, r)
	}
	return out
}

// Invalidate drops cached rule sets for a program, or all of them for "".
// The generation advances before the cache is touched so that a concurrent
// read either sees the bump or has its entry removed here.
func (s *RuleSource) Invalidate(ctx context.Context, program string) error {
	s.generation.Add(1)
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, program)
}
