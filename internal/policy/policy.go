// Package policy holds program-specific authorization policies.
//
// Each policy encodes regulatory knowledge that generic rule records cannot
// express. A Registry maps a benefit program code to its policy.
package policy

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/opensource-finance/warden/internal/domain"
)

// Program codes with built-in policies.
const (
	ProgramSNAP           = "SNAP"
	ProgramTANF           = "TANF"
	ProgramWIC            = "WIC"
	ProgramSection8       = "SECTION_8"
	ProgramESA            = "SCHOOL_CHOICE_ESA"
	ProgramDisasterRelief = "DISASTER_RELIEF"
	ProgramEmergencyCash  = "EMERGENCY_CASH"
)

// ProgramPolicy checks a transaction against one program's regulations.
type ProgramPolicy interface {
	Program() string
	Check(ctx context.Context, tx *domain.TransactionContext) (domain.CheckResult, error)
}

// Classifier maps a merchant code to its semantic category.
type Classifier interface {
	Category(code string) string
}

// Registry maps program codes to policies. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]ProgramPolicy
}

// NewRegistry creates a registry holding the given policies.
func NewRegistry(policies ...ProgramPolicy) *Registry {
	r := &Registry{policies: make(map[string]ProgramPolicy, len(policies))}
	for _, p := range policies {
		r.Register(p)
	}
	return r
}

// Register adds or replaces the policy for its program.
func (r *Registry) Register(p ProgramPolicy) {
	r.mu.Lock()
	r.policies[p.Program()] = p
	r.mu.Unlock()
}

// Lookup returns the policy for a program.
func (r *Registry) Lookup(program string) (ProgramPolicy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[program]
	return p, ok
}

// Programs returns the registered program codes in sorted order.
func (r *Registry) Programs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.policies))
	for p := range r.policies {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// keywordMatcher finds prohibited keywords in item text.
// Matching is case-insensitive and treats underscores as spaces.
type keywordMatcher []string

func newKeywordMatcher(keywords []string) keywordMatcher {
	m := make(keywordMatcher, 0, len(keywords))
	for _, k := range keywords {
		if k = normalize(k); k != "" {
			m = append(m, k)
		}
	}
	return m
}

// match returns the first item whose description or category contains a keyword.
func (m keywordMatcher) match(items []domain.LineItem) (domain.LineItem, bool) {
	for _, item := range items {
		desc := normalize(item.Description)
		cat := normalize(item.Category)
		for _, k := range m {
			if strings.Contains(desc, k) || strings.Contains(cat, k) {
				return item, true
			}
		}
	}
	return domain.LineItem{}, false
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(s), "_", " "))
}

func contains(list []string, v string) bool {
	return slices.Contains(list, v)
}
