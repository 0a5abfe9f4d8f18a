// Package mcc classifies merchant category codes.
//
// The classifier never fails: persisted descriptors overlay a built-in table,
// and codes known to neither resolve to OTHER and a generic description.
package mcc

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
)

// Classifier resolves merchant codes to categories and descriptions.
type Classifier struct {
	source domain.DescriptorSource
	snap   atomic.Pointer[snapshot]
}

type snapshot struct {
	byCode   map[string]domain.MCCDescriptor
	loadedAt time.Time
}

// New creates a classifier backed by source. A nil source uses only the built-in table.
func New(source domain.DescriptorSource) *Classifier {
	c := &Classifier{source: source}
	c.snap.Store(&snapshot{byCode: map[string]domain.MCCDescriptor{}})
	return c
}

// Category returns the semantic category for code.
func (c *Classifier) Category(code string) string {
	return c.Descriptor(code).Category
}

// Description returns the human-readable description for code.
func (c *Classifier) Description(code string) string {
	return c.Descriptor(code).Description
}

// Descriptor returns the full descriptor for code.
func (c *Classifier) Descriptor(code string) domain.MCCDescriptor {
	d := domain.MCCDescriptor{Code: code}
	if p, ok := c.snap.Load().byCode[code]; ok {
		d = p
	}
	if d.Category == "" {
		d.Category = fallbackCategory(code)
	}
	if d.Description == "" {
		d.Description = fallbackDescription(code)
	}
	return d
}

// Refresh reloads persisted descriptors. On failure the previous snapshot is kept.
func (c *Classifier) Refresh(ctx context.Context) error {
	if c.source == nil {
		return nil
	}

	list, err := c.source.ListMCCDescriptors(ctx)
	if err != nil {
		slog.Warn("mcc descriptor refresh failed, keeping previous table", "error", err)
		return err
	}

	byCode := make(map[string]domain.MCCDescriptor, len(list))
	for _, d := range list {
		byCode[d.Code] = d
	}
	c.snap.Store(&snapshot{byCode: byCode, loadedAt: time.Now().UTC()})

	slog.Info("mcc descriptors loaded", "count", len(byCode))
	return nil
}

// Run refreshes on every tick until ctx is done.
func (c *Classifier) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}

// LoadedAt returns when persisted descriptors were last loaded, zero if never.
func (c *Classifier) LoadedAt() time.Time {
	return c.snap.Load().loadedAt
}

// Fallback returns the built-in descriptor table sorted by code.
func Fallback() []domain.MCCDescriptor {
	out := make([]domain.MCCDescriptor, 0, len(fallbackCategories))
	for code := range fallbackCategories {
		out = append(out, domain.MCCDescriptor{
			Code:        code,
			Category:    fallbackCategory(code),
			Description: fallbackDescription(code),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func fallbackCategory(code string) string {
	if c, ok := fallbackCategories[code]; ok {
		return c
	}
	return CategoryOther
}

func fallbackDescription(code string) string {
	if d, ok := fallbackDescriptions[code]; ok {
		return d
	}
	return "MCC " + code
}
