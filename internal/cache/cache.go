// Package cache keeps computed bill summaries keyed by bill ID and revision.
//
// Because the revision changes on every mutation, a stale entry is never
// served: a new revision simply misses. Entries for old revisions age out.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/calculator"
)

// SummaryCache stores summaries by bill and revision.
type SummaryCache interface {
	Get(ctx context.Context, billID string, revision int64) (*calculator.Summary, bool)
	Set(ctx context.Context, summary *calculator.Summary)
}

// Key builds the cache key for a bill revision.
func Key(billID string, revision int64) string {
	return fmt.Sprintf("summary:%s:%d", billID, revision)
}

// LRU is an in-process cache with a size bound and per-entry TTL.
type LRU struct {
	cache *expirable.LRU[string, *calculator.Summary]
}

// NewLRU creates an in-process cache.
func NewLRU(size int, ttl time.Duration) *LRU {
	return &LRU{cache: expirable.NewLRU[string, *calculator.Summary](size, nil, ttl)}
}

// Get returns the cached summary for a bill revision.
func (c *LRU) Get(_ context.Context, billID string, revision int64) (*calculator.Summary, bool) {
	return c.cache.Get(Key(billID, revision))
}

// Set caches a summary under its bill and revision.
func (c *LRU) Set(_ context.Context, summary *calculator.Summary) {
	c.cache.Add(Key(summary.BillID, summary.Revision), summary)
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	return c.cache.Len()
}

// Tiered checks a local cache first and falls back to a shared one,
// copying shared hits into the local cache.
type Tiered struct {
	local  SummaryCache
	shared SummaryCache
}

// NewTiered combines a local and a shared cache.
func NewTiered(local, shared SummaryCache) *Tiered {
	return &Tiered{local: local, shared: shared}
}

// Get implements SummaryCache.
func (t *Tiered) Get(ctx context.Context, billID string, revision int64) (*calculator.Summary, bool) {
	if s, ok := t.local.Get(ctx, billID, revision); ok {
		return s, true
	}
	s, ok := t.shared.Get(ctx, billID, revision)
	if ok {
		t.local.Set(ctx, s)
	}
	return s, ok
}

// Set implements SummaryCache.
func (t *Tiered) Set(ctx context.Context, summary *calculator.Summary) {
	t.local.Set(ctx, summary)
	t.shared.Set(ctx, summary)
}
