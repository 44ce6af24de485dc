package cache

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultInvalidationBudget is the soft wall-clock budget for one
// invalidation batch. Exceeding it is logged, never fatal: consistency
// windows are bounded by this budget and backstopped by entry TTLs.
const DefaultInvalidationBudget = time.Second

// InvalidationSet names everything one mutation must delete. It must be a
// superset of every entry the mutation could have staled; over-invalidation
// only costs performance.
type InvalidationSet struct {
	Keys     []string
	Patterns []string
}

// Invalidator fans out cache deletions after a mutation commits.
type Invalidator interface {
	Run(ctx context.Context, set InvalidationSet)
}

type invalidator struct {
	cache  *Client
	budget time.Duration
}

// NewInvalidator creates an invalidator over the shared cache client.
// A non-positive budget falls back to the default.
func NewInvalidator(cache *Client, budget time.Duration) Invalidator {
	if budget <= 0 {
		budget = DefaultInvalidationBudget
	}
	return &invalidator{cache: cache, budget: budget}
}

// Run deletes all keys and patterns concurrently. Individual failures are
// absorbed by the cache client's soft policy and never abort the batch.
// Callers invoke this strictly after the triggering mutation commits.
func (inv *invalidator) Run(ctx context.Context, set InvalidationSet) {
	if len(set.Keys) == 0 && len(set.Patterns) == 0 {
		return
	}

	// The triggering mutation has already committed, so a caller disconnect
	// must not cancel the fan-out and strand stale entries for a full TTL.
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	for _, key := range set.Keys {
		key := key
		g.Go(func() error {
			return inv.cache.Delete(gctx, key)
		})
	}

	for _, pattern := range set.Patterns {
		pattern := pattern
		g.Go(func() error {
			return inv.cache.DeleteByPattern(gctx, pattern)
		})
	}

	// Soft-policy deletions return nil even on backend failure, so Wait
	// only propagates context cancellation.
	if err := g.Wait(); err != nil {
		slog.Error("Cache invalidation interrupted", "error", err)
	}

	elapsed := time.Since(start)
	if elapsed > inv.budget {
		slog.Warn("Cache invalidation exceeded latency budget",
			"elapsed", elapsed, "budget", inv.budget,
			"keys", len(set.Keys), "patterns", len(set.Patterns))
	}
}
