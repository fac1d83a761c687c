package livecache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/agrovault/coldchain-service/internal/core/domain"
	"github.com/agrovault/coldchain-service/internal/core/risk"
	apperrors "github.com/agrovault/coldchain-service/internal/pkg/errors"
)

// Cache maintains a de-duplicated, order-preserving view of the batches
// matching its scope, kept in sync with the change feed. All state is
// guarded by a mutex so feed callbacks and readers may run on any goroutine.
type Cache struct {
	feed   ChangeFeed
	logger *slog.Logger

	mu          sync.Mutex
	scope       Scope
	records     []domain.Batch
	sub         Subscription
	initialized bool
	generation  uint64
}

// New creates a cache for the given scope. The cache is empty and
// unsubscribed until Initialize is called.
func New(feed ChangeFeed, scope Scope, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		feed:   feed,
		scope:  scope,
		logger: logger,
	}
}

// Initialize establishes the feed subscription and replaces the cache
// contents with a bulk read. On a bulk read failure the cache is left empty
// and the error returned, but the subscription stays up so later events are
// still captured; the caller is expected to retry Initialize explicitly.
func (c *Cache) Initialize(ctx context.Context) error {
	c.mu.Lock()
	gen := c.generation
	scope := c.scope
	c.mu.Unlock()

	if err := c.ensureSubscribed(ctx, gen); err != nil {
		return err
	}

	batches, err := c.feed.BulkRead(ctx, scope)
	if err != nil {
		// Left empty even when a previous initialize had populated the
		// cache: stale contents must not outlive a failed refresh.
		c.mu.Lock()
		if c.generation == gen {
			c.records = nil
			c.initialized = false
		}
		c.mu.Unlock()

		c.logger.Error("bulk read failed, cache left empty", "error", err)
		return apperrors.TransientFetch(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer scope took over while this read was in flight; discard.
	if c.generation != gen {
		c.logger.Debug("discarding stale initialize result",
			slog.Uint64("generation", gen))
		return nil
	}

	c.records = make([]domain.Batch, len(batches))
	copy(c.records, batches)
	c.initialized = true

	c.logger.Info("cache initialized",
		slog.Int("records", len(c.records)),
		slog.Bool("scoped", scope.WarehouseID != nil))

	return nil
}

// ensureSubscribed establishes the feed subscription once per generation.
func (c *Cache) ensureSubscribed(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	if c.sub != nil || c.generation != gen {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	sub, err := c.feed.Subscribe(ctx, func(ev Event) {
		c.applyEvent(gen, ev)
	})
	if err != nil {
		c.logger.Error("subscription failed", "error", err)
		return apperrors.SubscriptionFailed(err)
	}

	c.mu.Lock()
	if c.generation != gen || c.sub != nil {
		// Scope changed while subscribing, or a concurrent initialize won
		// the race; this subscription is redundant.
		c.mu.Unlock()
		sub.Cancel()
		return nil
	}
	c.sub = sub
	c.mu.Unlock()
	return nil
}

// ApplyEvent applies a single change feed notification. Events are applied
// in arrival order; duplicates are tolerated (at-least-once delivery).
func (c *Cache) ApplyEvent(ev Event) {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()
	c.applyEvent(gen, ev)
}

func (c *Cache) applyEvent(gen uint64, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Late event from a torn-down subscription.
	if c.generation != gen {
		return
	}

	switch ev.Type {
	case EventInsert:
		c.applyInsert(ev.Batch)
	case EventUpdate:
		c.applyUpdate(ev.Batch)
	case EventDelete:
		c.removeByID(ev.Batch.ID)
	default:
		c.logger.Warn("unknown change event type", slog.String("type", string(ev.Type)))
	}
}

func (c *Cache) applyInsert(b domain.Batch) {
	if !c.scope.Matches(&b) {
		return
	}
	if c.indexOf(b.ID) >= 0 {
		// Duplicate delivery; idempotent no-op.
		return
	}
	// Prepend: live inserts approximate newest-first ordering.
	c.records = append([]domain.Batch{b}, c.records...)
}

func (c *Cache) applyUpdate(b domain.Batch) {
	idx := c.indexOf(b.ID)

	if !c.scope.Matches(&b) {
		// Transitioned to expired or moved out of scope.
		if idx >= 0 {
			c.records = append(c.records[:idx], c.records[idx+1:]...)
		}
		return
	}

	if idx >= 0 {
		// Replace in place, preserving position.
		c.records[idx] = b
		return
	}

	// Previously filtered out, now eligible.
	c.records = append([]domain.Batch{b}, c.records...)
}

func (c *Cache) removeByID(id uuid.UUID) {
	if idx := c.indexOf(id); idx >= 0 {
		c.records = append(c.records[:idx], c.records[idx+1:]...)
	}
}

func (c *Cache) indexOf(id uuid.UUID) int {
	for i := range c.records {
		if c.records[i].ID == id {
			return i
		}
	}
	return -1
}

// SwitchScope tears down the current subscription, adopts the new scope and
// re-initializes. In-flight initializes for the old scope are discarded
// (last writer wins on scope, never a mix of warehouses).
func (c *Cache) SwitchScope(ctx context.Context, scope Scope) error {
	c.mu.Lock()
	c.generation++
	c.scope = scope
	c.records = nil
	c.initialized = false
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}

	return c.Initialize(ctx)
}

// Teardown cancels the subscription and releases the cache. Safe to call
// repeatedly and before any successful subscribe.
func (c *Cache) Teardown() {
	c.mu.Lock()
	c.generation++
	sub := c.sub
	c.sub = nil
	c.records = nil
	c.initialized = false
	c.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

// Initialized reports whether the last Initialize completed successfully.
func (c *Cache) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Records returns a copy of the current cache contents in view order.
func (c *Cache) Records() []domain.Batch {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Batch, len(c.records))
	copy(out, c.records)
	return out
}

// Unscored returns the cached batches that have no risk score yet. The
// monitor enqueues score repairs for these.
func (c *Cache) Unscored() []domain.Batch {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []domain.Batch
	for i := range c.records {
		if c.records[i].RiskScore == nil {
			out = append(out, c.records[i])
		}
	}
	return out
}

// Stats recomputes derived counts from current contents on every call,
// never maintained incrementally, so they cannot drift from the records.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{Total: len(c.records)}
	for i := range c.records {
		b := &c.records[i]
		stats.TotalQuantity += b.Quantity

		if b.RiskScore == nil {
			stats.Unscored++
			continue
		}
		switch risk.Classify(*b.RiskScore) {
		case risk.CategoryFresh:
			stats.Fresh++
		case risk.CategoryModerate:
			stats.Moderate++
		case risk.CategoryHigh:
			stats.High++
		}
	}
	return stats
}
