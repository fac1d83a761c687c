package alerts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/agrovault/coldchain-service/internal/pkg/errors"
)

// Aggregator sums unacknowledged alert counts across independent sources
// for one (warehouse, viewer role) scope. A failing source contributes zero
// rather than aborting the aggregation; a refresh where every source failed
// keeps the last successfully known count instead of regressing to zero.
type Aggregator struct {
	config Config
	logger *slog.Logger

	sources []registeredSource

	mu        sync.Mutex
	state     State
	lastCount int
}

type registeredSource struct {
	source    Source
	roleGated bool
}

// New creates an aggregator with no sources registered
func New(config Config, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Aggregator{
		config: config,
		logger: logger,
		state:  StateIdle,
	}
}

// AddSource registers a source queried for every viewer
func (a *Aggregator) AddSource(s Source) {
	a.sources = append(a.sources, registeredSource{source: s})
}

// AddRoleGatedSource registers a source queried only for viewers whose role
// appears in Config.OrderAlertRoles
func (a *Aggregator) AddRoleGatedSource(s Source) {
	a.sources = append(a.sources, registeredSource{source: s, roleGated: true})
}

// Count computes the aggregated unacknowledged count for the scope. With no
// warehouse selected it returns 0 without querying any source. The returned
// error is non-nil only when every applicable source failed; partial
// failures are logged and tolerated.
func (a *Aggregator) Count(ctx context.Context, scope Scope) (int, error) {
	if scope.WarehouseID == nil {
		return 0, nil
	}

	total := 0
	queried := 0
	failed := 0
	var lastErr error

	for _, reg := range a.sources {
		if reg.roleGated && !a.config.roleSeesOrderAlerts(scope.ViewerRole) {
			continue
		}
		queried++

		count, err := reg.source.UnacknowledgedCount(ctx, *scope.WarehouseID)
		if err != nil {
			failed++
			lastErr = err
			// Partial failure: a partial count beats none.
			a.logger.Warn("alert source failed, contributing zero",
				slog.String("source", reg.source.Name()),
				"error", apperrors.PartialAggregation(reg.source.Name(), err))
			continue
		}
		total += count
	}

	if queried > 0 && failed == queried {
		return 0, apperrors.TransientFetch(lastErr)
	}
	return total, nil
}

// Refresh recomputes the count and records it. On total failure the last
// known count is kept so the visible number never flickers to zero on a
// transient outage.
func (a *Aggregator) Refresh(ctx context.Context, scope Scope) int {
	a.mu.Lock()
	a.state = StateLoading
	a.mu.Unlock()

	count, err := a.Count(ctx, scope)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateReady
	if err != nil {
		a.logger.Warn("alert refresh failed, keeping last known count",
			slog.Int("last_count", a.lastCount), "error", err)
		return a.lastCount
	}
	a.lastCount = count
	return count
}

// LastCount returns the most recently recorded count and the current state
func (a *Aggregator) LastCount() (int, State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastCount, a.state
}

// Run refreshes immediately, then on every tick of the configured interval
// and on every acknowledged signal, until the context is cancelled. The ack
// channel may be nil when no external signal transport is wired.
func (a *Aggregator) Run(ctx context.Context, scope Scope, acknowledged <-chan struct{}) {
	a.Refresh(ctx, scope)

	ticker := time.NewTicker(a.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Refresh(ctx, scope)
		case _, ok := <-acknowledged:
			if !ok {
				// Signal transport closed; keep polling on the ticker.
				acknowledged = nil
				continue
			}
			// Recount immediately so a just-resolved alert is not shown stale.
			a.Refresh(ctx, scope)
		}
	}
}
