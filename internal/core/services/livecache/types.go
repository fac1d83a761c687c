package livecache

import (
	"context"

	"github.com/google/uuid"

	"github.com/agrovault/coldchain-service/internal/core/domain"
)

// EventType identifies a change feed operation
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is a single change feed notification for the batch collection
type Event struct {
	Type  EventType    `json:"type"`
	Batch domain.Batch `json:"batch"`
}

// Scope restricts a cache to an optional warehouse. A nil WarehouseID means
// unrestricted.
type Scope struct {
	WarehouseID *uuid.UUID
}

// Matches is the single filter predicate shared by the bulk read and the
// live event path. Expired batches never match, regardless of scope.
func (s Scope) Matches(b *domain.Batch) bool {
	if b.IsExpired() {
		return false
	}
	if s.WarehouseID == nil {
		return true
	}
	return b.WarehouseID == *s.WarehouseID
}

// Subscription is a handle on an established change feed subscription.
// Cancel must stop further callbacks and be safe to call more than once.
type Subscription interface {
	Cancel()
}

// ChangeFeed abstracts the remote source of truth: a one-shot filtered read
// plus a push stream of change events.
type ChangeFeed interface {
	// BulkRead returns the non-expired batches selected by the scope,
	// ordered by entry timestamp descending.
	BulkRead(ctx context.Context, scope Scope) ([]domain.Batch, error)

	// Subscribe registers a handler invoked once per change event.
	Subscribe(ctx context.Context, handler func(Event)) (Subscription, error)
}

// Stats are derived counts over current cache contents
type Stats struct {
	Total         int     `json:"total"`
	Fresh         int     `json:"fresh"`
	Moderate      int     `json:"moderate"`
	High          int     `json:"high"`
	Unscored      int     `json:"unscored"`
	TotalQuantity float64 `json:"total_quantity"`
}
