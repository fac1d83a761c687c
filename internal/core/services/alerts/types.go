package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Source is one independent provider of unacknowledged alert counts
type Source interface {
	// Name identifies the source in logs
	Name() string

	// UnacknowledgedCount returns the number of unacknowledged alerts for
	// the given warehouse.
	UnacknowledgedCount(ctx context.Context, warehouseID uuid.UUID) (int, error)
}

// Scope restricts aggregation to a warehouse and viewer role. A nil
// WarehouseID means no scope is selected and the count is always zero.
type Scope struct {
	WarehouseID *uuid.UUID
	ViewerRole  string
}

// State tracks the aggregator's refresh lifecycle
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
)

// Config for the aggregator
type Config struct {
	// RefreshInterval is the fixed polling cadence
	RefreshInterval time.Duration

	// OrderAlertRoles lists the viewer roles allowed to see order/demand
	// alerts. Other roles only see environmental alerts.
	OrderAlertRoles []string
}

// DefaultConfig returns the reference aggregator configuration
func DefaultConfig() Config {
	return Config{
		RefreshInterval: 30 * time.Second,
		OrderAlertRoles: []string{"manager", "dispatcher"},
	}
}

func (c Config) roleSeesOrderAlerts(role string) bool {
	for _, r := range c.OrderAlertRoles {
		if r == role {
			return true
		}
	}
	return false
}
