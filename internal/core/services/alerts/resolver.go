package alerts

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/agrovault/coldchain-service/internal/core/domain"
)

// AlertStore is the persistence interface the resolver needs
type AlertStore interface {
	Acknowledge(ctx context.Context, id uuid.UUID) (*domain.Alert, error)
}

// AckNotifier broadcasts that an alert was acknowledged so running
// aggregators recount immediately instead of waiting for the next tick
type AckNotifier interface {
	Notify(ctx context.Context) error
}

// Resolver acknowledges alerts and fans the signal out to aggregators
type Resolver struct {
	store    AlertStore
	notifier AckNotifier
	logger   *slog.Logger
}

// NewResolver creates a resolver. The notifier may be nil when no signal
// transport is wired; acknowledged counts then converge on the next poll.
func NewResolver(store AlertStore, notifier AckNotifier, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Acknowledge marks the alert acknowledged and broadcasts the signal. A
// notify failure is logged, not returned: the acknowledge itself succeeded
// and pollers converge on their own.
func (r *Resolver) Acknowledge(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	alert, err := r.store.Acknowledge(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx); err != nil {
			r.logger.Warn("failed to broadcast acknowledged signal",
				slog.String("alert_id", id.String()), "error", err)
		}
	}

	return alert, nil
}
