package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/agrovault/coldchain-service/internal/core/domain"
)

// AlertSource adapts the alert repository to one aggregation source: it
// counts unacknowledged alerts of a single origin (environment or order).
type AlertSource struct {
	repo   *AlertRepository
	source string
}

// NewEnvironmentAlertSource counts unacknowledged environmental alerts
func NewEnvironmentAlertSource(repo *AlertRepository) *AlertSource {
	return &AlertSource{repo: repo, source: domain.AlertSourceEnvironment}
}

// NewOrderAlertSource counts unacknowledged order/demand alerts
func NewOrderAlertSource(repo *AlertRepository) *AlertSource {
	return &AlertSource{repo: repo, source: domain.AlertSourceOrder}
}

// Name identifies the source in logs
func (s *AlertSource) Name() string {
	return s.source
}

// UnacknowledgedCount returns the unacknowledged alert count for the warehouse
func (s *AlertSource) UnacknowledgedCount(ctx context.Context, warehouseID uuid.UUID) (int, error) {
	return s.repo.UnacknowledgedCount(ctx, s.source, warehouseID)
}
