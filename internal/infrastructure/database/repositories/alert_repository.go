package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrovault/coldchain-service/internal/core/domain"
	apperrors "github.com/agrovault/coldchain-service/internal/pkg/errors"
)

// AlertRepository implements alert persistence and the per-source
// unacknowledged counts consumed by the aggregator
type AlertRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewAlertRepository creates a new repository instance
func NewAlertRepository(db *gorm.DB, logger *slog.Logger) *AlertRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new alert
func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	err := r.db.WithContext(ctx).Create(alert).Error
	if err != nil {
		r.logger.Error("failed to create alert",
			slog.String("source", alert.Source), "error", err)
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// UnacknowledgedCount returns the number of unacknowledged alerts from one
// source for the given warehouse
func (r *AlertRepository) UnacknowledgedCount(ctx context.Context, source string, warehouseID uuid.UUID) (int, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("warehouse_id = ? AND source = ? AND acknowledged = ?", warehouseID, source, false).
		Count(&count).
		Error
	if err != nil {
		r.logger.Error("failed to count unacknowledged alerts",
			slog.String("source", source),
			slog.String("warehouse_id", warehouseID.String()),
			"error", err)
		return 0, fmt.Errorf("database query failed: %w", err)
	}
	return int(count), nil
}

// Acknowledge marks one alert acknowledged. Acknowledging an already
// acknowledged alert is a no-op.
func (r *AlertRepository) Acknowledge(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	var alert domain.Alert

	err := r.db.WithContext(ctx).First(&alert, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.RecordNotFound("alert")
	}
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	if alert.Acknowledged {
		return &alert, nil
	}

	now := time.Now().UTC()
	alert.Acknowledged = true
	alert.AcknowledgedAt = &now

	if err := r.db.WithContext(ctx).Save(&alert).Error; err != nil {
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	return &alert, nil
}

// ListUnacknowledged returns unacknowledged alerts for a warehouse, newest
// first
func (r *AlertRepository) ListUnacknowledged(ctx context.Context, warehouseID uuid.UUID) ([]domain.Alert, error) {
	var alerts []domain.Alert

	err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND acknowledged = ?", warehouseID, false).
		Order("created_at DESC").
		Find(&alerts).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return alerts, nil
}
