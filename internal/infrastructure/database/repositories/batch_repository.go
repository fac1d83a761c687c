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

// BatchRepository implements batch persistence using GORM. It also serves
// the live cache's bulk read: ListCurrent applies the same non-expired +
// optional-warehouse filter server-side, newest entries first.
type BatchRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewBatchRepository creates a new repository instance
func NewBatchRepository(db *gorm.DB, logger *slog.Logger) *BatchRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &BatchRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new batch
func (r *BatchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	err := r.db.WithContext(ctx).Create(batch).Error
	if err != nil {
		r.logger.Error("failed to create batch",
			slog.String("batch_code", batch.BatchCode), "error", err)
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

// GetByID fetches one batch by internal id
func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	var batch domain.Batch

	err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.RecordNotFound("batch")
	}
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &batch, nil
}

// GetByCode fetches one batch by its externally visible code
func (r *BatchRepository) GetByCode(ctx context.Context, code string) (*domain.Batch, error) {
	var batch domain.Batch

	err := r.db.WithContext(ctx).First(&batch, "batch_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.RecordNotFound("batch")
	}
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &batch, nil
}

// Save persists all fields of an existing batch
func (r *BatchRepository) Save(ctx context.Context, batch *domain.Batch) error {
	err := r.db.WithContext(ctx).Save(batch).Error
	if err != nil {
		r.logger.Error("failed to save batch",
			slog.String("batch_code", batch.BatchCode), "error", err)
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

// Delete removes a batch outright
func (r *BatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Delete(&domain.Batch{}, "id = ?", id).Error
	if err != nil {
		r.logger.Error("failed to delete batch",
			slog.String("batch_id", id.String()), "error", err)
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

// ListCurrent returns the current inventory view: non-expired batches,
// optionally restricted to one warehouse, ordered by entry timestamp
// descending (most recent first).
func (r *BatchRepository) ListCurrent(ctx context.Context, warehouseID *uuid.UUID) ([]domain.Batch, error) {
	query := r.db.WithContext(ctx).
		Where("status <> ?", domain.StatusExpired).
		Order("entry_date DESC")

	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var batches []domain.Batch
	if err := query.Find(&batches).Error; err != nil {
		r.logger.Error("failed to list current inventory", "error", err)
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return batches, nil
}

// ListActive returns all active batches
func (r *BatchRepository) ListActive(ctx context.Context) ([]domain.Batch, error) {
	var batches []domain.Batch

	err := r.db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Find(&batches).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return batches, nil
}

// ListActiveExpiredAsOf returns active batches whose shelf life has fully
// elapsed at the given time
func (r *BatchRepository) ListActiveExpiredAsOf(ctx context.Context, now time.Time) ([]domain.Batch, error) {
	var batches []domain.Batch

	err := r.db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Where("entry_date + make_interval(days => shelf_life_days) < ?", now).
		Find(&batches).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return batches, nil
}
