package intake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agrovault/coldchain-service/internal/core/domain"
	"github.com/agrovault/coldchain-service/internal/core/risk"
	"github.com/agrovault/coldchain-service/internal/core/services/livecache"
	apperrors "github.com/agrovault/coldchain-service/internal/pkg/errors"
)

// Service implements the inventory write path: intake, environmental
// updates, status transitions and removal. Every successful write is
// published to the change feed so live caches converge.
type Service struct {
	repo      BatchRepository
	publisher FeedPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new intake service
func NewService(repo BatchRepository, publisher FeedPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateBatch validates and persists a new batch with its initial risk
// score computed from entry-time factors.
func (s *Service) CreateBatch(ctx context.Context, input CreateBatchInput) (*domain.Batch, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	unit := input.Unit
	if unit == "" {
		unit = "kg"
	}

	batch := &domain.Batch{
		ID:             uuid.New(),
		BatchCode:      input.BatchCode,
		WarehouseID:    input.WarehouseID,
		Zone:           input.Zone,
		Crop:           NormalizeLabel(input.Crop),
		Variety:        NormalizeLabel(input.Variety),
		Quantity:       input.Quantity,
		Unit:           unit,
		EntryDate:      input.EntryDate,
		ShelfLifeDays:  input.ShelfLifeDays,
		Status:         domain.StatusActive,
		TargetTemp:     input.TargetTemp,
		TargetHumidity: input.TargetHumidity,
	}

	score := risk.Score(batch.RiskFactors(s.now()))
	batch.RiskScore = &score

	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	s.publish(ctx, livecache.EventInsert, *batch)

	s.logger.Info("batch created",
		slog.String("batch_code", batch.BatchCode),
		slog.String("warehouse_id", batch.WarehouseID.String()),
		slog.Int("risk_score", score))

	return batch, nil
}

// RecordReadings stores new environmental readings and recomputes the risk
// score from the updated factors.
func (s *Service) RecordReadings(ctx context.Context, batchID uuid.UUID, input ReadingsInput) (*domain.Batch, error) {
	if err := validateReadings(input); err != nil {
		return nil, err
	}

	batch, err := s.repo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if input.Temperature != nil {
		batch.Temperature = input.Temperature
	}
	if input.Humidity != nil {
		batch.Humidity = input.Humidity
	}
	if input.EthyleneLevel != nil {
		batch.EthyleneLevel = input.EthyleneLevel
	}
	if input.CO2Level != nil {
		batch.CO2Level = input.CO2Level
	}
	if input.AmmoniaLevel != nil {
		batch.AmmoniaLevel = input.AmmoniaLevel
	}

	score := risk.Score(batch.RiskFactors(s.now()))
	batch.RiskScore = &score

	if err := s.repo.Save(ctx, batch); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	s.publish(ctx, livecache.EventUpdate, *batch)
	return batch, nil
}

// RecomputeScore refreshes the risk score of one batch from its stored
// factors. Used by the background recompute task; the factors themselves
// are unchanged, only elapsed time has moved.
func (s *Service) RecomputeScore(ctx context.Context, batchID uuid.UUID) (*domain.Batch, error) {
	batch, err := s.repo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	score := risk.Score(batch.RiskFactors(s.now()))
	if batch.RiskScore != nil && *batch.RiskScore == score {
		return batch, nil
	}
	batch.RiskScore = &score

	if err := s.repo.Save(ctx, batch); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	s.publish(ctx, livecache.EventUpdate, *batch)
	return batch, nil
}

// Dispatch transitions an active batch to dispatched
func (s *Service) Dispatch(ctx context.Context, batchID uuid.UUID, destination string) (*domain.Batch, error) {
	batch, err := s.repo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if batch.Status != domain.StatusActive {
		return nil, apperrors.InvalidStatus(batch.Status).
			WithDetails("transition", "dispatch")
	}

	now := s.now()
	batch.Status = domain.StatusDispatched
	batch.DispatchDestination = &destination
	batch.DispatchedAt = &now

	if err := s.repo.Save(ctx, batch); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	s.publish(ctx, livecache.EventUpdate, *batch)

	s.logger.Info("batch dispatched",
		slog.String("batch_code", batch.BatchCode),
		slog.String("destination", destination))

	return batch, nil
}

// Expire transitions an active batch to expired. Expired batches drop out
// of every live view.
func (s *Service) Expire(ctx context.Context, batchID uuid.UUID) (*domain.Batch, error) {
	batch, err := s.repo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if batch.Status == domain.StatusExpired {
		return batch, nil
	}
	if batch.Status != domain.StatusActive {
		return nil, apperrors.InvalidStatus(batch.Status).
			WithDetails("transition", "expire")
	}

	batch.Status = domain.StatusExpired

	if err := s.repo.Save(ctx, batch); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	s.publish(ctx, livecache.EventUpdate, *batch)
	return batch, nil
}

// Remove deletes a batch outright and notifies the feed
func (s *Service) Remove(ctx context.Context, batchID uuid.UUID) error {
	batch, err := s.repo.GetByID(ctx, batchID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, batchID); err != nil {
		return apperrors.DatabaseError(err)
	}

	s.publish(ctx, livecache.EventDelete, *batch)

	s.logger.Info("batch removed", slog.String("batch_code", batch.BatchCode))
	return nil
}

// SweepExpired marks every active batch past its shelf life as expired and
// publishes the transitions. Returns the number of batches expired.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.now()

	batches, err := s.repo.ListActiveExpiredAsOf(ctx, now)
	if err != nil {
		return 0, apperrors.DatabaseError(err)
	}

	expired := 0
	for i := range batches {
		batch := &batches[i]
		batch.Status = domain.StatusExpired

		if err := s.repo.Save(ctx, batch); err != nil {
			s.logger.Error("failed to expire batch",
				slog.String("batch_code", batch.BatchCode), "error", err)
			continue
		}
		s.publish(ctx, livecache.EventUpdate, *batch)
		expired++
	}

	if expired > 0 {
		s.logger.Info("expiry sweep completed", slog.Int("expired", expired))
	}
	return expired, nil
}

// RecomputeAll refreshes risk scores for all active batches. Returns the
// number of batches whose score changed.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	batches, err := s.repo.ListActive(ctx)
	if err != nil {
		return 0, apperrors.DatabaseError(err)
	}

	now := s.now()
	changed := 0
	for i := range batches {
		batch := &batches[i]

		score := risk.Score(batch.RiskFactors(now))
		if batch.RiskScore != nil && *batch.RiskScore == score {
			continue
		}
		batch.RiskScore = &score

		if err := s.repo.Save(ctx, batch); err != nil {
			s.logger.Error("failed to save recomputed score",
				slog.String("batch_code", batch.BatchCode), "error", err)
			continue
		}
		s.publish(ctx, livecache.EventUpdate, *batch)
		changed++
	}
	return changed, nil
}

func (s *Service) publish(ctx context.Context, eventType livecache.EventType, batch domain.Batch) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, livecache.Event{Type: eventType, Batch: batch}); err != nil {
		// Caches fall back to their next bulk read; the write itself stands.
		s.logger.Error("failed to publish change event",
			slog.String("type", string(eventType)),
			slog.String("batch_code", batch.BatchCode),
			"error", err)
	}
}

func validateCreateInput(input CreateBatchInput) error {
	if input.BatchCode == "" {
		return apperrors.InvalidBatch("batch code is required")
	}
	if input.WarehouseID == uuid.Nil {
		return apperrors.New(apperrors.ErrCodeWarehouseRequired, "warehouse is required")
	}
	if input.Crop == "" {
		return apperrors.InvalidBatch("crop is required")
	}
	if input.Quantity < 0 {
		return apperrors.InvalidBatch("quantity must be non-negative")
	}
	if input.ShelfLifeDays <= 0 {
		return apperrors.InvalidBatch("shelf life must be a positive number of days")
	}
	if input.EntryDate.IsZero() {
		return apperrors.InvalidBatch("entry date is required")
	}
	return nil
}

func validateReadings(input ReadingsInput) error {
	for _, level := range []*string{input.EthyleneLevel, input.CO2Level, input.AmmoniaLevel} {
		if level == nil {
			continue
		}
		if !risk.IsValidGasLevel(risk.GasLevel(*level)) {
			return apperrors.InvalidBatch(fmt.Sprintf("invalid gas level reading: %s", *level))
		}
	}
	return nil
}
