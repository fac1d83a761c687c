package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task types handled by the inventory worker
const (
	TaskTypeRecompute      = "risk:recompute"
	TaskTypeRecomputeAll   = "risk:recompute_all"
	TaskTypeExpireSweep    = "inventory:expire_sweep"
	TaskTypeImportManifest = "inventory:import_manifest"
)

// RecomputePayload is the payload for a single-batch score refresh
type RecomputePayload struct {
	BatchID uuid.UUID `json:"batch_id"`
}

// NewRecomputeTask creates a task refreshing one batch's risk score
func NewRecomputeTask(batchID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(RecomputePayload{BatchID: batchID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recompute payload: %w", err)
	}
	return asynq.NewTask(TaskTypeRecompute, payload), nil
}

// NewRecomputeAllTask creates a task refreshing every active batch's score
func NewRecomputeAllTask() *asynq.Task {
	return asynq.NewTask(TaskTypeRecomputeAll, nil)
}

// NewExpireSweepTask creates a task expiring batches past their shelf life
func NewExpireSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeExpireSweep, nil)
}

// HandleRecomputeTask processes a risk:recompute task
func (s *Service) HandleRecomputeTask(ctx context.Context, t *asynq.Task) error {
	var payload RecomputePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid recompute payload: %w", err)
	}

	if _, err := s.RecomputeScore(ctx, payload.BatchID); err != nil {
		return fmt.Errorf("recompute for batch %s failed: %w", payload.BatchID, err)
	}
	return nil
}

// HandleRecomputeAllTask processes a risk:recompute_all task
func (s *Service) HandleRecomputeAllTask(ctx context.Context, t *asynq.Task) error {
	changed, err := s.RecomputeAll(ctx)
	if err != nil {
		return fmt.Errorf("recompute sweep failed: %w", err)
	}
	s.logger.Debug("recompute sweep finished", "changed", changed)
	return nil
}

// HandleExpireSweepTask processes an inventory:expire_sweep task
func (s *Service) HandleExpireSweepTask(ctx context.Context, t *asynq.Task) error {
	if _, err := s.SweepExpired(ctx); err != nil {
		return fmt.Errorf("expiry sweep failed: %w", err)
	}
	return nil
}

// ImportManifestPayload is the payload for a bulk manifest import
type ImportManifestPayload struct {
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Path        string    `json:"path"`
}

// NewImportManifestTask creates a task importing one manifest file into a
// warehouse
func NewImportManifestTask(warehouseID uuid.UUID, path string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImportManifestPayload{WarehouseID: warehouseID, Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal import payload: %w", err)
	}
	return asynq.NewTask(TaskTypeImportManifest, payload), nil
}

// HandleImportManifestTask processes an inventory:import_manifest task. The
// manifest is archived only after a successful import so a crashed run is
// retried from the drop directory.
func (i *Importer) HandleImportManifestTask(ctx context.Context, t *asynq.Task) error {
	var payload ImportManifestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid import payload: %w", err)
	}

	report, err := i.ImportManifest(ctx, payload.WarehouseID, payload.Path)
	if err != nil {
		return fmt.Errorf("manifest import %s failed: %w", payload.Path, err)
	}

	if i.archiver != nil {
		if err := i.archiver.Archive(ctx, payload.Path); err != nil {
			i.logger.Warn("failed to archive imported manifest",
				slog.String("path", payload.Path), "error", err)
		}
	}

	i.logger.Debug("manifest import finished",
		slog.String("path", payload.Path),
		slog.Int("created", report.Created))
	return nil
}
