package manifest

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/agrovault/coldchain-service/internal/core/services/intake"
)

// Enqueuer is the slice of the task queue client the dispatcher uses
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher watches the drop directory and enqueues one import task per
// incoming manifest. Files are named <warehouse-uuid>_<label>.<ext>; the
// prefix routes the rows to a warehouse. Each task carries a stable ID
// derived from the filename, so rescans of a not-yet-imported file are
// de-duplicated by the queue.
type Dispatcher struct {
	store    *Store
	registry *Registry
	queue    Enqueuer
	logger   *slog.Logger

	scanInterval time.Duration
	retention    time.Duration
}

// DispatcherConfig controls the scan cadence and archive retention
type DispatcherConfig struct {
	ScanInterval time.Duration
	Retention    time.Duration
}

// NewDispatcher creates a dispatcher over the given drop directory
func NewDispatcher(store *Store, registry *Registry, queue Enqueuer, cfg *DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	scanInterval := cfg.ScanInterval
	if scanInterval <= 0 {
		scanInterval = time.Minute
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &Dispatcher{
		store:        store,
		registry:     registry,
		queue:        queue,
		logger:       logger,
		scanInterval: scanInterval,
		retention:    retention,
	}
}

// DispatchIncoming enqueues an import task for every routable manifest in
// incoming/ and returns the number of newly enqueued tasks. Files without a
// warehouse prefix or with an unsupported extension are skipped; already
// queued files are left to the pending task.
func (d *Dispatcher) DispatchIncoming(ctx context.Context) (int, error) {
	names, err := d.store.ListIncoming(ctx)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, name := range names {
		warehouseID, ok := warehouseFromName(name)
		if !ok {
			d.logger.Warn("ignoring manifest without warehouse prefix",
				slog.String("name", name))
			continue
		}

		if !d.registry.IsSupported(filepath.Ext(name)) {
			d.logger.Warn("ignoring manifest with unsupported format",
				slog.String("name", name))
			continue
		}

		task, err := intake.NewImportManifestTask(warehouseID, d.store.IncomingPath(name))
		if err != nil {
			d.logger.Error("failed to build import task",
				slog.String("name", name), "error", err)
			continue
		}

		_, err = d.queue.EnqueueContext(ctx, task, asynq.TaskID("manifest:"+name))
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			// Still pending from an earlier scan; the import archives the
			// file, so the conflict clears once it runs.
			continue
		}
		if err != nil {
			d.logger.Error("failed to enqueue manifest import",
				slog.String("name", name), "error", err)
			continue
		}
		enqueued++

		if info, err := d.store.Receipt(ctx, name); err == nil {
			d.logger.Info("manifest queued for import",
				slog.String("name", info.Name),
				slog.Int64("size", info.Size),
				slog.String("hash", info.Hash),
				slog.String("warehouse_id", warehouseID.String()))
		}
	}
	return enqueued, nil
}

// Run scans incoming/ on the configured cadence and prunes the archive once
// a day. Blocks until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	scan := time.NewTicker(d.scanInterval)
	defer scan.Stop()
	cleanup := time.NewTicker(24 * time.Hour)
	defer cleanup.Stop()

	if _, err := d.DispatchIncoming(ctx); err != nil {
		d.logger.Error("manifest scan failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("manifest dispatcher stopped")
			return
		case <-scan.C:
			if _, err := d.DispatchIncoming(ctx); err != nil {
				d.logger.Error("manifest scan failed", "error", err)
			}
		case <-cleanup.C:
			if err := d.store.CleanupArchive(ctx, d.retention); err != nil {
				d.logger.Warn("archive cleanup failed", "error", err)
			}
		}
	}
}

// warehouseFromName extracts the warehouse UUID prefix from a manifest
// filename of the form <uuid>_<label>.<ext>.
func warehouseFromName(name string) (uuid.UUID, bool) {
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(prefix)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
