package intake

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agrovault/coldchain-service/internal/core/domain"
	"github.com/agrovault/coldchain-service/internal/core/services/livecache"
)

// BatchRepository defines the persistence interface the intake service needs
type BatchRepository interface {
	Create(ctx context.Context, batch *domain.Batch) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Batch, error)

	// GetByCode fetches a batch by its external code, used by the importer
	// to skip already-registered rows
	GetByCode(ctx context.Context, code string) (*domain.Batch, error)
	Save(ctx context.Context, batch *domain.Batch) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListActive returns all active batches, used by the recompute sweep
	ListActive(ctx context.Context) ([]domain.Batch, error)

	// ListActiveExpiredAsOf returns active batches whose shelf life has
	// fully elapsed at the given time
	ListActiveExpiredAsOf(ctx context.Context, now time.Time) ([]domain.Batch, error)
}

// FeedPublisher emits change events so live caches converge with every write
type FeedPublisher interface {
	Publish(ctx context.Context, event livecache.Event) error
}

// CreateBatchInput carries the intake form for a new batch
type CreateBatchInput struct {
	BatchCode      string
	WarehouseID    uuid.UUID
	Zone           string
	Crop           string
	Variety        string
	Quantity       float64
	Unit           string
	EntryDate      time.Time
	ShelfLifeDays  int
	TargetTemp     float64
	TargetHumidity float64
}

// ReadingsInput carries an environmental sensor update for a batch
type ReadingsInput struct {
	Temperature   *float64
	Humidity      *float64
	EthyleneLevel *string
	CO2Level      *string
	AmmoniaLevel  *string
}
