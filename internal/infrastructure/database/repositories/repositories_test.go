package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/agrovault/coldchain-service/internal/core/domain"
	apperrors "github.com/agrovault/coldchain-service/internal/pkg/errors"
)

// setupTestDB creates a PostgreSQL testcontainer for testing
func setupTestDB(t *testing.T) *gorm.DB {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(pgdriver.Open(connStr), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&domain.Warehouse{},
		&domain.Batch{},
		&domain.Alert{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func createWarehouse(t *testing.T, db *gorm.DB, name string) *domain.Warehouse {
	warehouse := &domain.Warehouse{Name: name, Location: "Dock 4", Capacity: 50000}
	require.NoError(t, db.Create(warehouse).Error)
	return warehouse
}

func newBatch(warehouseID uuid.UUID, code string, entry time.Time, status string) *domain.Batch {
	return &domain.Batch{
		ID:            uuid.New(),
		BatchCode:     code,
		WarehouseID:   warehouseID,
		Zone:          "A1",
		Crop:          "Tomato",
		Variety:       "Roma",
		Quantity:      100,
		Unit:          "kg",
		EntryDate:     entry,
		ShelfLifeDays: 7,
		Status:        status,
	}
}

func TestBatchRepository_ListCurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewBatchRepository(db, nil)

	wh1 := createWarehouse(t, db, "North")
	wh2 := createWarehouse(t, db, "South")

	base := time.Now().UTC().Truncate(time.Second)
	older := newBatch(wh1.ID, "B-OLD", base.Add(-2*time.Hour), domain.StatusActive)
	newer := newBatch(wh1.ID, "B-NEW", base, domain.StatusActive)
	dispatched := newBatch(wh1.ID, "B-DISP", base.Add(-time.Hour), domain.StatusDispatched)
	expired := newBatch(wh1.ID, "B-EXP", base.Add(-3*time.Hour), domain.StatusExpired)
	other := newBatch(wh2.ID, "B-OTHER", base.Add(-time.Minute), domain.StatusActive)

	for _, b := range []*domain.Batch{older, newer, dispatched, expired, other} {
		require.NoError(t, repo.Create(ctx, b))
	}

	t.Run("unrestricted excludes expired, newest first", func(t *testing.T) {
		batches, err := repo.ListCurrent(ctx, nil)
		require.NoError(t, err)

		codes := make([]string, len(batches))
		for i, b := range batches {
			codes[i] = b.BatchCode
		}
		assert.Equal(t, []string{"B-NEW", "B-OTHER", "B-DISP", "B-OLD"}, codes)
	})

	t.Run("warehouse filter applied server-side", func(t *testing.T) {
		batches, err := repo.ListCurrent(ctx, &wh2.ID)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, "B-OTHER", batches[0].BatchCode)
	})
}

func TestBatchRepository_GetByCode(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewBatchRepository(db, nil)
	wh := createWarehouse(t, db, "North")

	batch := newBatch(wh.ID, "B-001", time.Now().UTC(), domain.StatusActive)
	require.NoError(t, repo.Create(ctx, batch))

	found, err := repo.GetByCode(ctx, "B-001")
	require.NoError(t, err)
	assert.Equal(t, batch.ID, found.ID)

	_, err = repo.GetByCode(ctx, "B-404")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRecordNotFound))
}

func TestBatchRepository_ListActiveExpiredAsOf(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewBatchRepository(db, nil)
	wh := createWarehouse(t, db, "North")

	now := time.Now().UTC()
	stale := newBatch(wh.ID, "B-STALE", now.AddDate(0, 0, -10), domain.StatusActive)
	fresh := newBatch(wh.ID, "B-FRESH", now.AddDate(0, 0, -1), domain.StatusActive)
	// Past shelf life but already marked, must not resurface
	marked := newBatch(wh.ID, "B-MARKED", now.AddDate(0, 0, -10), domain.StatusExpired)

	for _, b := range []*domain.Batch{stale, fresh, marked} {
		require.NoError(t, repo.Create(ctx, b))
	}

	batches, err := repo.ListActiveExpiredAsOf(ctx, now)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "B-STALE", batches[0].BatchCode)
}

func TestAlertRepository_UnacknowledgedCount(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewAlertRepository(db, nil)
	wh := createWarehouse(t, db, "North")
	otherWh := createWarehouse(t, db, "South")

	alerts := []*domain.Alert{
		{ID: uuid.New(), WarehouseID: wh.ID, Source: domain.AlertSourceEnvironment, Severity: domain.SeverityWarning, Message: "temp spike"},
		{ID: uuid.New(), WarehouseID: wh.ID, Source: domain.AlertSourceEnvironment, Severity: domain.SeverityCritical, Message: "humidity out of band"},
		{ID: uuid.New(), WarehouseID: wh.ID, Source: domain.AlertSourceOrder, Severity: domain.SeverityInfo, Message: "rush order"},
		{ID: uuid.New(), WarehouseID: otherWh.ID, Source: domain.AlertSourceEnvironment, Severity: domain.SeverityWarning, Message: "elsewhere"},
	}
	for _, a := range alerts {
		require.NoError(t, repo.Create(ctx, a))
	}

	count, err := repo.UnacknowledgedCount(ctx, domain.AlertSourceEnvironment, wh.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.UnacknowledgedCount(ctx, domain.AlertSourceOrder, wh.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Acknowledging drops the count; a second acknowledge is a no-op
	acked, err := repo.Acknowledge(ctx, alerts[0].ID)
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged)
	require.NotNil(t, acked.AcknowledgedAt)

	again, err := repo.Acknowledge(ctx, alerts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, acked.AcknowledgedAt.Unix(), again.AcknowledgedAt.Unix())

	count, err = repo.UnacknowledgedCount(ctx, domain.AlertSourceEnvironment, wh.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAlertSources(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewAlertRepository(db, nil)
	wh := createWarehouse(t, db, "North")

	require.NoError(t, repo.Create(ctx, &domain.Alert{
		ID: uuid.New(), WarehouseID: wh.ID,
		Source: domain.AlertSourceEnvironment, Severity: domain.SeverityWarning, Message: "temp spike",
	}))

	env := NewEnvironmentAlertSource(repo)
	order := NewOrderAlertSource(repo)

	assert.Equal(t, domain.AlertSourceEnvironment, env.Name())
	assert.Equal(t, domain.AlertSourceOrder, order.Name())

	count, err := env.UnacknowledgedCount(ctx, wh.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = order.UnacknowledgedCount(ctx, wh.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
