package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAlert_TableName(t *testing.T) {
	alert := Alert{}
	assert.Equal(t, "alerts", alert.TableName())
}

func TestAlert_SourceValidation(t *testing.T) {
	tests := []struct {
		source string
		valid  bool
	}{
		{AlertSourceEnvironment, true},
		{AlertSourceOrder, true},
		{"sensor", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidAlertSource(tt.source))
		})
	}
}

func TestAlert_CreateAndAcknowledge(t *testing.T) {
	db := setupTestDB(t)
	warehouse := createTestWarehouse(t, db)

	alert := &Alert{
		WarehouseID: warehouse.ID,
		Source:      AlertSourceEnvironment,
		Severity:    SeverityCritical,
		Message:     "temperature excursion in zone A1",
	}

	err := db.Create(alert).Error
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, alert.ID)
	assert.False(t, alert.Acknowledged)

	now := time.Now().UTC()
	alert.Acknowledged = true
	alert.AcknowledgedAt = &now
	err = db.Save(alert).Error
	assert.NoError(t, err)

	var count int64
	db.Model(&Alert{}).
		Where("warehouse_id = ? AND acknowledged = ?", warehouse.ID, false).
		Count(&count)
	assert.Equal(t, int64(0), count)
}
