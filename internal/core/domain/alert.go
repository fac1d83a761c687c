package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Alert sources
const (
	AlertSourceEnvironment = "environment"
	AlertSourceOrder       = "order"
)

// Alert severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert represents an unacknowledged condition raised against a warehouse,
// optionally tied to a specific batch
type Alert struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	WarehouseID uuid.UUID  `gorm:"type:uuid;not null;index:idx_alerts_warehouse" json:"warehouse_id"`
	BatchID     *uuid.UUID `gorm:"type:uuid;index:idx_alerts_batch" json:"batch_id,omitempty"`
	Source      string     `gorm:"type:varchar(20);not null;index:idx_alerts_source" json:"source"`
	Severity    string     `gorm:"type:varchar(20);not null;default:'warning'" json:"severity"`
	Message     string     `gorm:"type:text;not null" json:"message"`

	Acknowledged   bool       `gorm:"not null;default:false;index:idx_alerts_acknowledged" json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Warehouse *Warehouse `gorm:"foreignKey:WarehouseID" json:"warehouse,omitempty"`
	Batch     *Batch     `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
}

// TableName specifies the table name for GORM
func (Alert) TableName() string {
	return "alerts"
}

// BeforeCreate GORM hook
func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ValidAlertSources returns list of valid alert sources
func ValidAlertSources() []string {
	return []string{AlertSourceEnvironment, AlertSourceOrder}
}

// IsValidAlertSource checks if an alert source is valid
func IsValidAlertSource(source string) bool {
	for _, s := range ValidAlertSources() {
		if s == source {
			return true
		}
	}
	return false
}
