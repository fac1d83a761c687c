package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Warehouse represents a named storage facility
type Warehouse struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name     string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Location string    `gorm:"type:varchar(255)" json:"location"`
	Capacity float64   `gorm:"not null;default:0" json:"capacity"` // in storage units (kg)

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Batches []Batch `gorm:"foreignKey:WarehouseID" json:"batches,omitempty"`
}

// TableName specifies the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// BeforeCreate GORM hook
func (w *Warehouse) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
