package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrovault/coldchain-service/internal/core/risk"
)

// Batch statuses
const (
	StatusActive     = "active"
	StatusDispatched = "dispatched"
	StatusExpired    = "expired"
)

// Batch represents a quantity of one crop/variety stored in one warehouse zone
type Batch struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BatchCode     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"batch_code"` // externally visible id
	WarehouseID   uuid.UUID `gorm:"type:uuid;not null;index:idx_batches_warehouse" json:"warehouse_id"`
	Zone          string    `gorm:"type:varchar(100);not null" json:"zone"`
	Crop          string    `gorm:"type:varchar(100);not null" json:"crop"`
	Variety       string    `gorm:"type:varchar(100)" json:"variety,omitempty"`
	Quantity      float64   `gorm:"not null;check:quantity >= 0" json:"quantity"`
	Unit          string    `gorm:"type:varchar(20);not null;default:'kg'" json:"unit"`
	EntryDate     time.Time `gorm:"not null;index:idx_batches_entry_date" json:"entry_date"`
	ShelfLifeDays int       `gorm:"not null;check:shelf_life_days > 0" json:"shelf_life_days"`
	RiskScore     *int      `gorm:"check:risk_score >= 0 AND risk_score <= 100" json:"risk_score,omitempty"`
	Status        string    `gorm:"type:varchar(20);not null;default:'active';index:idx_batches_status" json:"status"`

	// Storage targets fixed at intake, used to derive deviation magnitudes
	TargetTemp     float64 `gorm:"not null;default:0" json:"target_temp"`
	TargetHumidity float64 `gorm:"not null;default:0" json:"target_humidity"`

	// Latest environmental readings, absent until a sensor reports
	Temperature   *float64 `json:"temperature,omitempty"`
	Humidity      *float64 `json:"humidity,omitempty"`
	EthyleneLevel *string  `gorm:"type:varchar(10)" json:"ethylene_level,omitempty"`
	CO2Level      *string  `gorm:"type:varchar(10)" json:"co2_level,omitempty"`
	AmmoniaLevel  *string  `gorm:"type:varchar(10)" json:"ammonia_level,omitempty"`

	// Dispatch metadata
	DispatchDestination *string    `gorm:"type:varchar(255)" json:"dispatch_destination,omitempty"`
	DispatchedAt        *time.Time `json:"dispatched_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Warehouse *Warehouse `gorm:"foreignKey:WarehouseID" json:"warehouse,omitempty"`
}

// TableName specifies the table name for GORM
func (Batch) TableName() string {
	return "batches"
}

// BeforeCreate GORM hook - called before creating a record
func (b *Batch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ValidStatuses returns list of valid batch statuses
func ValidStatuses() []string {
	return []string{
		StatusActive,
		StatusDispatched,
		StatusExpired,
	}
}

// IsValidStatus checks if a status is valid
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// IsExpired reports whether the batch has been marked expired
func (b *Batch) IsExpired() bool {
	return b.Status == StatusExpired
}

// RiskFactors derives the scoring inputs from the batch's stored readings
// at the given evaluation time. Missing readings contribute zero deviation;
// missing gas levels fall back to the model's neutral default.
func (b *Batch) RiskFactors(now time.Time) risk.Factors {
	var tempDeviation, humidityDeviation float64
	if b.Temperature != nil {
		tempDeviation = math.Abs(*b.Temperature - b.TargetTemp)
	}
	if b.Humidity != nil {
		humidityDeviation = math.Abs(*b.Humidity - b.TargetHumidity)
	}

	storageDays := int(now.Sub(b.EntryDate).Hours() / 24)
	if storageDays < 0 {
		storageDays = 0
	}

	return risk.Factors{
		TempDeviation:       tempDeviation,
		HumidityDeviation:   humidityDeviation,
		ElapsedShelfLifePct: risk.ElapsedShelfLifePercent(b.EntryDate, b.ShelfLifeDays, now),
		Ethylene:            gasLevelOrNormal(b.EthyleneLevel),
		CO2:                 gasLevelOrNormal(b.CO2Level),
		Ammonia:             gasLevelPtr(b.AmmoniaLevel),
		StorageDays:         storageDays,
	}
}

func gasLevelOrNormal(level *string) risk.GasLevel {
	if level == nil {
		return risk.GasNormal
	}
	return risk.GasLevel(*level)
}

func gasLevelPtr(level *string) *risk.GasLevel {
	if level == nil {
		return nil
	}
	l := risk.GasLevel(*level)
	return &l
}
