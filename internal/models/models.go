package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// DeliveryType is the channel of service fulfilment
type DeliveryType string

const (
	DeliveryInPerson DeliveryType = "IN_PERSON"
	DeliveryShipping DeliveryType = "SHIPPING"
)

// MaintenanceStatus is the lifecycle state of a maintenance visit
type MaintenanceStatus string

const (
	MaintenancePending   MaintenanceStatus = "PENDING"
	MaintenanceCompleted MaintenanceStatus = "COMPLETED"
	MaintenanceCancelled MaintenanceStatus = "CANCELLED"
)

// WorkOrderStatus is the lifecycle state of a work order.
// Valid transitions: DRAFT -> GENERATED -> CANCELLED. DRAFT may be deleted.
type WorkOrderStatus string

const (
	WorkOrderDraft     WorkOrderStatus = "DRAFT"
	WorkOrderGenerated WorkOrderStatus = "GENERATED"
	WorkOrderCancelled WorkOrderStatus = "CANCELLED"
)

// CanTransitionTo reports whether a forward transition is legal
func (s WorkOrderStatus) CanTransitionTo(next WorkOrderStatus) bool {
	switch s {
	case WorkOrderDraft:
		return next == WorkOrderGenerated
	case WorkOrderGenerated:
		return next == WorkOrderCancelled
	default:
		return false
	}
}

// StockStatus is the derived inventory level classification
type StockStatus string

const (
	StockLow     StockStatus = "LOW"
	StockWarning StockStatus = "WARNING"
	StockOK      StockStatus = "OK"
)

// IncidentStatus is the lifecycle state of an incident
type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "OPEN"
	IncidentInProgress IncidentStatus = "IN_PROGRESS"
	IncidentResolved   IncidentStatus = "RESOLVED"
)

// NotificationStatus is the delivery state of an outbound message
type NotificationStatus string

const (
	NotificationQueued NotificationStatus = "QUEUED"
	NotificationSent   NotificationStatus = "SENT"
	NotificationFailed NotificationStatus = "FAILED"
)

// Client represents a water-purification service client
type Client struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
	Phone     string         `gorm:"not null;index" json:"phone"`
	Email     *string        `json:"email"`
	Address   string         `json:"address"`
	District  string         `gorm:"index" json:"district"`
	Active    bool           `gorm:"not null;default:true" json:"active"`
	Notes     *string        `json:"notes"`
	Contracts []Contract     `gorm:"foreignKey:ClientID" json:"-"`
}

// Contract links a client to a service plan
type Contract struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	ClientID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	PlanCode     string         `gorm:"not null" json:"plan_code"`
	DeliveryType DeliveryType   `gorm:"not null" json:"delivery_type"`
	StartDate    time.Time      `gorm:"not null" json:"start_date"`
	Active       bool           `gorm:"not null;default:true" json:"active"`
	Client       Client         `gorm:"foreignKey:ClientID" json:"-"`
}

// Technician represents a field technician
type Technician struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
	Phone     string         `json:"phone"`
	Active    bool           `gorm:"not null;default:true" json:"active"`
}

// Maintenance represents one service visit in a client's history.
// CycleNumber is the ordinal position (1, 2, 3, ...) used by the cycle
// resolver to derive the effective 6/12/18/24-month interval.
type Maintenance struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt    `gorm:"index" json:"-"`
	ClientID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"client_id"`
	ContractID    uuid.UUID         `gorm:"type:uuid;not null" json:"contract_id"`
	TechnicianID  *uuid.UUID        `gorm:"type:uuid" json:"technician_id"`
	WorkOrderID   *uuid.UUID        `gorm:"type:uuid;index" json:"work_order_id"`
	CycleNumber   int               `gorm:"not null;default:1" json:"cycle_number"`
	Status        MaintenanceStatus `gorm:"not null;default:PENDING;index" json:"status"`
	DeliveryType  DeliveryType      `gorm:"not null" json:"delivery_type"`
	ScheduledDate time.Time         `gorm:"not null;index" json:"scheduled_date"`
	CompletedAt   *time.Time        `json:"completed_at"`
	Notes         *string           `json:"notes"`
	Client        Client            `gorm:"foreignKey:ClientID" json:"-"`
	Contract      Contract          `gorm:"foreignKey:ContractID" json:"-"`
	Technician    *Technician       `gorm:"foreignKey:TechnicianID" json:"-"`
}

// Filter represents a filter SKU. The SKU is immutable once referenced by
// package items or usage records; deletion is blocked while referenced.
type Filter struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	SKU       string         `gorm:"not null;uniqueIndex" json:"sku"`
	Name      string         `gorm:"not null" json:"name"`
	Category  string         `json:"category"`
	UnitCost  float64        `gorm:"not null;default:0" json:"unit_cost"`
}

// FilterPackage is a named bundle of filter SKUs and quantities required for
// one maintenance visit under a given plan and cycle
type FilterPackage struct {
	ID        uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt      `gorm:"index" json:"-"`
	Name      string              `gorm:"not null;uniqueIndex" json:"name"`
	Items     []FilterPackageItem `gorm:"foreignKey:PackageID" json:"items"`
}

// FilterPackageItem is one SKU/quantity pair inside a package
type FilterPackageItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PackageID uuid.UUID `gorm:"type:uuid;not null;index" json:"package_id"`
	FilterID  uuid.UUID `gorm:"type:uuid;not null" json:"filter_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Filter    Filter    `gorm:"foreignKey:FilterID" json:"filter"`
}

// PlanPackageMapping maps (plan code, effective cycle months) to a package.
// At most one package per pair.
type PlanPackageMapping struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	PlanCode         string         `gorm:"not null;uniqueIndex:idx_plan_cycle" json:"plan_code"`
	MaintenanceCycle int            `gorm:"not null;uniqueIndex:idx_plan_cycle" json:"maintenance_cycle"`
	PackageID        uuid.UUID      `gorm:"type:uuid;not null" json:"package_id"`
	Package          FilterPackage  `gorm:"foreignKey:PackageID" json:"package"`
}

// Inventory is a per-location stock record for a filter. Multiple location
// rows may exist per filter; total stock is the sum across locations.
type Inventory struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	FilterID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_filter_location" json:"filter_id"`
	Location  string         `gorm:"not null;uniqueIndex:idx_filter_location" json:"location"`
	Quantity  int            `gorm:"not null;default:0" json:"quantity"`
	MinStock  int            `gorm:"not null;default:0" json:"min_stock"`
	Primary   bool           `gorm:"column:is_primary;not null;default:false" json:"primary"`
	Filter    Filter         `gorm:"foreignKey:FilterID" json:"-"`
}

// Status derives the stock level classification for this location
func (i Inventory) Status() StockStatus {
	switch {
	case i.Quantity < i.MinStock:
		return StockLow
	case i.Quantity < 2*i.MinStock:
		return StockWarning
	default:
		return StockOK
	}
}

// WorkOrder groups pending maintenances sharing (year, month, delivery type)
// to bulk-deduct filter inventory. FilterSummary is the SKU -> total quantity
// map computed at creation time and stored as JSON.
type WorkOrder struct {
	ID            uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt         `gorm:"index" json:"-"`
	Month         int                    `gorm:"not null" json:"month"`
	Year          int                    `gorm:"not null" json:"year"`
	DeliveryType  DeliveryType           `gorm:"not null" json:"delivery_type"`
	Status        WorkOrderStatus        `gorm:"not null;default:DRAFT" json:"status"`
	FilterSummary []byte                 `gorm:"type:json" json:"filter_summary"`
	GeneratedAt   *time.Time             `json:"generated_at"`
	CancelledAt   *time.Time             `json:"cancelled_at"`
	Usages        []WorkOrderFilterUsage `gorm:"foreignKey:WorkOrderID" json:"-"`
}

// WorkOrderFilterUsage records the quantity deducted for one filter when a
// work order was confirmed. RestoredAt is stamped once the deduction has been
// reversed; a usage row is restored at most once.
type WorkOrderFilterUsage struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	WorkOrderID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"work_order_id"`
	FilterID     uuid.UUID  `gorm:"type:uuid;not null" json:"filter_id"`
	QuantityUsed int        `gorm:"not null" json:"quantity_used"`
	RestoredAt   *time.Time `json:"restored_at"`
	Filter       Filter     `gorm:"foreignKey:FilterID" json:"-"`
}

// Incident tracks a reported problem with a client's equipment or service
type Incident struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	ClientID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	MaintenanceID *uuid.UUID     `gorm:"type:uuid" json:"maintenance_id"`
	Severity      string         `gorm:"not null;default:MEDIUM" json:"severity"`
	Status        IncidentStatus `gorm:"not null;default:OPEN;index" json:"status"`
	Description   string         `gorm:"not null" json:"description"`
	Resolution    *string        `json:"resolution"`
	ResolvedAt    *time.Time     `json:"resolved_at"`
	Client        Client         `gorm:"foreignKey:ClientID" json:"-"`
}

// Notification is the delivery log for an outbound WhatsApp message
type Notification struct {
	ID                uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt         time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	ClientID          *uuid.UUID         `gorm:"type:uuid;index" json:"client_id"`
	Phone             string             `gorm:"not null" json:"phone"`
	Body              string             `gorm:"not null" json:"body"`
	Channel           string             `gorm:"not null;default:WHATSAPP" json:"channel"`
	Status            NotificationStatus `gorm:"not null;default:QUEUED;index" json:"status"`
	Attempts          int                `gorm:"not null;default:0" json:"attempts"`
	SentAt            *time.Time         `json:"sent_at"`
	ProviderMessageID *string            `json:"provider_message_id"`
	LastError         *string            `json:"last_error"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Client{},
		&Contract{},
		&Technician{},
		&Maintenance{},
		&Filter{},
		&FilterPackage{},
		&FilterPackageItem{},
		&PlanPackageMapping{},
		&Inventory{},
		&WorkOrder{},
		&WorkOrderFilterUsage{},
		&Incident{},
		&Notification{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
