package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMinThreshold applies to stock rows that never had a threshold set.
const DefaultMinThreshold = 5

type InventoryLogType string

const (
	InventoryLogAllocation InventoryLogType = "allocation"
	InventoryLogRestore    InventoryLogType = "restore"
	InventoryLogAdjustment InventoryLogType = "adjustment"
	InventoryLogStocktake  InventoryLogType = "stocktake"
	InventoryLogSync       InventoryLogType = "sync"
	InventoryLogImport     InventoryLogType = "import"
	InventoryLogExport     InventoryLogType = "export"
)

type Warehouse struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Code      string    `gorm:"uniqueIndex;not null" json:"code"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// InventoryStock is the quantity of one variant held by one warehouse.
type InventoryStock struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WarehouseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_warehouse_variant" json:"warehouse_id"`
	VariantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_warehouse_variant;index" json:"variant_id"`
	Quantity     int       `gorm:"not null;default:0;check:chk_inventory_stocks_quantity,quantity >= 0" json:"quantity"`
	MinThreshold *int      `json:"min_threshold,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Threshold returns the low-stock threshold, falling back to DefaultMinThreshold.
func (s *InventoryStock) Threshold() int {
	if s.MinThreshold == nil {
		return DefaultMinThreshold
	}
	return *s.MinThreshold
}

// InventoryLog is an append-only audit record of a stock mutation.
type InventoryLog struct {
	ID               uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WarehouseID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"warehouse_id"`
	VariantID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"variant_id"`
	UserID           *uuid.UUID       `gorm:"type:uuid" json:"user_id,omitempty"`
	PreviousQuantity int              `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int              `gorm:"not null" json:"new_quantity"`
	QuantityChange   int              `gorm:"not null" json:"quantity_change"`
	Type             InventoryLogType `gorm:"type:varchar(20);not null;index" json:"type"`
	Reason           string           `json:"reason"`
	CreatedAt        time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
}

// StockLevel is one warehouse entry of a batch sync.
type StockLevel struct {
	WarehouseID  uuid.UUID `json:"warehouse_id" binding:"required"`
	Quantity     int       `json:"quantity" binding:"gte=0"`
	MinThreshold *int      `json:"min_threshold,omitempty"`
}

type InventoryLogFilter struct {
	VariantID   uuid.UUID
	WarehouseID uuid.UUID
	Type        InventoryLogType
	Page        int
	PageSize    int
}

type AdjustStockRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

type UpsertStockRequest struct {
	VariantID    uuid.UUID `json:"variant_id" binding:"required"`
	WarehouseID  uuid.UUID `json:"warehouse_id" binding:"required"`
	Quantity     int       `json:"quantity" binding:"gte=0"`
	MinThreshold *int      `json:"min_threshold,omitempty"`
	Reason       string    `json:"reason"`
}

type SyncStockRequest struct {
	Levels []StockLevel `json:"levels" binding:"required,dive"`
	Reason string       `json:"reason"`
}

type TransferStockRequest struct {
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	From      uuid.UUID `json:"from_warehouse_id" binding:"required"`
	To        uuid.UUID `json:"to_warehouse_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
	Reason    string    `json:"reason"`
}
