package inventory

import (
	"time"

	"github.com/gofrs/uuid"
)

// Lot is the stock record for one product at one warehouse. The
// (product, warehouse) pair is unique; the ledger is the only writer of
// StockQuantity.
type Lot struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	ProductID         uuid.UUID  `json:"product_id" db:"product_id"`
	WarehouseID       uuid.UUID  `json:"warehouse_id" db:"warehouse_id"`
	StockQuantity     int        `json:"stock_quantity" db:"stock_quantity"`
	ReorderLevel      int        `json:"reorder_level" db:"reorder_level"`
	LastRestockedDate *time.Time `json:"last_restocked_date,omitempty" db:"last_restocked_date"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// AllocationResult reports the outcome of one allocation attempt. When no
// single lot held enough stock, Allocated is false and the remaining fields
// are zero values.
type AllocationResult struct {
	Allocated     bool      `json:"allocated"`
	LotID         uuid.UUID `json:"lot_id,omitempty"`
	WarehouseID   uuid.UUID `json:"warehouse_id,omitempty"`
	StockQuantity int       `json:"stock_quantity"`
	ReorderLevel  int       `json:"reorder_level"`
	LowStock      bool      `json:"low_stock"`
}
