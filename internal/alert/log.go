package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vpetrenko-dev/order-engine/internal/db"
)

// Record is one low-stock observation. The log is a time series: every
// qualifying decrement appends a new record, repeated crossings included.
type Record struct {
	ID            uuid.UUID `json:"id" db:"id"`
	LotID         uuid.UUID `json:"lot_id" db:"lot_id"`
	ProductID     uuid.UUID `json:"product_id" db:"product_id"`
	WarehouseID   uuid.UUID `json:"warehouse_id" db:"warehouse_id"`
	StockQuantity int       `json:"stock_quantity" db:"stock_quantity"`
	ReorderLevel  int       `json:"reorder_level" db:"reorder_level"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Log is the append-only sink of low-stock records. Append is the only
// write operation; records are never updated or deleted.
type Log struct{}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(ctx context.Context, q db.Querier, rec *Record) error {
	if rec.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("alert: failed to generate record ID: %w", err)
		}
		rec.ID = id
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO low_stock_alerts (id, lot_id, product_id, warehouse_id, stock_quantity, reorder_level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.Exec(ctx, query,
		rec.ID,
		rec.LotID,
		rec.ProductID,
		rec.WarehouseID,
		rec.StockQuantity,
		rec.ReorderLevel,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("alert: failed to append record for lot %s: %w", rec.LotID, err)
	}

	return nil
}

// List returns records newest first, for the reporting surface.
func (l *Log) List(ctx context.Context, q db.Querier, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, lot_id, product_id, warehouse_id, stock_quantity, reorder_level, created_at
		FROM low_stock_alerts
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("alert: failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var rec Record
		err := rows.Scan(
			&rec.ID,
			&rec.LotID,
			&rec.ProductID,
			&rec.WarehouseID,
			&rec.StockQuantity,
			&rec.ReorderLevel,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("alert: failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("alert: error iterating records: %w", err)
	}

	return records, nil
}
