package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/vpetrenko-dev/order-engine/internal/db"
)

var (
	ErrLotNotFound = errors.New("inventory lot not found")
	ErrLotExists   = errors.New("inventory lot for this product and warehouse already exists")
)

// Ledger owns all mutations of inventory lots.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Allocate decrements stock for one order line. It picks the eligible lot
// with the lowest id whose current quantity covers the full requested
// amount, locks it, and decrements it in a single statement, so the
// read-check-write cannot race with a concurrent allocation against the
// same lot.
//
// When no single lot holds enough stock the ledger is left untouched and the
// result reports Allocated=false. That is not an error: the caller records
// the order line either way and surfaces the shortfall as a partial
// allocation.
func (l *Ledger) Allocate(ctx context.Context, q db.Querier, productID uuid.UUID, quantity int) (AllocationResult, error) {
	if quantity <= 0 {
		return AllocationResult{}, fmt.Errorf("ledger: allocation quantity must be positive, got %d", quantity)
	}

	query := `
		UPDATE inventory_lots AS l
		SET stock_quantity = l.stock_quantity - $2, updated_at = $3
		FROM (
			SELECT id
			FROM inventory_lots
			WHERE product_id = $1 AND stock_quantity >= $2
			ORDER BY id
			LIMIT 1
			FOR UPDATE
		) AS pick
		WHERE l.id = pick.id
		RETURNING l.id, l.warehouse_id, l.stock_quantity, l.reorder_level
	`

	var res AllocationResult
	err := q.QueryRow(ctx, query, productID, quantity, time.Now().UTC()).Scan(
		&res.LotID,
		&res.WarehouseID,
		&res.StockQuantity,
		&res.ReorderLevel,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Warn().
				Stringer("product_id", productID).
				Int("quantity", quantity).
				Msg("ledger: no single lot can satisfy allocation, stock left unchanged")
			return AllocationResult{Allocated: false}, nil
		}
		return AllocationResult{}, fmt.Errorf("ledger: failed to allocate %d of product %s: %w", quantity, productID, err)
	}

	res.Allocated = true
	res.LowStock = res.StockQuantity <= res.ReorderLevel

	return res, nil
}

// Restock adds quantity to a lot and refreshes its last-restocked date.
func (l *Ledger) Restock(ctx context.Context, q db.Querier, lotID uuid.UUID, quantity int) (*Lot, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("ledger: restock quantity must be positive, got %d", quantity)
	}

	query := `
		UPDATE inventory_lots
		SET stock_quantity = stock_quantity + $2, last_restocked_date = $3, updated_at = $3
		WHERE id = $1
		RETURNING id, product_id, warehouse_id, stock_quantity, reorder_level, last_restocked_date, created_at, updated_at
	`

	var lot Lot
	now := time.Now().UTC()
	err := q.QueryRow(ctx, query, lotID, quantity, now).Scan(
		&lot.ID,
		&lot.ProductID,
		&lot.WarehouseID,
		&lot.StockQuantity,
		&lot.ReorderLevel,
		&lot.LastRestockedDate,
		&lot.CreatedAt,
		&lot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLotNotFound
		}
		return nil, fmt.Errorf("ledger: failed to restock lot %s: %w", lotID, err)
	}

	return &lot, nil
}

// CreateLot registers a new (product, warehouse) lot.
func (l *Ledger) CreateLot(ctx context.Context, q db.Querier, lot *Lot) error {
	if lot.StockQuantity < 0 {
		return fmt.Errorf("ledger: stock quantity cannot be negative, got %d", lot.StockQuantity)
	}
	if lot.ReorderLevel < 0 {
		return fmt.Errorf("ledger: reorder level cannot be negative, got %d", lot.ReorderLevel)
	}

	if lot.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("ledger: failed to generate lot ID: %w", err)
		}
		lot.ID = id
	}

	now := time.Now().UTC()
	lot.CreatedAt = now
	lot.UpdatedAt = now

	query := `
		INSERT INTO inventory_lots (id, product_id, warehouse_id, stock_quantity, reorder_level, last_restocked_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.Exec(ctx, query,
		lot.ID,
		lot.ProductID,
		lot.WarehouseID,
		lot.StockQuantity,
		lot.ReorderLevel,
		lot.LastRestockedDate,
		lot.CreatedAt,
		lot.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrLotExists
		}
		return fmt.Errorf("ledger: failed to insert lot: %w", err)
	}

	return nil
}

// GetLotsByProduct returns all lots for a product ordered by id, the same
// order Allocate considers them in.
func (l *Ledger) GetLotsByProduct(ctx context.Context, q db.Querier, productID uuid.UUID) ([]Lot, error) {
	query := `
		SELECT id, product_id, warehouse_id, stock_quantity, reorder_level, last_restocked_date, created_at, updated_at
		FROM inventory_lots
		WHERE product_id = $1
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to query lots for product %s: %w", productID, err)
	}
	defer rows.Close()

	lots := make([]Lot, 0)
	for rows.Next() {
		var lot Lot
		err := rows.Scan(
			&lot.ID,
			&lot.ProductID,
			&lot.WarehouseID,
			&lot.StockQuantity,
			&lot.ReorderLevel,
			&lot.LastRestockedDate,
			&lot.CreatedAt,
			&lot.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ledger: failed to scan lot for product %s: %w", productID, err)
		}
		lots = append(lots, lot)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: error iterating lots for product %s: %w", productID, err)
	}

	return lots, nil
}
