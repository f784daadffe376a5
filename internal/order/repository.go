package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vpetrenko-dev/order-engine/internal/db"
)

var ErrOrderNotFound = errors.New("order not found")

// Repository persists orders and order lines. Header and line inserts take a
// db.Querier so the orchestrator can run them inside one transaction.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) InsertHeader(ctx context.Context, q db.Querier, o *Order) error {
	query := `
		INSERT INTO orders (id, customer_id, status, total_amount, discount_amount, shipping_cost,
		                    payment_method, order_date, shipping_date, delivery_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := q.Exec(ctx, query,
		o.ID,
		o.CustomerID,
		string(o.Status),
		o.TotalAmount,
		o.DiscountAmount,
		o.ShippingCost,
		o.PaymentMethod,
		o.OrderDate,
		o.ShippingDate,
		o.DeliveryDate,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order %s: %w", o.ID, err)
	}
	return nil
}

func (r *Repository) InsertLine(ctx context.Context, q db.Querier, line *OrderLine) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, discount_percent, line_total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.Exec(ctx, query,
		line.ID,
		line.OrderID,
		line.ProductID,
		line.Quantity,
		line.UnitPrice,
		line.DiscountPercent,
		line.LineTotal,
		line.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order item for order %s: %w", line.OrderID, err)
	}
	return nil
}

// GetStatusForUpdate reads the current status under a row lock, so a status
// transition check cannot race with a concurrent update of the same order.
func (r *Repository) GetStatusForUpdate(ctx context.Context, q db.Querier, orderID uuid.UUID) (OrderStatus, error) {
	query := `SELECT status FROM orders WHERE id = $1 FOR UPDATE`

	var status OrderStatus
	err := q.QueryRow(ctx, query, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrOrderNotFound
		}
		return "", fmt.Errorf("repository: failed to select status for order %s: %w", orderID, err)
	}
	return status, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, q db.Querier, orderID uuid.UUID, newStatus OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2
	`
	cmdTag, err := q.Exec(ctx, query, string(newStatus), orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to update status for order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, q db.Querier, orderID uuid.UUID) (*Order, error) {
	headerQuery := `
		SELECT id, customer_id, status, total_amount, discount_amount, shipping_cost,
		       payment_method, order_date, shipping_date, delivery_date, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o Order
	err := q.QueryRow(ctx, headerQuery, orderID).Scan(
		&o.ID,
		&o.CustomerID,
		&o.Status,
		&o.TotalAmount,
		&o.DiscountAmount,
		&o.ShippingCost,
		&o.PaymentMethod,
		&o.OrderDate,
		&o.ShippingDate,
		&o.DeliveryDate,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", orderID, err)
	}

	lines, err := r.getLines(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines

	return &o, nil
}

func (r *Repository) getLines(ctx context.Context, q db.Querier, orderID uuid.UUID) ([]OrderLine, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price, discount_percent, line_total, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	lines := make([]OrderLine, 0)
	for rows.Next() {
		var line OrderLine
		err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProductID,
			&line.Quantity,
			&line.UnitPrice,
			&line.DiscountPercent,
			&line.LineTotal,
			&line.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order %s: %w", orderID, err)
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order %s: %w", orderID, err)
	}

	return lines, nil
}

func (r *Repository) GetByCustomerID(ctx context.Context, q db.Querier, customerID uuid.UUID) ([]Order, error) {
	headerQuery := `
		SELECT id, customer_id, status, total_amount, discount_amount, shipping_cost,
		       payment_method, order_date, shipping_date, delivery_date, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`

	rows, err := q.Query(ctx, headerQuery, customerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var o Order
		err := rows.Scan(
			&o.ID,
			&o.CustomerID,
			&o.Status,
			&o.TotalAmount,
			&o.DiscountAmount,
			&o.ShippingCost,
			&o.PaymentMethod,
			&o.OrderDate,
			&o.ShippingDate,
			&o.DeliveryDate,
			&o.CreatedAt,
			&o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for customer %s: %w", customerID, err)
		}
		orders = append(orders, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders for customer %s: %w", customerID, err)
	}

	for i := range orders {
		lines, err := r.getLines(ctx, q, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}

	return orders, nil
}
