package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vpetrenko-dev/order-engine/internal/alert"
	"github.com/vpetrenko-dev/order-engine/internal/customer"
	"github.com/vpetrenko-dev/order-engine/internal/inventory"
)

var (
	ErrStatusAlreadySet        = errors.New("status is already set to the desired value")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// submissionState tags the stages of one order submission. The pipeline is a
// fixed sequence; Rejected is reachable only from Validating.
type submissionState string

const (
	stateValidating       submissionState = "validating"
	statePersistingHeader submissionState = "persisting_header"
	statePersistingLines  submissionState = "persisting_lines"
	stateAllocating       submissionState = "allocating"
	stateAlerting         submissionState = "alerting"
	stateAggregating      submissionState = "aggregating"
	stateDone             submissionState = "done"
	stateRejected         submissionState = "rejected"
)

// SubmissionLine is one requested order line.
type SubmissionLine struct {
	ProductID       uuid.UUID
	Quantity        int
	UnitPrice       float64
	DiscountPercent float64
}

// Submission is a candidate order: header fields plus lines in the order the
// client sent them. Line totals and the order total are computed here, not
// trusted from the client.
type Submission struct {
	CustomerID     uuid.UUID
	DiscountAmount float64
	ShippingCost   float64
	PaymentMethod  string
	Lines          []SubmissionLine
}

// LineAllocation pairs a persisted line with its stock allocation outcome.
type LineAllocation struct {
	Line       OrderLine                  `json:"line"`
	Allocation inventory.AllocationResult `json:"allocation"`
}

// SubmissionResult is what one completed submission produced: the persisted
// order, the per-line allocation outcomes, any low-stock alerts appended,
// and the customer's refreshed aggregate. PartialAllocation is true when at
// least one line could not be covered by a single lot; the order is still
// recorded in that case, the ledger just stays unchanged for that line.
type SubmissionResult struct {
	Order             *Order             `json:"order"`
	Allocations       []LineAllocation   `json:"allocations"`
	PartialAllocation bool               `json:"partial_allocation"`
	Alerts            []alert.Record     `json:"alerts,omitempty"`
	Customer          *customer.Customer `json:"customer"`
}

type Service interface {
	SubmitOrder(ctx context.Context, sub *Submission) (*SubmissionResult, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) (*customer.Customer, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrdersByCustomerID(ctx context.Context, customerID uuid.UUID) ([]Order, error)
}

// service sequences the consistency pipeline. It holds no state between
// submissions; every call runs against the current rows.
type service struct {
	pool      *pgxpool.Pool
	orders    *Repository
	ledger    *inventory.Ledger
	alerts    *alert.Log
	spend     *customer.Aggregator
	publisher alert.Publisher // optional, may be nil
}

func NewService(pool *pgxpool.Pool, orders *Repository, ledger *inventory.Ledger, alerts *alert.Log, spend *customer.Aggregator, publisher alert.Publisher) Service {
	return &service{
		pool:      pool,
		orders:    orders,
		ledger:    ledger,
		alerts:    alerts,
		spend:     spend,
		publisher: publisher,
	}
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// buildOrder assembles the order header and lines from a submission,
// computing line totals and the order total.
func buildOrder(sub *Submission) (*Order, error) {
	now := time.Now().UTC()

	o := &Order{
		CustomerID:     sub.CustomerID,
		Status:         StatusPending,
		DiscountAmount: sub.DiscountAmount,
		ShippingCost:   sub.ShippingCost,
		PaymentMethod:  sub.PaymentMethod,
		OrderDate:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
		Lines:          make([]OrderLine, 0, len(sub.Lines)),
	}

	subtotal := 0.0
	for i, reqLine := range sub.Lines {
		if reqLine.ProductID == uuid.Nil {
			return nil, &ValidationError{Field: fmt.Sprintf("lines[%d].product_id", i), Reason: "is required"}
		}
		if reqLine.Quantity <= 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("lines[%d].quantity", i), Reason: fmt.Sprintf("must be positive, got %d", reqLine.Quantity)}
		}
		if reqLine.UnitPrice < 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("lines[%d].unit_price", i), Reason: fmt.Sprintf("must be non-negative, got %.2f", reqLine.UnitPrice)}
		}
		if reqLine.DiscountPercent < 0 || reqLine.DiscountPercent > 100 {
			return nil, &ValidationError{Field: fmt.Sprintf("lines[%d].discount_percent", i), Reason: fmt.Sprintf("must be between 0 and 100, got %.2f", reqLine.DiscountPercent)}
		}

		lineTotal := roundMoney(reqLine.UnitPrice * float64(reqLine.Quantity) * (1 - reqLine.DiscountPercent/100))
		subtotal += lineTotal

		o.Lines = append(o.Lines, OrderLine{
			ProductID:       reqLine.ProductID,
			Quantity:        reqLine.Quantity,
			UnitPrice:       reqLine.UnitPrice,
			DiscountPercent: reqLine.DiscountPercent,
			LineTotal:       lineTotal,
			CreatedAt:       now,
		})
	}

	o.TotalAmount = roundMoney(subtotal + sub.ShippingCost - sub.DiscountAmount)

	return o, nil
}

// SubmitOrder runs the full consistency pipeline for one submission as one
// unit of work: validate, persist the header, then per line persist and
// allocate, append a low-stock alert when a decrement lands at or below the
// reorder level, and finally recompute the customer aggregate. Everything
// after validation happens inside a single transaction; a failure at any
// step rolls the whole submission back. Alerts are published to the broker
// only after the transaction commits.
func (s *service) SubmitOrder(ctx context.Context, sub *Submission) (*SubmissionResult, error) {
	result, err := s.submitOrder(ctx, sub)
	if err != nil {
		return nil, err
	}
	s.publishAlerts(ctx, result.Alerts)
	return result, nil
}

func (s *service) submitOrder(ctx context.Context, sub *Submission) (result *SubmissionResult, err error) {
	state := stateValidating

	if sub.CustomerID == uuid.Nil {
		return nil, &ValidationError{Field: "customer_id", Reason: "is required"}
	}
	if len(sub.Lines) == 0 {
		return nil, &ValidationError{Field: "lines", Reason: "order must contain at least one line"}
	}
	if sub.ShippingCost < 0 {
		return nil, &ValidationError{Field: "shipping_cost", Reason: fmt.Sprintf("must be non-negative, got %.2f", sub.ShippingCost)}
	}

	o, err := buildOrder(sub)
	if err != nil {
		return nil, err
	}

	if err = ValidateHeader(o); err != nil {
		log.Warn().
			Stringer("customer_id", sub.CustomerID).
			Str("state", string(stateRejected)).
			Err(err).
			Msg("service: order submission rejected")
		return nil, err
	}

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order ID: %w", err)
	}
	o.ID = orderID

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Stringer("order_id", orderID).Msg("Panic recovered during SubmitOrder, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", orderID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			log.Warn().Err(err).Stringer("order_id", orderID).Str("state", string(state)).Msg("Transaction for SubmitOrder failed, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", orderID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				log.Error().Err(commitErr).Stringer("order_id", orderID).Msg("Failed to commit transaction")
				err = fmt.Errorf("service: failed to commit transaction: %w", commitErr)
				result = nil
			}
		}
	}()

	state = statePersistingHeader
	if err = s.orders.InsertHeader(ctx, tx, o); err != nil {
		return nil, err
	}

	allocations := make([]LineAllocation, 0, len(o.Lines))
	emitted := make([]alert.Record, 0)
	partial := false

	// Lines are processed in submission order.
	for i := range o.Lines {
		line := &o.Lines[i]

		state = statePersistingLines
		lineID, genErr := uuid.NewV4()
		if genErr != nil {
			err = fmt.Errorf("service: failed to generate order line ID: %w", genErr)
			return nil, err
		}
		line.ID = lineID
		line.OrderID = orderID

		if err = s.orders.InsertLine(ctx, tx, line); err != nil {
			return nil, err
		}

		state = stateAllocating
		var res inventory.AllocationResult
		res, err = s.ledger.Allocate(ctx, tx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}

		if !res.Allocated {
			partial = true
		}

		if res.Allocated && res.LowStock {
			state = stateAlerting
			rec := alert.Record{
				LotID:         res.LotID,
				ProductID:     line.ProductID,
				WarehouseID:   res.WarehouseID,
				StockQuantity: res.StockQuantity,
				ReorderLevel:  res.ReorderLevel,
			}
			if err = s.alerts.Append(ctx, tx, &rec); err != nil {
				return nil, err
			}
			emitted = append(emitted, rec)
		}

		allocations = append(allocations, LineAllocation{Line: *line, Allocation: res})
	}

	state = stateAggregating
	cust, err := s.spend.Recompute(ctx, tx, o.CustomerID)
	if err != nil {
		return nil, err
	}

	state = stateDone
	result = &SubmissionResult{
		Order:             o,
		Allocations:       allocations,
		PartialAllocation: partial,
		Alerts:            emitted,
		Customer:          cust,
	}

	log.Info().
		Stringer("order_id", orderID).
		Stringer("customer_id", o.CustomerID).
		Int("lines", len(o.Lines)).
		Int("alerts", len(emitted)).
		Bool("partial_allocation", partial).
		Msg("service: order submitted")

	return result, nil
}

// publishAlerts fans committed alert records out to the broker. Best effort:
// a publish failure is logged, never propagated.
func (s *service) publishAlerts(ctx context.Context, records []alert.Record) {
	if s.publisher == nil {
		return
	}
	for _, rec := range records {
		if err := s.publisher.Publish(ctx, rec); err != nil {
			log.Error().Err(err).Stringer("lot_id", rec.LotID).Msg("service: failed to publish low-stock alert")
		}
	}
}

// UpdateOrderStatus applies a status transition and recomputes the owning
// customer's aggregate in the same transaction, so a cancellation
// retroactively excludes the order's amount with no staleness window.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) (cust *customer.Customer, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", orderID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", orderID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("service: failed to commit transaction: %w", commitErr)
				cust = nil
			}
		}
	}()

	currentStatus, err := s.orders.GetStatusForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if currentStatus == newStatus {
		err = ErrStatusAlreadySet
		return nil, err
	}

	if !CanTransition(currentStatus, newStatus) {
		log.Warn().
			Stringer("order_id", orderID).
			Stringer("current_status", currentStatus).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		err = fmt.Errorf("service: %w: %s -> %s", ErrInvalidStatusTransition, currentStatus, newStatus)
		return nil, err
	}

	if err = s.orders.UpdateStatus(ctx, tx, orderID, newStatus); err != nil {
		return nil, err
	}

	var customerID uuid.UUID
	if err = tx.QueryRow(ctx, `SELECT customer_id FROM orders WHERE id = $1`, orderID).Scan(&customerID); err != nil {
		err = fmt.Errorf("service: failed to select customer for order %s: %w", orderID, err)
		return nil, err
	}

	cust, err = s.spend.Recompute(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Stringer("order_id", orderID).
		Stringer("old_status", currentStatus).
		Stringer("new_status", newStatus).
		Msg("service: order status updated")

	return cust, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, s.pool, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) GetOrdersByCustomerID(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	orders, err := s.orders.GetByCustomerID(ctx, s.pool, customerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch customer orders: %w", err)
	}
	return orders, nil
}
