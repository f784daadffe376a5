package customer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vpetrenko-dev/order-engine/internal/db"
)

// Aggregator maintains the derived Customer fields. Recompute always reads
// the order set as of the enclosing transaction, never cached state, so the
// aggregate has a staleness window of zero once the transaction commits.
type Aggregator struct{}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Recompute recalculates cumulative spend as the sum of total_amount over
// the customer's non-cancelled orders and derives the segment from it.
// Idempotent: with no intervening order change a second run writes the same
// values.
func (a *Aggregator) Recompute(ctx context.Context, q db.Querier, customerID uuid.UUID) (*Customer, error) {
	sumQuery := `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE customer_id = $1 AND status <> 'Cancelled'
	`

	var spend float64
	if err := q.QueryRow(ctx, sumQuery, customerID).Scan(&spend); err != nil {
		return nil, fmt.Errorf("aggregator: failed to sum orders for customer %s: %w", customerID, err)
	}

	segment := SegmentFor(spend)

	updateQuery := `
		UPDATE customers
		SET cumulative_spend = $2, segment = $3, updated_at = $4
		WHERE id = $1
		RETURNING id, first_name, last_name, email, cumulative_spend, segment, created_at, updated_at
	`

	var c Customer
	err := q.QueryRow(ctx, updateQuery, customerID, spend, string(segment), time.Now().UTC()).Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.CumulativeSpend,
		&c.Segment,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("aggregator: failed to update customer %s: %w", customerID, err)
	}

	log.Debug().
		Stringer("customer_id", customerID).
		Float64("cumulative_spend", spend).
		Str("segment", string(segment)).
		Msg("aggregator: customer aggregate recomputed")

	return &c, nil
}
