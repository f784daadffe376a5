package order_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vpetrenko-dev/order-engine/internal/order"
)

func TestValidateHeader(t *testing.T) {
	tests := []struct {
		name      string
		order     *order.Order
		wantErr   bool
		wantField string
	}{
		{
			name:    "valid_header",
			order:   &order.Order{TotalAmount: 100.50, DiscountAmount: 10, ShippingCost: 5},
			wantErr: false,
		},
		{
			name:    "zero_total",
			order:   &order.Order{TotalAmount: 0, DiscountAmount: 0},
			wantErr: false,
		},
		{
			name:      "negative_total",
			order:     &order.Order{TotalAmount: -5},
			wantErr:   true,
			wantField: "total_amount",
		},
		{
			name:      "negative_discount",
			order:     &order.Order{TotalAmount: 100, DiscountAmount: -1},
			wantErr:   true,
			wantField: "discount_amount",
		},
		{
			// Pre-discount subtotal of 100 with a 120 discount leaves a
			// negative total; the header is rejected before anything is
			// persisted.
			name:      "discount_exceeds_subtotal",
			order:     &order.Order{TotalAmount: -20, DiscountAmount: 120},
			wantErr:   true,
			wantField: "total_amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := order.ValidateHeader(tt.order)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			assert.Error(t, err)

			var validationErr *order.ValidationError
			assert.True(t, errors.As(err, &validationErr), "error should be a ValidationError")
			assert.Equal(t, tt.wantField, validationErr.Field)
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from order.OrderStatus
		to   order.OrderStatus
		want bool
	}{
		{"pending_to_processing", order.StatusPending, order.StatusProcessing, true},
		{"pending_to_cancelled", order.StatusPending, order.StatusCancelled, true},
		{"pending_to_delivered", order.StatusPending, order.StatusDelivered, false},
		{"processing_to_shipped", order.StatusProcessing, order.StatusShipped, true},
		{"processing_to_cancelled", order.StatusProcessing, order.StatusCancelled, true},
		{"shipped_to_delivered", order.StatusShipped, order.StatusDelivered, true},
		{"shipped_to_cancelled", order.StatusShipped, order.StatusCancelled, true},
		{"shipped_to_pending", order.StatusShipped, order.StatusPending, false},
		{"delivered_is_terminal", order.StatusDelivered, order.StatusCancelled, false},
		{"cancelled_is_terminal", order.StatusCancelled, order.StatusPending, false},
		{"unknown_status", order.OrderStatus("Bogus"), order.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, order.CanTransition(tt.from, tt.to))
		})
	}
}
