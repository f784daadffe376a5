package order

import (
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}

func TestBuildOrder(t *testing.T) {
	productID := uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))

	t.Run("computes_line_totals_and_order_total", func(t *testing.T) {
		sub := &Submission{
			CustomerID:     mustUUID(t),
			DiscountAmount: 10,
			ShippingCost:   7.50,
			Lines: []SubmissionLine{
				{ProductID: productID, Quantity: 2, UnitPrice: 25, DiscountPercent: 0},
				{ProductID: productID, Quantity: 1, UnitPrice: 100, DiscountPercent: 20},
			},
		}

		o, err := buildOrder(sub)
		require.NoError(t, err)

		assert.Equal(t, StatusPending, o.Status)
		require.Len(t, o.Lines, 2)
		assert.Equal(t, 50.0, o.Lines[0].LineTotal)
		assert.Equal(t, 80.0, o.Lines[1].LineTotal)
		// 50 + 80 + 7.50 shipping - 10 discount
		assert.Equal(t, 127.5, o.TotalAmount)
	})

	t.Run("rounds_line_totals_to_cents", func(t *testing.T) {
		sub := &Submission{
			CustomerID: mustUUID(t),
			Lines: []SubmissionLine{
				{ProductID: productID, Quantity: 3, UnitPrice: 9.99, DiscountPercent: 15},
			},
		}

		o, err := buildOrder(sub)
		require.NoError(t, err)

		// 3 * 9.99 * 0.85 = 25.4745
		assert.Equal(t, 25.47, o.Lines[0].LineTotal)
		assert.Equal(t, 25.47, o.TotalAmount)
	})

	tests := []struct {
		name string
		line SubmissionLine
	}{
		{"nil_product", SubmissionLine{ProductID: uuid.Nil, Quantity: 1, UnitPrice: 10}},
		{"zero_quantity", SubmissionLine{ProductID: productID, Quantity: 0, UnitPrice: 10}},
		{"negative_quantity", SubmissionLine{ProductID: productID, Quantity: -2, UnitPrice: 10}},
		{"negative_unit_price", SubmissionLine{ProductID: productID, Quantity: 1, UnitPrice: -1}},
		{"discount_over_100", SubmissionLine{ProductID: productID, Quantity: 1, UnitPrice: 10, DiscountPercent: 101}},
	}

	for _, tt := range tests {
		t.Run("rejects_"+tt.name, func(t *testing.T) {
			sub := &Submission{
				CustomerID: uuid.Must(uuid.NewV4()),
				Lines:      []SubmissionLine{tt.line},
			}

			_, err := buildOrder(sub)
			assert.Error(t, err)

			var validationErr *ValidationError
			assert.True(t, errors.As(err, &validationErr))
		})
	}
}
