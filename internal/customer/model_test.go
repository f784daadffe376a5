package customer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vpetrenko-dev/order-engine/internal/customer"
)

func TestSegmentFor(t *testing.T) {
	tests := []struct {
		name  string
		spend float64
		want  customer.Segment
	}{
		{"zero_spend", 0, customer.SegmentNew},
		{"just_below_regular", 499.99, customer.SegmentNew},
		{"exactly_regular", 500, customer.SegmentRegular},
		{"between_regular_and_premium", 1999.99, customer.SegmentRegular},
		{"exactly_premium", 2000, customer.SegmentPremium},
		{"between_premium_and_vip", 4999.99, customer.SegmentPremium},
		{"exactly_vip", 5000, customer.SegmentVIP},
		{"above_vip", 12345.67, customer.SegmentVIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, customer.SegmentFor(tt.spend))
		})
	}
}
