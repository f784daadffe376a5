package order

import "fmt"

// ValidationError rejects a structurally invalid order header. It is the
// only hard rejection in the submission pipeline: nothing is persisted when
// it fires.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order: %s %s", e.Field, e.Reason)
}

// ValidateHeader checks the monetary invariants on a candidate order header.
// Pure, no side effects; runs before anything touches storage. The discount
// may never exceed the pre-discount subtotal (total_amount +
// discount_amount).
func ValidateHeader(o *Order) error {
	if o.TotalAmount < 0 {
		return &ValidationError{
			Field:  "total_amount",
			Reason: fmt.Sprintf("must be non-negative, got %.2f", o.TotalAmount),
		}
	}
	if o.DiscountAmount < 0 {
		return &ValidationError{
			Field:  "discount_amount",
			Reason: fmt.Sprintf("must be non-negative, got %.2f", o.DiscountAmount),
		}
	}
	if o.DiscountAmount > o.TotalAmount+o.DiscountAmount {
		return &ValidationError{
			Field:  "discount_amount",
			Reason: fmt.Sprintf("cannot exceed pre-discount subtotal %.2f", o.TotalAmount+o.DiscountAmount),
		}
	}
	return nil
}
