package customer

import (
	"time"

	"github.com/gofrs/uuid"
)

type Segment string

const (
	SegmentNew     Segment = "New"
	SegmentRegular Segment = "Regular"
	SegmentPremium Segment = "Premium"
	SegmentVIP     Segment = "VIP"
)

func (s Segment) String() string {
	return string(s)
}

// Segment thresholds on cumulative spend. Boundaries are inclusive: spending
// exactly 500 makes a customer Regular.
const (
	vipThreshold     = 5000
	premiumThreshold = 2000
	regularThreshold = 500
)

// SegmentFor derives the segment from cumulative spend.
func SegmentFor(cumulativeSpend float64) Segment {
	switch {
	case cumulativeSpend >= vipThreshold:
		return SegmentVIP
	case cumulativeSpend >= premiumThreshold:
		return SegmentPremium
	case cumulativeSpend >= regularThreshold:
		return SegmentRegular
	default:
		return SegmentNew
	}
}

// Customer carries two derived fields, CumulativeSpend and Segment. They are
// maintained synchronously by the Aggregator and must always equal what the
// customer's current non-cancelled order set implies.
type Customer struct {
	ID              uuid.UUID `json:"id" db:"id"`
	FirstName       string    `json:"first_name" db:"first_name"`
	LastName        string    `json:"last_name" db:"last_name"`
	Email           string    `json:"email" db:"email"`
	CumulativeSpend float64   `json:"cumulative_spend" db:"cumulative_spend"`
	Segment         Segment   `json:"segment" db:"segment"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
