package order

import (
	"time"

	"github.com/gofrs/uuid"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

func (os OrderStatus) String() string {
	return string(os)
}

var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusCancelled:  true,
	},
	StatusProcessing: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	transitions, ok := allowedTransitions[from]
	return ok && transitions[to]
}

// OrderLine is immutable once persisted; the only derived effect it carries
// is the stock allocation it triggered.
type OrderLine struct {
	ID              uuid.UUID `json:"id" db:"id"`
	OrderID         uuid.UUID `json:"order_id" db:"order_id"`
	ProductID       uuid.UUID `json:"product_id" db:"product_id"`
	Quantity        int       `json:"quantity" db:"quantity"`
	UnitPrice       float64   `json:"unit_price" db:"unit_price"`
	DiscountPercent float64   `json:"discount_percent" db:"discount_percent"`
	LineTotal       float64   `json:"line_total" db:"line_total"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type Order struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	CustomerID     uuid.UUID   `json:"customer_id" db:"customer_id"`
	Status         OrderStatus `json:"status" db:"status"`
	Lines          []OrderLine `json:"lines" db:"-"`
	TotalAmount    float64     `json:"total_amount" db:"total_amount"`
	DiscountAmount float64     `json:"discount_amount" db:"discount_amount"`
	ShippingCost   float64     `json:"shipping_cost" db:"shipping_cost"`
	PaymentMethod  string      `json:"payment_method,omitempty" db:"payment_method"`
	OrderDate      time.Time   `json:"order_date" db:"order_date"`
	ShippingDate   *time.Time  `json:"shipping_date,omitempty" db:"shipping_date"`
	DeliveryDate   *time.Time  `json:"delivery_date,omitempty" db:"delivery_date"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}
