package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vpetrenko-dev/order-engine/internal/alert"
	"github.com/vpetrenko-dev/order-engine/internal/customer"
	"github.com/vpetrenko-dev/order-engine/internal/handler"
	"github.com/vpetrenko-dev/order-engine/internal/inventory"
	"github.com/vpetrenko-dev/order-engine/internal/order"
)

// NewRouter wires the consistency engine behind the HTTP surface. The
// publisher may be nil, in which case alerts only go to the database log.
func NewRouter(pool *pgxpool.Pool, publisher alert.Publisher) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	orders := order.NewRepository()
	ledger := inventory.NewLedger()
	alerts := alert.NewLog()
	aggregator := customer.NewAggregator()
	customers := customer.NewRepository()

	svc := order.NewService(pool, orders, ledger, alerts, aggregator, publisher)

	handler.NewOrderHandler(svc).RegisterRoutes(r)
	handler.NewCustomerHandler(pool, customers).RegisterRoutes(r)
	handler.NewInventoryHandler(pool, ledger, alerts).RegisterRoutes(r)

	return r
}
