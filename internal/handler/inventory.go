package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vpetrenko-dev/order-engine/internal/alert"
	"github.com/vpetrenko-dev/order-engine/internal/inventory"
)

type CreateLotRequest struct {
	ProductID     string `json:"product_id" validate:"required,uuid"`
	WarehouseID   string `json:"warehouse_id" validate:"required,uuid"`
	StockQuantity int    `json:"stock_quantity" validate:"gte=0"`
	ReorderLevel  int    `json:"reorder_level" validate:"gte=0"`
}

type RestockRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// InventoryHandler handles HTTP requests for inventory lots and the
// low-stock alert log.
type InventoryHandler struct {
	pool     *pgxpool.Pool
	ledger   *inventory.Ledger
	alerts   *alert.Log
	validate *validator.Validate
}

func NewInventoryHandler(pool *pgxpool.Pool, ledger *inventory.Ledger, alerts *alert.Log) *InventoryHandler {
	return &InventoryHandler{
		pool:     pool,
		ledger:   ledger,
		alerts:   alerts,
		validate: validator.New(),
	}
}

func (h *InventoryHandler) RegisterRoutes(router chi.Router) {
	router.Post("/lots", h.handleCreateLot)
	router.Post("/lots/{id}/restock", h.handleRestock)
	router.Get("/products/{id}/lots", h.handleGetLotsByProduct)
	router.Get("/alerts", h.handleListAlerts)
}

func (h *InventoryHandler) handleCreateLot(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateLotRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return
	}

	productID, err := uuid.FromString(requestPayload.ProductID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product_id")
		return
	}
	warehouseID, err := uuid.FromString(requestPayload.WarehouseID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid warehouse_id")
		return
	}

	lot := inventory.Lot{
		ProductID:     productID,
		WarehouseID:   warehouseID,
		StockQuantity: requestPayload.StockQuantity,
		ReorderLevel:  requestPayload.ReorderLevel,
	}

	if err := h.ledger.CreateLot(r.Context(), h.pool, &lot); err != nil {
		log.Error().Err(err).Msg("Failed to create lot")

		clientMessage := "Failed to create lot"
		if errors.Is(err, inventory.ErrLotExists) {
			clientMessage = "Lot for this product and warehouse already exists"
		}

		respondWithError(w, mapErrorToStatusCode(err), clientMessage)
		return
	}

	respondWithJSON(w, http.StatusCreated, lot)
}

func (h *InventoryHandler) handleRestock(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	lotID, err := uuid.FromString(idParam)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload RestockRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestPayload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return
	}

	lot, err := h.ledger.Restock(r.Context(), h.pool, lotID, requestPayload.Quantity)
	if err != nil {
		if errors.Is(err, inventory.ErrLotNotFound) {
			respondWithError(w, http.StatusNotFound, "Lot not found")
			return
		}
		log.Error().Err(err).Stringer("lot_id", lotID).Msg("Failed to restock lot")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to restock lot")
		return
	}

	respondWithJSON(w, http.StatusOK, lot)
}

func (h *InventoryHandler) handleGetLotsByProduct(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	productID, err := uuid.FromString(idParam)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	lots, err := h.ledger.GetLotsByProduct(r.Context(), h.pool, productID)
	if err != nil {
		log.Error().Err(err).Stringer("product_id", productID).Msg("Failed to get lots")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to get lots")
		return
	}

	respondWithJSON(w, http.StatusOK, lots)
}

func (h *InventoryHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	records, err := h.alerts.List(r.Context(), h.pool, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list alerts")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to list alerts")
		return
	}

	respondWithJSON(w, http.StatusOK, records)
}
