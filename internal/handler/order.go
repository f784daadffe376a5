package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vpetrenko-dev/order-engine/internal/order"
)

type SubmitOrderLineRequest struct {
	ProductID       string  `json:"product_id" validate:"required,uuid"`
	Quantity        int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
}

type SubmitOrderRequest struct {
	CustomerID     string                   `json:"customer_id" validate:"required,uuid"`
	DiscountAmount float64                  `json:"discount_amount"`
	ShippingCost   float64                  `json:"shipping_cost"`
	PaymentMethod  string                   `json:"payment_method"`
	Lines          []SubmitOrderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Pending Processing Shipped Delivered Cancelled"`
}

// OrderHandler handles HTTP requests for order submission and status updates.
type OrderHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handleSubmitOrder)
	router.Get("/orders/{id}", h.handleGetOrderByID)
	router.Patch("/orders/{id}/status", h.handleUpdateOrderStatus)
	router.Get("/customers/{id}/orders", h.handleGetOrdersByCustomer)
}

func (h *OrderHandler) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var requestPayload SubmitOrderRequest

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
			log.Error().Err(err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return
	}

	customerID, err := uuid.FromString(requestPayload.CustomerID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid customer_id")
		return
	}

	sub := order.Submission{
		CustomerID:     customerID,
		DiscountAmount: requestPayload.DiscountAmount,
		ShippingCost:   requestPayload.ShippingCost,
		PaymentMethod:  requestPayload.PaymentMethod,
		Lines:          make([]order.SubmissionLine, 0, len(requestPayload.Lines)),
	}
	for _, line := range requestPayload.Lines {
		productID, err := uuid.FromString(line.ProductID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid product_id")
			return
		}
		sub.Lines = append(sub.Lines, order.SubmissionLine{
			ProductID:       productID,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			DiscountPercent: line.DiscountPercent,
		})
	}

	result, err := h.svc.SubmitOrder(r.Context(), &sub)
	if err != nil {
		var validationErr *order.ValidationError
		if errors.As(err, &validationErr) {
			respondWithError(w, http.StatusUnprocessableEntity, validationErr.Error())
			return
		}
		log.Error().Err(err).Msg("Failed to submit order via service")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to submit order")
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

func (h *OrderHandler) handleGetOrderByID(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	orderID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("order_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	foundOrder, err := h.svc.GetOrderByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error().Err(err).Msg("Failed to get order by id via service")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to get order")
		return
	}

	respondWithJSON(w, http.StatusOK, foundOrder)
}

func (h *OrderHandler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	orderID, err := uuid.FromString(idParam)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateOrderStatusRequest

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

	cust, err := h.svc.UpdateOrderStatus(r.Context(), orderID, order.OrderStatus(requestPayload.Status))
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to update order status via service")

		var clientMessage string
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			clientMessage = "Order not found"
		case errors.Is(err, order.ErrStatusAlreadySet):
			clientMessage = "Status is already set"
		case errors.Is(err, order.ErrInvalidStatusTransition):
			clientMessage = "Invalid status transition"
		default:
			clientMessage = "Failed to update order status"
		}

		respondWithError(w, mapErrorToStatusCode(err), clientMessage)
		return
	}

	respondWithJSON(w, http.StatusOK, cust)
}

func (h *OrderHandler) handleGetOrdersByCustomer(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	customerID, err := uuid.FromString(idParam)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	orders, err := h.svc.GetOrdersByCustomerID(r.Context(), customerID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get customer orders via service")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to get customer orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}
