package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vpetrenko-dev/order-engine/internal/customer"
)

type CreateCustomerRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2"`
	LastName  string `json:"last_name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
}

// CustomerHandler handles HTTP requests for customers. The derived aggregate
// fields are read-only here; only the spend aggregator writes them.
type CustomerHandler struct {
	pool      *pgxpool.Pool
	customers *customer.Repository
	validate  *validator.Validate
}

func NewCustomerHandler(pool *pgxpool.Pool, customers *customer.Repository) *CustomerHandler {
	return &CustomerHandler{
		pool:      pool,
		customers: customers,
		validate:  validator.New(),
	}
}

func (h *CustomerHandler) RegisterRoutes(router chi.Router) {
	router.Post("/customers", h.handleCreateCustomer)
	router.Get("/customers/{id}", h.handleGetCustomerByID)
}

func (h *CustomerHandler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateCustomerRequest

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

	c := customer.Customer{
		FirstName: requestPayload.FirstName,
		LastName:  requestPayload.LastName,
		Email:     requestPayload.Email,
	}

	if err := h.customers.Create(r.Context(), h.pool, &c); err != nil {
		log.Error().Err(err).Msg("Failed to create customer")

		clientMessage := "Failed to create customer"
		if errors.Is(err, customer.ErrEmailExists) {
			clientMessage = "Email already exists"
		}

		respondWithError(w, mapErrorToStatusCode(err), clientMessage)
		return
	}

	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CustomerHandler) handleGetCustomerByID(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	customerID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("customer_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	c, err := h.customers.GetByID(r.Context(), h.pool, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound) {
			respondWithError(w, http.StatusNotFound, "Customer not found")
			return
		}
		log.Error().Err(err).Msg("Failed to get customer by id")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to get customer")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}
