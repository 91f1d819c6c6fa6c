package transport

import (
	"errors"
	"net/http"

	"pharmacy-ms/internal/middleware"
	"pharmacy-ms/internal/pos"
	"pharmacy-ms/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddItemRequest adds one unit of a scanned or typed code to the cart
type AddItemRequest struct {
	Code string `json:"code" validate:"required"`
}

// SetQuantityRequest replaces a cart line's quantity
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CheckoutRequest submits the cart as a sale
type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=cash card mobile"`
}

// CartResponse is the cart view returned after every operation
type CartResponse struct {
	Lines  []pos.Line         `json:"lines"`
	Totals pos.TotalsSnapshot `json:"totals"`
	State  string             `json:"state"`
}

// POSHandler handles HTTP requests for the point-of-sale terminal
type POSHandler struct {
	registry *pos.Registry
	settings service.SettingsService
	logger   *zap.Logger
}

// NewPOSHandler creates a new POSHandler
func NewPOSHandler(registry *pos.Registry, settings service.SettingsService, logger *zap.Logger) *POSHandler {
	return &POSHandler{
		registry: registry,
		settings: settings,
		logger:   logger,
	}
}

// RegisterRoutes registers all POS routes
func (h *POSHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/pos", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/cart", h.GetCart)
		r.Post("/cart/items", h.AddItem)
		r.Put("/cart/items/{productID}", h.SetQuantity)
		r.Delete("/cart/items/{productID}", h.RemoveLine)
		r.Delete("/cart", h.ClearCart)
		r.Post("/checkout", h.Checkout)
	})
}

// GetCart returns the current cart with freshly computed totals
func (h *POSHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	terminal := h.terminal(r)
	middleware.RespondWithJSON(w, http.StatusOK, h.cartView(terminal))
}

// AddItem resolves a code and adds one unit to the cart
func (h *POSHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	terminal := h.terminal(r)
	if err := terminal.AddBySKU(req.Code); err != nil {
		h.respondPOSError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.cartView(terminal))
}

// SetQuantity replaces a line's quantity
func (h *POSHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req SetQuantityRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	terminal := h.terminal(r)
	if err := terminal.SetQuantity(productID, req.Quantity); err != nil {
		h.respondPOSError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.cartView(terminal))
}

// RemoveLine deletes a cart line
func (h *POSHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	terminal := h.terminal(r)
	if err := terminal.RemoveLine(productID); err != nil {
		h.respondPOSError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.cartView(terminal))
}

// ClearCart empties the cart
func (h *POSHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	terminal := h.terminal(r)
	if err := terminal.Clear(); err != nil {
		h.respondPOSError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.cartView(terminal))
}

// Checkout validates and submits the cart as a sale
func (h *POSHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}

	userID := uuid.Nil
	if staffID, ok := middleware.StaffID(r.Context()); ok {
		userID = staffID
	}

	terminal := h.terminal(r)
	sale, err := terminal.Checkout(r.Context(), userID, h.settings.TaxRate(), req.PaymentMethod)
	if err != nil {
		h.respondPOSError(w, err)
		return
	}

	h.logger.Info("Checkout completed",
		zap.String("sale_id", sale.ID.String()),
		zap.String("total", sale.Total.StringFixed(2)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, sale)
}

// terminal resolves the POS session for this request. Each physical
// terminal sends its own X-Terminal-ID; without one the session is keyed
// by the authenticated user.
func (h *POSHandler) terminal(r *http.Request) *pos.Terminal {
	id := r.Header.Get("X-Terminal-ID")
	if id == "" {
		if staffID, ok := middleware.StaffID(r.Context()); ok {
			id = staffID.String()
		} else {
			id = "default"
		}
	}
	return h.registry.Get(id)
}

func (h *POSHandler) cartView(terminal *pos.Terminal) CartResponse {
	lines, totals := terminal.Snapshot(h.settings.TaxRate())
	return CartResponse{
		Lines:  lines,
		Totals: totals,
		State:  terminal.State().String(),
	}
}

// respondPOSError maps the POS error taxonomy onto HTTP responses with
// machine-readable codes, keeping PartialCommit distinguishable from a
// generic store failure.
func (h *POSHandler) respondPOSError(w http.ResponseWriter, err error) {
	var stale *pos.StaleStockError
	var partial *pos.PartialCommitError
	var store *pos.StoreError

	switch {
	case errors.Is(err, pos.ErrInvalidInput):
		middleware.RespondWithErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	case errors.Is(err, pos.ErrNotFound):
		middleware.RespondWithErrorCode(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, pos.ErrOutOfStock):
		middleware.RespondWithErrorCode(w, http.StatusConflict, "OUT_OF_STOCK", err.Error(), nil)
	case errors.Is(err, pos.ErrInsufficientStock):
		middleware.RespondWithErrorCode(w, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error(), nil)
	case errors.Is(err, pos.ErrEmptyCart):
		middleware.RespondWithErrorCode(w, http.StatusConflict, "EMPTY_CART", err.Error(), nil)
	case errors.Is(err, pos.ErrCheckoutInProgress):
		middleware.RespondWithErrorCode(w, http.StatusConflict, "CHECKOUT_IN_PROGRESS", err.Error(), nil)
	case errors.As(err, &stale):
		middleware.RespondWithErrorCode(w, http.StatusConflict, "STALE_STOCK", err.Error(), map[string]interface{}{
			"lines": stale.Lines,
		})
	case errors.As(err, &partial):
		middleware.RespondWithErrorCode(w, http.StatusInternalServerError, "PARTIAL_COMMIT", err.Error(), map[string]interface{}{
			"sale_id": partial.SaleID.String(),
		})
	case errors.As(err, &store):
		middleware.RespondWithErrorCode(w, http.StatusBadGateway, "STORE_ERROR", err.Error(), nil)
	default:
		h.logger.Error("Unexpected POS error", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
