package transport

import (
	"errors"
	"net/http"
	"time"

	"pharmacy-ms/internal/domain"
	"pharmacy-ms/internal/events"
	"pharmacy-ms/internal/middleware"
	"pharmacy-ms/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SupplierRequest is the payload for creating or updating a supplier
type SupplierRequest struct {
	Name          string `json:"name" validate:"required"`
	ContactPerson string `json:"contact_person,omitempty"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address,omitempty"`
}

// PurchaseItemRequest is one order line in a purchase request
type PurchaseItemRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`
	UnitCost  string  `json:"unit_cost" validate:"required"`
	Expiry    *string `json:"expiry_date,omitempty"`
}

// PurchaseRequest is the payload for placing a purchase order
type PurchaseRequest struct {
	SupplierID string                `json:"supplier_id" validate:"required"`
	Notes      string                `json:"notes,omitempty"`
	Items      []PurchaseItemRequest `json:"items" validate:"required,min=1,dive"`
}

// PurchaseHandler handles HTTP requests for suppliers and purchase orders
type PurchaseHandler struct {
	suppliers repository.SupplierRepository
	purchases repository.PurchaseRepository
	bus       *events.Bus
	logger    *zap.Logger
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(suppliers repository.SupplierRepository, purchases repository.PurchaseRepository, bus *events.Bus, logger *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		suppliers: suppliers,
		purchases: purchases,
		bus:       bus,
		logger:    logger,
	}
}

// RegisterRoutes registers supplier and purchase routes. Reads need any
// authenticated user; writes are restricted to pharmacy staff.
func (h *PurchaseHandler) RegisterRoutes(r chi.Router, authMiddleware, staffMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/suppliers", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListSuppliers)

		r.Group(func(r chi.Router) {
			r.Use(staffMiddleware)
			r.Post("/", h.CreateSupplier)
			r.Put("/{id}", h.UpdateSupplier)
			r.Delete("/{id}", h.DeleteSupplier)
		})
	})

	r.Route("/api/purchases", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListPurchases)
		r.Get("/{id}", h.GetPurchase)

		r.Group(func(r chi.Router) {
			r.Use(staffMiddleware)
			r.Post("/", h.CreatePurchase)
			r.Post("/{id}/complete", h.CompletePurchase)
			r.Post("/{id}/cancel", h.CancelPurchase)
		})
	})
}

// ListSuppliers returns all suppliers ordered by name
func (h *PurchaseHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.suppliers.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list suppliers", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list suppliers")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, suppliers)
}

// CreateSupplier adds a new supplier
func (h *PurchaseHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.decodeSupplier(w, r)
	if !ok {
		return
	}

	supplier.ID = uuid.New()
	supplier.CreatedAt = time.Now()
	supplier.UpdatedAt = supplier.CreatedAt

	if err := h.suppliers.Create(r.Context(), supplier); err != nil {
		h.logger.Error("Failed to create supplier", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create supplier")
		return
	}

	h.logger.Info("Supplier created", zap.String("supplier_id", supplier.ID.String()), zap.String("name", supplier.Name))
	middleware.RespondWithJSON(w, http.StatusCreated, supplier)
}

// UpdateSupplier modifies an existing supplier
func (h *PurchaseHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid supplier ID")
		return
	}

	supplier, ok := h.decodeSupplier(w, r)
	if !ok {
		return
	}

	supplier.ID = id

	if err := h.suppliers.Update(r.Context(), supplier); err != nil {
		if errors.Is(err, repository.ErrSupplierNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "supplier not found")
			return
		}
		h.logger.Error("Failed to update supplier", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update supplier")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, supplier)
}

// DeleteSupplier removes a supplier without purchase history
func (h *PurchaseHandler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid supplier ID")
		return
	}

	if err := h.suppliers.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrSupplierNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "supplier not found")
			return
		}
		middleware.RespondWithError(w, http.StatusConflict, "supplier has purchase history and cannot be deleted")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListPurchases returns purchase orders newest first
func (h *PurchaseHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	purchases, total, err := h.purchases.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list purchases", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list purchases")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"purchases": purchases,
		"total":     total,
	})
}

// GetPurchase returns one purchase order with its line items
func (h *PurchaseHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid purchase ID")
		return
	}

	purchase, items, err := h.purchases.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrPurchaseNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "purchase not found")
			return
		}
		h.logger.Error("Failed to find purchase", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to find purchase")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"purchase": purchase,
		"items":    items,
	})
}

// CreatePurchase places a new pending order with a supplier
func (h *PurchaseHandler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid supplier ID")
		return
	}
	if _, err := h.suppliers.FindByID(r.Context(), supplierID); err != nil {
		if errors.Is(err, repository.ErrSupplierNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "supplier not found")
			return
		}
		h.logger.Error("Failed to find supplier", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to find supplier")
		return
	}

	purchase := &domain.Purchase{
		ID:           uuid.New(),
		SupplierID:   supplierID,
		PurchaseDate: time.Now(),
		Total:        decimal.Zero,
		Status:       domain.PurchasePending,
		Notes:        req.Notes,
		CreatedAt:    time.Now(),
	}
	if staffID, ok := middleware.StaffID(r.Context()); ok {
		purchase.UserID = staffID
	}

	items := make([]domain.PurchaseItem, 0, len(req.Items))
	for _, line := range req.Items {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
			return
		}

		unitCost, err := decimal.NewFromString(line.UnitCost)
		if err != nil || unitCost.IsNegative() {
			middleware.RespondWithError(w, http.StatusBadRequest, "unit cost must be a non-negative decimal")
			return
		}

		item := domain.PurchaseItem{
			ID:         uuid.New(),
			PurchaseID: purchase.ID,
			ProductID:  productID,
			Quantity:   line.Quantity,
			UnitCost:   unitCost,
			LineCost:   unitCost.Mul(decimal.NewFromInt(int64(line.Quantity))),
		}
		if line.Expiry != nil {
			expiry, err := time.Parse("2006-01-02", *line.Expiry)
			if err != nil {
				middleware.RespondWithError(w, http.StatusBadRequest, "expiry must be an ISO date")
				return
			}
			item.Expiry = &expiry
		}

		purchase.Total = purchase.Total.Add(item.LineCost)
		items = append(items, item)
	}

	if err := h.purchases.CreatePurchase(r.Context(), purchase, items); err != nil {
		h.logger.Error("Failed to create purchase", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create purchase")
		return
	}

	h.logger.Info("Purchase created",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("supplier_id", supplierID.String()),
		zap.Int("lines", len(items)),
		zap.String("total", purchase.Total.StringFixed(2)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"purchase": purchase,
		"items":    items,
	})
}

// CompletePurchase receives a pending order into stock
func (h *PurchaseHandler) CompletePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid purchase ID")
		return
	}

	received, err := h.purchases.CompletePurchase(r.Context(), id)
	if err != nil {
		h.respondTransitionError(w, id, err)
		return
	}

	changed := events.StockChanged{Source: "purchase:" + id.String()}
	for _, item := range received {
		changed.Items = append(changed.Items, events.StockChangedItem{
			ProductID: item.ProductID.String(),
			Delta:     item.Quantity,
		})
	}
	h.bus.Publish(changed)

	h.logger.Info("Purchase received into stock",
		zap.String("purchase_id", id.String()),
		zap.Int("lines", len(received)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status": domain.PurchaseCompleted,
		"items":  received,
	})
}

// CancelPurchase cancels a pending order without touching stock
func (h *PurchaseHandler) CancelPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid purchase ID")
		return
	}

	if err := h.purchases.CancelPurchase(r.Context(), id); err != nil {
		h.respondTransitionError(w, id, err)
		return
	}

	h.logger.Info("Purchase cancelled", zap.String("purchase_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status": domain.PurchaseCancelled,
	})
}

func (h *PurchaseHandler) respondTransitionError(w http.ResponseWriter, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, repository.ErrPurchaseNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "purchase not found")
	case errors.Is(err, repository.ErrPurchaseNotPending):
		middleware.RespondWithErrorCode(w, http.StatusConflict, "PURCHASE_NOT_PENDING", "purchase is not pending", nil)
	default:
		h.logger.Error("Purchase transition failed", zap.String("purchase_id", id.String()), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update purchase")
	}
}

func (h *PurchaseHandler) decodeSupplier(w http.ResponseWriter, r *http.Request) (*domain.Supplier, bool) {
	var req SupplierRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return nil, false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	return &domain.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
	}, true
}
