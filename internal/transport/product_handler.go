package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pharmacy-ms/internal/domain"
	"pharmacy-ms/internal/middleware"
	"pharmacy-ms/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest is the payload for creating or updating a product
type ProductRequest struct {
	SKU       string  `json:"sku" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	UnitPrice string  `json:"unit_price" validate:"required"`
	Stock     int     `json:"stock" validate:"gte=0"`
	Expiry    *string `json:"expiry,omitempty"`
}

// CatalogRefresher re-seeds the POS catalog snapshot after product writes.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	products repository.ProductRepository
	catalog  CatalogRefresher
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products repository.ProductRepository, catalog CatalogRefresher, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		catalog:  catalog,
		logger:   logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Get("/{sku}", h.GetBySKU)

		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
		})
	})
}

// List returns the full product snapshot
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// GetBySKU returns one product matched case-insensitively by SKU
func (h *ProductHandler) GetBySKU(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")

	product, err := h.products.FindBySKU(r.Context(), sku)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to find product", zap.String("sku", sku), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to find product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create adds a new product to the catalog
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	product, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	product.ID = uuid.New()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt

	if err := h.products.Create(r.Context(), product); err != nil {
		h.logger.Error("Failed to create product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.refreshCatalog(r.Context())
	h.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("sku", product.SKU))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update modifies an existing product
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	product.ID = id
	product.UpdatedAt = time.Now()

	if err := h.products.Update(r.Context(), product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to update product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	h.refreshCatalog(r.Context())
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (*domain.Product, bool) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return nil, false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || unitPrice.IsNegative() {
		middleware.RespondWithError(w, http.StatusBadRequest, "unit price must be a non-negative decimal")
		return nil, false
	}

	product := &domain.Product{
		SKU:       req.SKU,
		Name:      req.Name,
		UnitPrice: unitPrice,
		Stock:     req.Stock,
	}

	if req.Expiry != nil {
		expiry, err := time.Parse("2006-01-02", *req.Expiry)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "expiry must be an ISO date")
			return nil, false
		}
		product.Expiry = &expiry
	}

	return product, true
}

func (h *ProductHandler) refreshCatalog(ctx context.Context) {
	if err := h.catalog.Refresh(ctx); err != nil {
		h.logger.Error("Catalog refresh after product write failed", zap.Error(err))
	}
}
