package transport

import (
	"errors"
	"net/http"

	"pharmacy-ms/internal/domain"
	"pharmacy-ms/internal/middleware"
	"pharmacy-ms/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettingsRequest is the payload for updating pharmacy settings
type SettingsRequest struct {
	Currency          string `json:"currency" validate:"required,len=3"`
	TaxRate           string `json:"tax_rate" validate:"required"`
	LowStockThreshold int    `json:"low_stock_threshold" validate:"gte=0"`
	ExpiryWarningDays int    `json:"expiry_warning_days" validate:"gte=0"`
	Theme             string `json:"theme"`
	Language          string `json:"language"`
}

// SettingsHandler handles HTTP requests for pharmacy settings
type SettingsHandler struct {
	settings service.SettingsService
	logger   *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settings service.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   logger,
	}
}

// RegisterRoutes registers all settings routes
func (h *SettingsHandler) RegisterRoutes(r chi.Router, authMiddleware, roleMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/settings", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(roleMiddleware)
			r.Put("/", h.Update)
		})
	})
}

// Get returns the current settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.settings.Get())
}

// Update validates and persists new settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	taxRate, err := decimal.NewFromString(req.TaxRate)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "tax rate must be a decimal")
		return
	}

	settings := domain.Settings{
		Currency:          req.Currency,
		TaxRate:           taxRate,
		LowStockThreshold: req.LowStockThreshold,
		ExpiryWarningDays: req.ExpiryWarningDays,
		Theme:             req.Theme,
		Language:          req.Language,
	}

	if err := h.settings.Update(r.Context(), settings); err != nil {
		if errors.Is(err, service.ErrInvalidTaxRate) || errors.Is(err, service.ErrInvalidThreshold) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to update settings", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	h.logger.Info("Settings updated")
	middleware.RespondWithJSON(w, http.StatusOK, h.settings.Get())
}
