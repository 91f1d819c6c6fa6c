package transport

import (
	"net/http"
	"strconv"

	"pharmacy-ms/internal/middleware"
	"pharmacy-ms/internal/repository"
	"pharmacy-ms/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReportHandler handles HTTP requests for dashboards and sale history
type ReportHandler struct {
	reports service.ReportService
	sales   repository.SaleRepository
	logger  *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports service.ReportService, sales repository.SaleRepository, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		sales:   sales,
		logger:  logger,
	}
}

// RegisterRoutes registers all reporting routes
func (h *ReportHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/api/reports/dashboard", h.Dashboard)
		r.Get("/api/sales", h.ListSales)
	})
}

// Dashboard returns today's totals, stock warnings and the weekly series
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.reports.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("Failed to compute dashboard metrics", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to compute dashboard metrics")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, metrics)
}

// ListSales returns committed sales newest first
func (h *ReportHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	sales, total, err := h.sales.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list sales", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list sales")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"sales": sales,
		"total": total,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
