package service

import (
	"context"
	"fmt"
	"time"

	"pharmacy-ms/internal/repository"

	"github.com/shopspring/decimal"
)

// DailySales is one day of the weekly sales series.
type DailySales struct {
	Day   string          `json:"day"`
	Total decimal.Decimal `json:"sales"`
}

// DashboardMetrics are the derived numbers shown on the dashboard.
type DashboardMetrics struct {
	TodaySales decimal.Decimal `json:"today_sales"`
	LowStock   int             `json:"low_stock"`
	Expiring   int             `json:"expiring"`
	Weekly     []DailySales    `json:"weekly_data"`
}

// ReportService defines the interface for reporting business logic
type ReportService interface {
	Dashboard(ctx context.Context) (*DashboardMetrics, error)
}

type reportService struct {
	products repository.ProductRepository
	sales    repository.SaleRepository
	settings SettingsService
	now      func() time.Time
}

// NewReportService creates a new instance of ReportService
func NewReportService(products repository.ProductRepository, sales repository.SaleRepository, settings SettingsService) ReportService {
	return &reportService{
		products: products,
		sales:    sales,
		settings: settings,
		now:      time.Now,
	}
}

// Dashboard computes today's sales total, low-stock and expiring-soon
// counts, and a seven-day daily sales series ending today.
func (s *reportService) Dashboard(ctx context.Context) (*DashboardMetrics, error) {
	cfg := s.settings.Get()
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := today.AddDate(0, 0, -6)

	totals, err := s.sales.TotalsByDay(ctx, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly sales: %w", err)
	}

	byDay := make(map[string]decimal.Decimal, len(totals))
	for _, dt := range totals {
		byDay[dt.Day.Format("2006-01-02")] = dt.Total
	}

	weekly := make([]DailySales, 0, 7)
	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i)
		total, ok := byDay[day.Format("2006-01-02")]
		if !ok {
			total = decimal.Zero
		}
		weekly = append(weekly, DailySales{
			Day:   day.Format("Mon"),
			Total: total,
		})
	}

	todayTotal, ok := byDay[today.Format("2006-01-02")]
	if !ok {
		todayTotal = decimal.Zero
	}

	lowStock, err := s.products.CountLowStock(ctx, cfg.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to count low stock products: %w", err)
	}

	expiring, err := s.products.CountExpiring(ctx, today.AddDate(0, 0, cfg.ExpiryWarningDays))
	if err != nil {
		return nil, fmt.Errorf("failed to count expiring products: %w", err)
	}

	return &DashboardMetrics{
		TodaySales: todayTotal,
		LowStock:   lowStock,
		Expiring:   expiring,
		Weekly:     weekly,
	}, nil
}
