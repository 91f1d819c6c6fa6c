package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pharmacy-ms/internal/domain"
	"pharmacy-ms/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTaxRate   = errors.New("tax rate must be between 0 and 1")
	ErrInvalidThreshold = errors.New("thresholds must not be negative")
)

// SettingsService defines the interface for settings business logic
type SettingsService interface {
	// Load reads persisted settings into the in-memory copy. Called once
	// at startup.
	Load(ctx context.Context) error
	Get() domain.Settings
	TaxRate() decimal.Decimal
	Update(ctx context.Context, settings domain.Settings) error
}

type settingsService struct {
	mu       sync.RWMutex
	current  domain.Settings
	settings repository.SettingsRepository
}

// NewSettingsService creates a new instance of SettingsService
func NewSettingsService(settings repository.SettingsRepository) SettingsService {
	return &settingsService{
		current:  *domain.DefaultSettings(),
		settings: settings,
	}
}

func (s *settingsService) Load(ctx context.Context) error {
	loaded, err := s.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	s.mu.Lock()
	s.current = *loaded
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the current settings.
func (s *settingsService) Get() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// TaxRate returns the live tax rate used for POS totals.
func (s *settingsService) TaxRate() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.TaxRate
}

// Update validates, persists and then swaps in new settings. The
// in-memory copy only changes after the store accepted the write.
func (s *settingsService) Update(ctx context.Context, settings domain.Settings) error {
	if settings.TaxRate.IsNegative() || settings.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return ErrInvalidTaxRate
	}
	if settings.LowStockThreshold < 0 || settings.ExpiryWarningDays < 0 {
		return ErrInvalidThreshold
	}

	if err := s.settings.Save(ctx, &settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()
	return nil
}
