package service

import (
	"context"
	"errors"
	"testing"

	"pharmacy-ms/internal/domain"

	"github.com/shopspring/decimal"
)

// mockSettingsRepository is an in-memory stand-in for the settings store.
type mockSettingsRepository struct {
	stored  *domain.Settings
	loadErr error
	saveErr error
	saves   int
}

func (m *mockSettingsRepository) Load(ctx context.Context) (*domain.Settings, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.stored == nil {
		return domain.DefaultSettings(), nil
	}
	copied := *m.stored
	return &copied, nil
}

func (m *mockSettingsRepository) Save(ctx context.Context, settings *domain.Settings) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *settings
	m.stored = &copied
	return nil
}

func TestSettingsServiceStartsWithDefaults(t *testing.T) {
	svc := NewSettingsService(&mockSettingsRepository{})

	got := svc.Get()
	defaults := domain.DefaultSettings()

	if got.Currency != defaults.Currency {
		t.Errorf("Currency = %s, want %s", got.Currency, defaults.Currency)
	}
	if !svc.TaxRate().Equal(defaults.TaxRate) {
		t.Errorf("TaxRate = %s, want %s", svc.TaxRate(), defaults.TaxRate)
	}
}

func TestLoadSwapsInStoredSettings(t *testing.T) {
	stored := &domain.Settings{
		Currency:          "EUR",
		TaxRate:           decimal.NewFromFloat(0.19),
		LowStockThreshold: 8,
		ExpiryWarningDays: 45,
		Theme:             "dark",
		Language:          "de",
	}
	svc := NewSettingsService(&mockSettingsRepository{stored: stored})

	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := svc.Get(); got.Currency != "EUR" || got.LowStockThreshold != 8 {
		t.Errorf("Loaded settings not applied: %+v", got)
	}
	if !svc.TaxRate().Equal(decimal.NewFromFloat(0.19)) {
		t.Errorf("TaxRate = %s, want 0.19", svc.TaxRate())
	}
}

func TestLoadFailureKeepsCurrentSettings(t *testing.T) {
	repo := &mockSettingsRepository{loadErr: errors.New("store down")}
	svc := NewSettingsService(repo)

	if err := svc.Load(context.Background()); err == nil {
		t.Fatal("Expected load error")
	}

	if !svc.TaxRate().Equal(domain.DefaultSettings().TaxRate) {
		t.Errorf("Defaults lost after failed load")
	}
}

func TestUpdateValidatesTaxRate(t *testing.T) {
	repo := &mockSettingsRepository{}
	svc := NewSettingsService(repo)

	for _, rate := range []string{"-0.01", "1.01", "2"} {
		settings := *domain.DefaultSettings()
		settings.TaxRate, _ = decimal.NewFromString(rate)

		if err := svc.Update(context.Background(), settings); !errors.Is(err, ErrInvalidTaxRate) {
			t.Errorf("Update with rate %s = %v, want ErrInvalidTaxRate", rate, err)
		}
	}
	if repo.saves != 0 {
		t.Errorf("Invalid settings reached the store")
	}

	// The boundary values 0 and 1 are valid
	for _, rate := range []string{"0", "1", "0.07"} {
		settings := *domain.DefaultSettings()
		settings.TaxRate, _ = decimal.NewFromString(rate)

		if err := svc.Update(context.Background(), settings); err != nil {
			t.Errorf("Update with rate %s failed: %v", rate, err)
		}
	}
}

func TestUpdateValidatesThresholds(t *testing.T) {
	repo := &mockSettingsRepository{}
	svc := NewSettingsService(repo)

	settings := *domain.DefaultSettings()
	settings.LowStockThreshold = -1
	if err := svc.Update(context.Background(), settings); !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("Update with negative threshold = %v, want ErrInvalidThreshold", err)
	}

	settings = *domain.DefaultSettings()
	settings.ExpiryWarningDays = -5
	if err := svc.Update(context.Background(), settings); !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("Update with negative warning days = %v, want ErrInvalidThreshold", err)
	}
	if repo.saves != 0 {
		t.Errorf("Invalid settings reached the store")
	}
}

func TestUpdateOnlyAppliesAfterSuccessfulSave(t *testing.T) {
	repo := &mockSettingsRepository{saveErr: errors.New("store down")}
	svc := NewSettingsService(repo)

	settings := *domain.DefaultSettings()
	settings.TaxRate = decimal.NewFromFloat(0.25)

	if err := svc.Update(context.Background(), settings); err == nil {
		t.Fatal("Expected save error")
	}
	if !svc.TaxRate().Equal(domain.DefaultSettings().TaxRate) {
		t.Errorf("In-memory settings changed despite failed save")
	}

	repo.saveErr = nil
	if err := svc.Update(context.Background(), settings); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !svc.TaxRate().Equal(decimal.NewFromFloat(0.25)) {
		t.Errorf("TaxRate = %s, want 0.25", svc.TaxRate())
	}
}
