package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"pharmacy-ms/internal/domain"

	"github.com/shopspring/decimal"
)

// SettingsRepository persists pharmacy-wide preferences as key-value
// rows, replacing the ad-hoc local storage the settings panels used to
// write to.
type SettingsRepository interface {
	Load(ctx context.Context) (*domain.Settings, error)
	Save(ctx context.Context, settings *domain.Settings) error
}

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new instance of SettingsRepository
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

const (
	keyCurrency          = "currency"
	keyTaxRate           = "tax_rate"
	keyLowStockThreshold = "low_stock_threshold"
	keyExpiryWarningDays = "expiry_warning_days"
	keyTheme             = "theme"
	keyLanguage          = "language"
)

// Load reads all stored settings, falling back to defaults for any key
// that has never been saved.
func (r *settingsRepository) Load(ctx context.Context) (*domain.Settings, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	defer rows.Close()

	settings := domain.DefaultSettings()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}

		switch key {
		case keyCurrency:
			settings.Currency = value
		case keyTaxRate:
			rate, err := decimal.NewFromString(value)
			if err != nil {
				return nil, fmt.Errorf("stored tax rate %q is not a decimal: %w", value, err)
			}
			settings.TaxRate = rate
		case keyLowStockThreshold:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("stored low stock threshold %q is not an integer: %w", value, err)
			}
			settings.LowStockThreshold = n
		case keyExpiryWarningDays:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("stored expiry warning days %q is not an integer: %w", value, err)
			}
			settings.ExpiryWarningDays = n
		case keyTheme:
			settings.Theme = value
		case keyLanguage:
			settings.Language = value
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}

	return settings, nil
}

// Save upserts every setting key in one transaction.
func (r *settingsRepository) Save(ctx context.Context, settings *domain.Settings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settings transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`

	values := map[string]string{
		keyCurrency:          settings.Currency,
		keyTaxRate:           settings.TaxRate.String(),
		keyLowStockThreshold: strconv.Itoa(settings.LowStockThreshold),
		keyExpiryWarningDays: strconv.Itoa(settings.ExpiryWarningDays),
		keyTheme:             settings.Theme,
		keyLanguage:          settings.Language,
	}

	for key, value := range values {
		if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}

	return nil
}
