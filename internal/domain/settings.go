package domain

import "github.com/shopspring/decimal"

// Settings holds the pharmacy-wide preferences that used to live in
// ad-hoc key-value storage. They are loaded once at startup and saved
// back through the settings store on update; components receive them
// explicitly rather than reading globals.
type Settings struct {
	Currency          string          `json:"currency"`
	TaxRate           decimal.Decimal `json:"tax_rate"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	ExpiryWarningDays int             `json:"expiry_warning_days"`
	Theme             string          `json:"theme"`
	Language          string          `json:"language"`
}

// DefaultSettings are used when the settings store has no saved values yet.
func DefaultSettings() *Settings {
	return &Settings{
		Currency:          "USD",
		TaxRate:           decimal.NewFromFloat(0.07),
		LowStockThreshold: 5,
		ExpiryWarningDays: 30,
		Theme:             "system",
		Language:          "en",
	}
}
