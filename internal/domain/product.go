package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a pharmacy product in the catalog. Stock is the
// authoritative on-hand count in the record store; any copy held outside
// the store (such as the POS catalog snapshot) may be stale.
type Product struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	SKU       string          `json:"sku" db:"sku"`
	Name      string          `json:"name" db:"name"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	Stock     int             `json:"stock" db:"stock"`
	Expiry    *time.Time      `json:"expiry,omitempty" db:"expiry"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}
