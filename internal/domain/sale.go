package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is a committed point-of-sale transaction. Once persisted it is
// immutable from the POS side.
type Sale struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	SaleDate      time.Time       `json:"sale_date" db:"sale_date"`
	Subtotal      decimal.Decimal `json:"subtotal_amount" db:"subtotal_amount"`
	Tax           decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	Total         decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentMethod string          `json:"payment_method" db:"payment_method"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// SaleItem is one product+quantity line within a committed sale.
// LineTotal is always UnitPrice multiplied by Quantity, captured at
// commit time.
type SaleItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	SaleID    uuid.UUID       `json:"sale_id" db:"sale_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total" db:"line_total"`
}
