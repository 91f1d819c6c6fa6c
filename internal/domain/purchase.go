package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseStatus tracks a purchase order through its lifecycle. Orders
// start pending; completing one receives the goods into stock, and both
// terminal states are final.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

// Purchase is an order placed with a supplier. Total is the sum of the
// line costs, captured at creation time.
type Purchase struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       uuid.UUID       `json:"user_id" db:"user_id"`
	SupplierID   uuid.UUID       `json:"supplier_id" db:"supplier_id"`
	PurchaseDate time.Time       `json:"purchase_date" db:"purchase_date"`
	Total        decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status       PurchaseStatus  `json:"status" db:"status"`
	Notes        string          `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// PurchaseItem is one product line within a purchase order. LineCost is
// UnitCost multiplied by Quantity. Expiry records the batch expiry date
// when the supplier provides one.
type PurchaseItem struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	PurchaseID uuid.UUID       `json:"purchase_id" db:"purchase_id"`
	ProductID  uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity   int             `json:"quantity" db:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	LineCost   decimal.Decimal `json:"line_cost" db:"line_cost"`
	Expiry     *time.Time      `json:"expiry_date,omitempty" db:"expiry_date"`
}
