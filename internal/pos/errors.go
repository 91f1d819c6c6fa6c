package pos

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInvalidInput is returned for malformed input such as an empty
	// scan code or a quantity below 1. It never reaches the record store.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a scan code or product ID matches
	// nothing in the catalog.
	ErrNotFound = errors.New("product not found")

	// ErrOutOfStock is returned when adding a product whose known stock
	// on hand is zero.
	ErrOutOfStock = errors.New("product is out of stock")

	// ErrInsufficientStock is returned when a quantity change would
	// exceed the known stock on hand.
	ErrInsufficientStock = errors.New("insufficient stock for requested quantity")

	// ErrEmptyCart is returned when checkout is attempted with no lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrCheckoutInProgress is returned for cart mutations and repeat
	// checkout requests received while a checkout is being submitted.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// StaleLine identifies one cart line whose quantity exceeds the live
// stock on hand re-checked at checkout time.
type StaleLine struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// StaleStockError reports every affected line so the operator can correct
// the cart explicitly; the cart is never auto-adjusted.
type StaleStockError struct {
	Lines []StaleLine
}

func (e *StaleStockError) Error() string {
	return fmt.Sprintf("stock changed since items were added: %d line(s) affected", len(e.Lines))
}

// PartialCommitError means the sale header was persisted but the line
// items were not. The cart must be preserved and the sale must not be
// re-submitted automatically; an operator has to reconcile the dangling
// header.
type PartialCommitError struct {
	SaleID uuid.UUID
	Err    error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("sale %s partially committed: header persisted without line items: %v", e.SaleID, e.Err)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Err
}

// StoreError wraps a generic record-store or network failure. The cart is
// preserved and the user may retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record store failure during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
