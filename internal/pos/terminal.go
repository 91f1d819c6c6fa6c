package pos

import (
	"context"
	"sync"

	"pharmacy-ms/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Terminal is one point-of-sale session: a cart plus its checkout
// orchestrator. It serializes all cart access and rejects mutations with
// ErrCheckoutInProgress while a checkout is being submitted, so a cart
// can never change underneath an in-flight submission.
type Terminal struct {
	mu       sync.Mutex
	cart     *Cart
	checkout *Checkout
}

func NewTerminal(cart *Cart, checkout *Checkout) *Terminal {
	return &Terminal{cart: cart, checkout: checkout}
}

func (t *Terminal) AddBySKU(code string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkout.InProgress() {
		return ErrCheckoutInProgress
	}
	return t.cart.AddBySKU(code)
}

func (t *Terminal) AddByProduct(product *domain.Product) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkout.InProgress() {
		return ErrCheckoutInProgress
	}
	return t.cart.AddByProduct(product)
}

func (t *Terminal) SetQuantity(productID uuid.UUID, quantity int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkout.InProgress() {
		return ErrCheckoutInProgress
	}
	return t.cart.SetQuantity(productID, quantity)
}

func (t *Terminal) RemoveLine(productID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkout.InProgress() {
		return ErrCheckoutInProgress
	}
	t.cart.RemoveLine(productID)
	return nil
}

func (t *Terminal) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkout.InProgress() {
		return ErrCheckoutInProgress
	}
	t.cart.Clear()
	return nil
}

// Snapshot returns the current lines with totals recomputed from them,
// so displayed totals always reflect the latest mutation.
func (t *Terminal) Snapshot(taxRate decimal.Decimal) ([]Line, TotalsSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := t.cart.Lines()
	return lines, ComputeTotals(lines, taxRate)
}

// Checkout validates and submits the cart as a sale. Repeat requests
// while one is in flight fail with ErrCheckoutInProgress.
func (t *Terminal) Checkout(ctx context.Context, userID uuid.UUID, taxRate decimal.Decimal, paymentMethod string) (*domain.Sale, error) {
	t.mu.Lock()
	if err := t.checkout.begin(); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.mu.Unlock()

	return t.checkout.run(ctx, t.cart, userID, taxRate, paymentMethod)
}

// State exposes the orchestrator state for display.
func (t *Terminal) State() State {
	return t.checkout.State()
}
