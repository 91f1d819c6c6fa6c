package pos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pharmacy-ms/internal/domain"
	"pharmacy-ms/internal/events"
	"pharmacy-ms/internal/money"
	"pharmacy-ms/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductReader re-reads live product state at validation time.
type ProductReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

// SaleStore persists a sale header together with its line items. Whether
// the implementation is a single transaction or sequential writes decides
// whether a PartialCommitError can ever be observed; the postgres
// implementation in internal/repository is atomic.
type SaleStore interface {
	CreateSale(ctx context.Context, sale *domain.Sale, items []domain.SaleItem) error
}

// Publisher announces committed stock changes.
type Publisher interface {
	Publish(event events.StockChanged)
}

// Checkout orchestrates validating and submitting a cart as a sale. It
// performs no automatic retries; every failure preserves the cart and
// returns the orchestrator to Idle so the user can decide what to do.
type Checkout struct {
	mu     sync.Mutex
	state  State
	stores ProductReader
	sales  SaleStore
	bus    Publisher
	logger *zap.Logger
}

func NewCheckout(products ProductReader, sales SaleStore, bus Publisher, logger *zap.Logger) *Checkout {
	return &Checkout{
		state:  StateIdle,
		stores: products,
		sales:  sales,
		bus:    bus,
		logger: logger,
	}
}

// State returns the current orchestrator state.
func (c *Checkout) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// InProgress reports whether a checkout attempt is currently underway.
func (c *Checkout) InProgress() bool {
	return c.State().Busy()
}

// begin atomically claims the orchestrator for one checkout attempt.
func (c *Checkout) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return ErrCheckoutInProgress
	}
	c.state = StateValidating
	return nil
}

func (c *Checkout) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// run executes one claimed checkout attempt. The caller must have called
// begin successfully; run always leaves the orchestrator Idle.
func (c *Checkout) run(ctx context.Context, cart *Cart, userID uuid.UUID, taxRate decimal.Decimal, paymentMethod string) (*domain.Sale, error) {
	defer c.setState(StateIdle)

	lines := cart.Lines()
	if len(lines) == 0 {
		c.setState(StateFailed)
		return nil, ErrEmptyCart
	}

	// Stock may have moved since items were added; re-check every line
	// against the live store before submitting anything.
	var stale []StaleLine
	for _, line := range lines {
		product, err := c.stores.FindByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				stale = append(stale, StaleLine{
					ProductID: line.ProductID,
					SKU:       line.SKU,
					Name:      line.Name,
					Requested: line.Quantity,
					Available: 0,
				})
				continue
			}
			c.setState(StateFailed)
			return nil, &StoreError{Op: "stock re-check", Err: err}
		}
		if line.Quantity > product.Stock {
			stale = append(stale, StaleLine{
				ProductID: line.ProductID,
				SKU:       line.SKU,
				Name:      line.Name,
				Requested: line.Quantity,
				Available: product.Stock,
			})
		}
	}
	if len(stale) > 0 {
		c.setState(StateFailed)
		c.logger.Warn("Checkout rejected on stale stock", zap.Int("affected_lines", len(stale)))
		return nil, &StaleStockError{Lines: stale}
	}

	totals := ComputeTotals(lines, taxRate)

	sale := &domain.Sale{
		ID:            uuid.New(),
		UserID:        userID,
		SaleDate:      time.Now(),
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		PaymentMethod: paymentMethod,
	}

	items := make([]domain.SaleItem, 0, len(lines))
	lineSum := decimal.Zero
	for _, line := range lines {
		lineTotal := money.LineTotal(line.UnitPrice, line.Quantity)
		lineSum = lineSum.Add(lineTotal)
		items = append(items, domain.SaleItem{
			ID:        uuid.New(),
			SaleID:    sale.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: lineTotal,
		})
	}

	// The header subtotal must equal the sum of the line totals exactly;
	// a mismatch means the totals and the lines drifted apart.
	if !lineSum.Equal(sale.Subtotal) {
		c.setState(StateFailed)
		return nil, fmt.Errorf("sale subtotal %s does not match line total sum %s", sale.Subtotal, lineSum)
	}

	c.setState(StateSubmitting)

	if err := c.sales.CreateSale(ctx, sale, items); err != nil {
		c.setState(StateFailed)

		var partial *PartialCommitError
		if errors.As(err, &partial) {
			c.logger.Error("Sale partially committed, manual reconciliation required",
				zap.String("sale_id", partial.SaleID.String()),
				zap.Error(partial.Err),
			)
			return nil, partial
		}

		c.logger.Error("Sale submission failed", zap.String("sale_id", sale.ID.String()), zap.Error(err))
		return nil, &StoreError{Op: "create sale", Err: err}
	}

	// Commit side effects run while still Submitting so the Terminal
	// guard keeps rejecting mutations until the cart is cleared and the
	// stock change is announced. Only then is Committed observable.
	cart.Clear()

	changed := events.StockChanged{Source: "sale:" + sale.ID.String()}
	for _, item := range items {
		changed.Items = append(changed.Items, events.StockChangedItem{
			ProductID: item.ProductID.String(),
			Delta:     -item.Quantity,
		})
	}
	c.bus.Publish(changed)
	c.setState(StateCommitted)

	c.logger.Info("Sale committed",
		zap.String("sale_id", sale.ID.String()),
		zap.Int("lines", len(items)),
		zap.String("total", sale.Total.StringFixed(2)),
	)

	return sale, nil
}
