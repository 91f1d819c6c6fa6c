// Package catalog holds the in-memory product snapshot the POS works
// against. The record store stays the authority for stock; this cache is
// refreshed on demand and whenever a committed sale changes stock levels.
package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"pharmacy-ms/internal/domain"
	"pharmacy-ms/internal/events"
	"pharmacy-ms/internal/pos"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Lister supplies the full product snapshot, typically the product
// repository.
type Lister interface {
	List(ctx context.Context) ([]*domain.Product, error)
}

const refreshTimeout = 5 * time.Second

// Catalog resolves scan codes against a point-in-time product snapshot.
type Catalog struct {
	mu       sync.RWMutex
	bySKU    map[string]*domain.Product
	byID     map[uuid.UUID]*domain.Product
	products Lister
	logger   *zap.Logger
}

func New(products Lister, logger *zap.Logger) *Catalog {
	return &Catalog{
		bySKU:    make(map[string]*domain.Product),
		byID:     make(map[uuid.UUID]*domain.Product),
		products: products,
		logger:   logger,
	}
}

// Refresh replaces the snapshot with the current record-store contents.
func (c *Catalog) Refresh(ctx context.Context) error {
	products, err := c.products.List(ctx)
	if err != nil {
		return err
	}

	bySKU := make(map[string]*domain.Product, len(products))
	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for _, p := range products {
		bySKU[normalize(p.SKU)] = p
		byID[p.ID] = p
	}

	c.mu.Lock()
	c.bySKU = bySKU
	c.byID = byID
	c.mu.Unlock()

	c.logger.Debug("Catalog snapshot refreshed", zap.Int("products", len(products)))
	return nil
}

// Subscribe refreshes the snapshot whenever a sale commit or a received
// purchase changes stock.
func (c *Catalog) Subscribe(bus *events.Bus) {
	bus.Subscribe(func(event events.StockChanged) {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := c.Refresh(ctx); err != nil {
			c.logger.Error("Catalog refresh after stock change failed",
				zap.String("source", event.Source),
				zap.Error(err),
			)
		}
	})
}

// Resolve matches a scanned or typed code against product SKUs. The code
// is trimmed first; matching is case-insensitive exact. A copy of the
// product is returned so callers cannot mutate the snapshot.
func (c *Catalog) Resolve(code string) (*domain.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pos.ErrInvalidInput
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	product, ok := c.bySKU[normalize(code)]
	if !ok {
		return nil, pos.ErrNotFound
	}

	copied := *product
	return &copied, nil
}

// StockOnHand reports the snapshot stock for a product, if known.
func (c *Catalog) StockOnHand(productID uuid.UUID) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	product, ok := c.byID[productID]
	if !ok {
		return 0, false
	}
	return product.Stock, true
}

// Products returns the snapshot in no particular order, for the on-screen
// product picker.
func (c *Catalog) Products() []*domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*domain.Product, 0, len(c.byID))
	for _, p := range c.byID {
		copied := *p
		out = append(out, &copied)
	}
	return out
}

func normalize(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
