package pos

import (
	"strings"

	"pharmacy-ms/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one product entry in the cart. Name and UnitPrice are
// denormalized copies captured when the product was first added; they do
// not track later catalog edits within the same session. Stock is the
// stock on hand known at the time of the last successful mutation and is
// the ceiling for Quantity.
type Line struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Stock     int             `json:"stock"`
}

// CatalogSource resolves scan codes and reports current stock snapshots
// for products already in the cart.
type CatalogSource interface {
	Resolve(code string) (*domain.Product, error)
	StockOnHand(productID uuid.UUID) (int, bool)
}

// Cart is an ordered collection of lines with at most one line per
// product. Every mutation either succeeds completely or leaves the cart
// exactly as it was; business rejections are returned as errors, never
// panics. Cart itself is not safe for concurrent use; the owning
// Terminal serializes access.
type Cart struct {
	catalog CatalogSource
	lines   []Line
}

func NewCart(catalog CatalogSource) *Cart {
	return &Cart{catalog: catalog}
}

// AddBySKU resolves a scanned or typed code and adds one unit of the
// matching product, merging into an existing line when present.
func (c *Cart) AddBySKU(code string) error {
	if strings.TrimSpace(code) == "" {
		return ErrInvalidInput
	}

	product, err := c.catalog.Resolve(code)
	if err != nil {
		return err
	}

	return c.AddByProduct(product)
}

// AddByProduct applies the same guard logic as AddBySKU for a product the
// caller already resolved (catalog click-to-add).
func (c *Cart) AddByProduct(product *domain.Product) error {
	if product.Stock <= 0 {
		return ErrOutOfStock
	}

	if i := c.indexOf(product.ID); i >= 0 {
		if c.lines[i].Quantity+1 > product.Stock {
			return ErrInsufficientStock
		}
		c.lines[i].Quantity++
		c.lines[i].Stock = product.Stock
		return nil
	}

	c.lines = append(c.lines, Line{
		ProductID: product.ID,
		SKU:       product.SKU,
		Name:      product.Name,
		UnitPrice: product.UnitPrice,
		Quantity:  1,
		Stock:     product.Stock,
	})
	return nil
}

// SetQuantity replaces a line's quantity. Quantities below 1 are
// rejected; removing a line is an explicit RemoveLine call.
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidInput
	}

	i := c.indexOf(productID)
	if i < 0 {
		return ErrNotFound
	}

	stock := c.lines[i].Stock
	if current, ok := c.catalog.StockOnHand(productID); ok {
		stock = current
	}

	if quantity > stock {
		return ErrInsufficientStock
	}

	c.lines[i].Quantity = quantity
	c.lines[i].Stock = stock
	return nil
}

// RemoveLine deletes the line for the given product. Removing an absent
// line is a no-op, not an error.
func (c *Cart) RemoveLine(productID uuid.UUID) {
	i := c.indexOf(productID)
	if i < 0 {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// Clear empties the cart unconditionally.
func (c *Cart) Clear() {
	c.lines = nil
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
