package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pharmacy-ms/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock on hand")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
	CountLowStock(ctx context.Context, threshold int) (int, error)
	CountExpiring(ctx context.Context, before time.Time) (int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, sku, name, unit_price, stock, expiry, created_at, updated_at`

// Create inserts a new product using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, sku, name, unit_price, stock, expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.SKU,
		product.Name,
		product.UnitPrice,
		product.Stock,
		product.Expiry,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET sku = $2, name = $3, unit_price = $4, stock = $5, expiry = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.SKU,
		product.Name,
		product.UnitPrice,
		product.Stock,
		product.Expiry,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	return r.scanProduct(r.db.QueryRowContext(ctx, query, id))
}

// FindBySKU retrieves a product by SKU, matched case-insensitively
func (r *productRepository) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE UPPER(sku) = UPPER($1)`, productColumns)
	return r.scanProduct(r.db.QueryRowContext(ctx, query, sku))
}

// List retrieves the full product snapshot ordered by name
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY name`, productColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.SKU,
			&product.Name,
			&product.UnitPrice,
			&product.Stock,
			&product.Expiry,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// stockExecer runs the conditional decrement against either the pool or
// an open transaction.
type stockExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// decrementStock reduces stock by quantity in a single conditional
// update, so two concurrent sales can never both pass a stale stock
// check: the losing writer sees zero rows affected. Both the standalone
// repository call and the sale transaction go through this one update.
func decrementStock(ctx context.Context, e stockExecer, id uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`

	result, err := e.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}

// DecrementStock applies the conditional decrement, distinguishing a
// missing product from a stock shortfall.
func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	err := decrementStock(ctx, r.db, id, quantity)
	if errors.Is(err, ErrInsufficientStock) {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return findErr
		}
	}
	return err
}

// CountLowStock counts products at or below the low-stock threshold
func (r *productRepository) CountLowStock(ctx context.Context, threshold int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE stock <= $1`, threshold).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count low stock products: %w", err)
	}
	return count, nil
}

// CountExpiring counts products expiring on or before the given date
func (r *productRepository) CountExpiring(ctx context.Context, before time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE expiry IS NOT NULL AND expiry <= $1`, before).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count expiring products: %w", err)
	}
	return count, nil
}

func (r *productRepository) scanProduct(row *sql.Row) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.UnitPrice,
		&product.Stock,
		&product.Expiry,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	return product, nil
}
