package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pharmacy-ms/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DayTotal is one day's committed sales total.
type DayTotal struct {
	Day   time.Time
	Total decimal.Decimal
}

// SaleRepository defines the interface for sale persistence
type SaleRepository interface {
	// CreateSale persists the header, the line items and the matching
	// stock decrements as a single transaction. Either everything is
	// committed or nothing is; a dangling header can never be left
	// behind.
	CreateSale(ctx context.Context, sale *domain.Sale, items []domain.SaleItem) error
	List(ctx context.Context, limit, offset int) ([]*domain.Sale, int, error)
	ItemsBySale(ctx context.Context, saleID uuid.UUID) ([]*domain.SaleItem, error)
	TotalsByDay(ctx context.Context, since time.Time) ([]DayTotal, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

// CreateSale inserts the sale header and its items, decrementing stock
// for every line with a conditional update inside the same transaction.
func (r *saleRepository) CreateSale(ctx context.Context, sale *domain.Sale, items []domain.SaleItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sale transaction: %w", err)
	}
	defer tx.Rollback()

	headerQuery := `
		INSERT INTO sales (id, user_id, sale_date, subtotal_amount, tax_amount, total_amount, payment_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(
		ctx,
		headerQuery,
		sale.ID,
		sale.UserID,
		sale.SaleDate,
		sale.Subtotal,
		sale.Tax,
		sale.Total,
		sale.PaymentMethod,
		sale.SaleDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale header: %w", err)
	}

	itemQuery := `
		INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, itemQuery, item.ID, item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal); err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}

		if err := decrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("product %s: %w", item.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sale: %w", err)
	}

	return nil
}

// List retrieves committed sales newest first with pagination
func (r *saleRepository) List(ctx context.Context, limit, offset int) ([]*domain.Sale, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	query := `
		SELECT id, user_id, sale_date, subtotal_amount, tax_amount, total_amount, payment_method, created_at
		FROM sales
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := []*domain.Sale{}
	for rows.Next() {
		sale := &domain.Sale{}
		err := rows.Scan(
			&sale.ID,
			&sale.UserID,
			&sale.SaleDate,
			&sale.Subtotal,
			&sale.Tax,
			&sale.Total,
			&sale.PaymentMethod,
			&sale.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating sales: %w", err)
	}

	return sales, total, nil
}

// ItemsBySale retrieves the line items of one sale
func (r *saleRepository) ItemsBySale(ctx context.Context, saleID uuid.UUID) ([]*domain.SaleItem, error) {
	query := `
		SELECT id, sale_id, product_id, quantity, unit_price, line_total
		FROM sale_items
		WHERE sale_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sale items: %w", err)
	}
	defer rows.Close()

	items := []*domain.SaleItem{}
	for rows.Next() {
		item := &domain.SaleItem{}
		err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale items: %w", err)
	}

	return items, nil
}

// TotalsByDay aggregates committed sales per calendar day since the given
// time, oldest day first. Days with no sales are absent from the result.
func (r *saleRepository) TotalsByDay(ctx context.Context, since time.Time) ([]DayTotal, error) {
	query := `
		SELECT DATE(sale_date) AS day, COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE sale_date >= $1
		GROUP BY DATE(sale_date)
		ORDER BY day
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales by day: %w", err)
	}
	defer rows.Close()

	totals := []DayTotal{}
	for rows.Next() {
		var dt DayTotal
		if err := rows.Scan(&dt.Day, &dt.Total); err != nil {
			return nil, fmt.Errorf("failed to scan day total: %w", err)
		}
		totals = append(totals, dt)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating day totals: %w", err)
	}

	return totals, nil
}
