package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pharmacy-ms/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrPurchaseNotPending = errors.New("purchase is not pending")
)

// PurchaseRepository defines the interface for purchase order persistence
type PurchaseRepository interface {
	// CreatePurchase persists the order header and its line items as a
	// single transaction. Stock is untouched until the order completes.
	CreatePurchase(ctx context.Context, purchase *domain.Purchase, items []domain.PurchaseItem) error
	List(ctx context.Context, limit, offset int) ([]*domain.Purchase, int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, []*domain.PurchaseItem, error)
	// CompletePurchase moves a pending order to completed and increments
	// stock for every line in the same transaction, returning the lines
	// that were received. Orders already completed or cancelled are left
	// untouched.
	CompletePurchase(ctx context.Context, id uuid.UUID) ([]domain.PurchaseItem, error)
	// CancelPurchase moves a pending order to cancelled without touching
	// stock.
	CancelPurchase(ctx context.Context, id uuid.UUID) error
}

type purchaseRepository struct {
	db *sql.DB
}

// NewPurchaseRepository creates a new instance of PurchaseRepository
func NewPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

const purchaseColumns = `id, user_id, supplier_id, purchase_date, total_amount, status, notes, created_at, updated_at`

// CreatePurchase inserts the order header and its items in one transaction
func (r *purchaseRepository) CreatePurchase(ctx context.Context, purchase *domain.Purchase, items []domain.PurchaseItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin purchase transaction: %w", err)
	}
	defer tx.Rollback()

	headerQuery := `
		INSERT INTO purchases (id, user_id, supplier_id, purchase_date, total_amount, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err = tx.ExecContext(
		ctx,
		headerQuery,
		purchase.ID,
		purchase.UserID,
		purchase.SupplierID,
		purchase.PurchaseDate,
		purchase.Total,
		purchase.Status,
		purchase.Notes,
		purchase.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase header: %w", err)
	}

	itemQuery := `
		INSERT INTO purchase_items (id, purchase_id, product_id, quantity, unit_cost, line_cost, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, itemQuery, item.ID, item.PurchaseID, item.ProductID, item.Quantity, item.UnitCost, item.LineCost, item.Expiry); err != nil {
			return fmt.Errorf("failed to insert purchase item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit purchase: %w", err)
	}

	return nil
}

// List retrieves purchase orders newest first with pagination
func (r *purchaseRepository) List(ctx context.Context, limit, offset int) ([]*domain.Purchase, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchases`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	purchases := []*domain.Purchase{}
	for rows.Next() {
		purchase := &domain.Purchase{}
		if err := scanPurchase(rows, purchase); err != nil {
			return nil, 0, err
		}
		purchases = append(purchases, purchase)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating purchases: %w", err)
	}

	return purchases, total, nil
}

// FindByID retrieves a purchase order together with its line items
func (r *purchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, []*domain.PurchaseItem, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`

	purchase := &domain.Purchase{}
	if err := scanPurchase(r.db.QueryRowContext(ctx, query, id), purchase); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrPurchaseNotFound
		}
		return nil, nil, err
	}

	items, err := r.itemsByPurchase(ctx, r.db, id)
	if err != nil {
		return nil, nil, err
	}

	return purchase, items, nil
}

// CompletePurchase receives a pending order into stock. The status flip
// is conditional on the order still being pending, so two concurrent
// completions can never double-increment: the losing writer sees zero
// rows affected.
func (r *purchaseRepository) CompletePurchase(ctx context.Context, id uuid.UUID) ([]domain.PurchaseItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin completion transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.transition(ctx, tx, id, domain.PurchaseCompleted); err != nil {
		return nil, err
	}

	rows, err := r.itemsByPurchase(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	incrementQuery := `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`

	received := make([]domain.PurchaseItem, 0, len(rows))
	for _, item := range rows {
		result, err := tx.ExecContext(ctx, incrementQuery, item.ProductID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to increment stock: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check increment result: %w", err)
		}
		if affected == 0 {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, ErrProductNotFound)
		}
		received = append(received, *item)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}

	return received, nil
}

// CancelPurchase cancels a pending order
func (r *purchaseRepository) CancelPurchase(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cancellation transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.transition(ctx, tx, id, domain.PurchaseCancelled); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	return nil
}

// transition flips a pending order into a terminal status, mapping a
// zero-row update to either not-found or not-pending.
func (r *purchaseRepository) transition(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.PurchaseStatus) error {
	result, err := tx.ExecContext(ctx, `UPDATE purchases SET status = $2 WHERE id = $1 AND status = 'pending'`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update purchase status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update result: %w", err)
	}
	if affected == 0 {
		var current domain.PurchaseStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM purchases WHERE id = $1`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return ErrPurchaseNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read purchase status: %w", err)
		}
		return ErrPurchaseNotPending
	}

	return nil
}

type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *purchaseRepository) itemsByPurchase(ctx context.Context, q rowQuerier, purchaseID uuid.UUID) ([]*domain.PurchaseItem, error) {
	query := `
		SELECT id, purchase_id, product_id, quantity, unit_cost, line_cost, expiry_date
		FROM purchase_items
		WHERE purchase_id = $1
	`

	rows, err := q.QueryContext(ctx, query, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase items: %w", err)
	}
	defer rows.Close()

	items := []*domain.PurchaseItem{}
	for rows.Next() {
		item := &domain.PurchaseItem{}
		err := rows.Scan(&item.ID, &item.PurchaseID, &item.ProductID, &item.Quantity, &item.UnitCost, &item.LineCost, &item.Expiry)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchase items: %w", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPurchase(row rowScanner, purchase *domain.Purchase) error {
	err := row.Scan(
		&purchase.ID,
		&purchase.UserID,
		&purchase.SupplierID,
		&purchase.PurchaseDate,
		&purchase.Total,
		&purchase.Status,
		&purchase.Notes,
		&purchase.CreatedAt,
		&purchase.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("failed to scan purchase: %w", err)
	}
	return nil
}
