package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pharmacy-ms/internal/domain"

	"github.com/google/uuid"
)

var ErrSupplierNotFound = errors.New("supplier not found")

// SupplierRepository defines the interface for supplier data access
type SupplierRepository interface {
	Create(ctx context.Context, supplier *domain.Supplier) error
	Update(ctx context.Context, supplier *domain.Supplier) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error)
	List(ctx context.Context) ([]*domain.Supplier, error)
}

type supplierRepository struct {
	db *sql.DB
}

// NewSupplierRepository creates a new instance of SupplierRepository
func NewSupplierRepository(db *sql.DB) SupplierRepository {
	return &supplierRepository{db: db}
}

const supplierColumns = `id, name, contact_person, email, phone, address, created_at, updated_at`

// Create inserts a new supplier
func (r *supplierRepository) Create(ctx context.Context, supplier *domain.Supplier) error {
	query := `
		INSERT INTO suppliers (id, name, contact_person, email, phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		supplier.ID,
		supplier.Name,
		supplier.ContactPerson,
		supplier.Email,
		supplier.Phone,
		supplier.Address,
		supplier.CreatedAt,
		supplier.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create supplier: %w", err)
	}

	return nil
}

// Update updates an existing supplier
func (r *supplierRepository) Update(ctx context.Context, supplier *domain.Supplier) error {
	query := `
		UPDATE suppliers
		SET name = $2, contact_person = $3, email = $4, phone = $5, address = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		supplier.ID,
		supplier.Name,
		supplier.ContactPerson,
		supplier.Email,
		supplier.Phone,
		supplier.Address,
	)
	if err != nil {
		return fmt.Errorf("failed to update supplier: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrSupplierNotFound
	}

	return nil
}

// Delete removes a supplier. Suppliers referenced by a purchase order
// are protected by the schema and cannot be deleted.
func (r *supplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrSupplierNotFound
	}

	return nil
}

// FindByID retrieves a supplier by its ID
func (r *supplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1`
	return r.scanSupplier(r.db.QueryRowContext(ctx, query, id))
}

// List retrieves all suppliers ordered by name
func (r *supplierRepository) List(ctx context.Context) ([]*domain.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := []*domain.Supplier{}
	for rows.Next() {
		supplier := &domain.Supplier{}
		err := rows.Scan(
			&supplier.ID,
			&supplier.Name,
			&supplier.ContactPerson,
			&supplier.Email,
			&supplier.Phone,
			&supplier.Address,
			&supplier.CreatedAt,
			&supplier.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, supplier)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suppliers: %w", err)
	}

	return suppliers, nil
}

func (r *supplierRepository) scanSupplier(row *sql.Row) (*domain.Supplier, error) {
	supplier := &domain.Supplier{}
	err := row.Scan(
		&supplier.ID,
		&supplier.Name,
		&supplier.ContactPerson,
		&supplier.Email,
		&supplier.Phone,
		&supplier.Address,
		&supplier.CreatedAt,
		&supplier.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("failed to find supplier: %w", err)
	}
	return supplier, nil
}
