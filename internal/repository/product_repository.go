package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"products-backend/internal/domain"
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	List(ctx context.Context) ([]*domain.Product, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	Insert(ctx context.Context, attrs domain.Attributes) (*domain.Product, error)
	UpdateByID(ctx context.Context, id int64, patch domain.Attributes) (*domain.Product, error)
	DeleteByID(ctx context.Context, id int64) error
}

const productColumns = `id, attributes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a ProductRepository backed by database/sql
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Attributes,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// List retrieves every product ordered by id
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
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

// FindByID retrieves a product by primary key
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// Insert persists a new product and returns it with its generated id
func (r *productRepository) Insert(ctx context.Context, attrs domain.Attributes) (*domain.Product, error) {
	query := `
		INSERT INTO products (attributes)
		VALUES ($1::jsonb)
		RETURNING ` + productColumns

	if attrs == nil {
		attrs = domain.Attributes{}
	}

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, attrs))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// UpdateByID merges patch into the stored attributes. Keys absent from
// patch keep their stored values.
func (r *productRepository) UpdateByID(ctx context.Context, id int64, patch domain.Attributes) (*domain.Product, error) {
	query := `
		UPDATE products
		SET attributes = attributes || $2::jsonb
		WHERE id = $1
		RETURNING ` + productColumns

	if patch == nil {
		patch = domain.Attributes{}
	}

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id, patch))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// DeleteByID removes a product
func (r *productRepository) DeleteByID(ctx context.Context, id int64) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}
