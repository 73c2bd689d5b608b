package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"productstudio/internal/domain"
)

// ProductRepositoryPG implements domain.ProductRepository.
type ProductRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a new product repository backed by PostgreSQL.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepositoryPG {
	return &ProductRepositoryPG{pool: pool}
}

const productColumns = `id, slug, name, description, category, tags, is_active, created_by, created_at, updated_at`

// Create inserts a new product record. A duplicate slug surfaces as
// domain.ErrConflict.
func (r *ProductRepositoryPG) Create(ctx context.Context, product *domain.Product) error {
	query := `
INSERT INTO products (id, slug, name, description, category, tags, is_active, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at, updated_at;
`
	err := r.pool.QueryRow(ctx, query,
		product.ID,
		product.Slug,
		product.Name,
		product.Description,
		product.Category,
		product.Tags,
		product.Active,
		product.CreatedBy,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slug %q already exists", domain.ErrConflict, product.Slug)
		}
		return err
	}
	return nil
}

// GetByID fetches a product by its identifier.
func (r *ProductRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1;`, id)
	return scanProduct(row)
}

// GetBySlug fetches a product by its unique slug.
func (r *ProductRepositoryPG) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1;`, slug)
	return scanProduct(row)
}

// List returns active products, newest first.
func (r *ProductRepositoryPG) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+productColumns+`
FROM products
WHERE is_active
ORDER BY created_at DESC
LIMIT $1 OFFSET $2;
`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// Update persists mutable product attributes.
func (r *ProductRepositoryPG) Update(ctx context.Context, product *domain.Product) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE products
SET name = $2,
    description = $3,
    category = $4,
    tags = $5,
    updated_at = NOW()
WHERE id = $1;
`, product.ID, product.Name, product.Description, product.Category, product.Tags)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a product; history stays queryable.
func (r *ProductRepositoryPG) Deactivate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1;
`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.Tags,
		&p.Active,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

var _ domain.ProductRepository = (*ProductRepositoryPG)(nil)
