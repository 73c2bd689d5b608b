package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"productstudio/internal/domain"
)

// ReferenceImageRepositoryPG implements domain.ReferenceImageRepository.
type ReferenceImageRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewReferenceImageRepository creates a reference image repository backed by
// PostgreSQL.
func NewReferenceImageRepository(pool *pgxpool.Pool) *ReferenceImageRepositoryPG {
	return &ReferenceImageRepositoryPG{pool: pool}
}

const referenceColumns = `id, product_id, filename, storage_path, file_size_bytes, mime_type, width, height, is_primary, display_order, uploaded_by, uploaded_at`

// Create inserts a new reference image row.
func (r *ReferenceImageRepositoryPG) Create(ctx context.Context, image *domain.ReferenceImage) error {
	query := `
INSERT INTO product_reference_images
  (id, product_id, filename, storage_path, file_size_bytes, mime_type, width, height, is_primary, display_order, uploaded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING uploaded_at;
`
	return r.pool.QueryRow(ctx, query,
		image.ID,
		image.ProductID,
		image.Filename,
		image.StoragePath,
		image.SizeBytes,
		image.MIMEType,
		image.Width,
		image.Height,
		image.Primary,
		image.DisplayOrder,
		image.UploadedBy,
	).Scan(&image.UploadedAt)
}

// GetByID fetches a reference image by its identifier.
func (r *ReferenceImageRepositoryPG) GetByID(ctx context.Context, id string) (*domain.ReferenceImage, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+referenceColumns+` FROM product_reference_images WHERE id = $1;`, id)
	return scanReferenceImage(row)
}

// ListByProduct returns a product's images ordered by display order.
func (r *ReferenceImageRepositoryPG) ListByProduct(ctx context.Context, productID string) ([]domain.ReferenceImage, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+referenceColumns+`
FROM product_reference_images
WHERE product_id = $1
ORDER BY display_order ASC;
`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []domain.ReferenceImage
	for rows.Next() {
		img, err := scanReferenceImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

// CountByProduct returns how many reference images the product has.
func (r *ReferenceImageRepositoryPG) CountByProduct(ctx context.Context, productID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM product_reference_images WHERE product_id = $1;
`, productID).Scan(&count)
	return count, err
}

// MaxDisplayOrder returns the highest display order in use, or -1 when the
// product has no images.
func (r *ReferenceImageRepositoryPG) MaxDisplayOrder(ctx context.Context, productID string) (int, error) {
	var maxOrder int
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(MAX(display_order), -1) FROM product_reference_images WHERE product_id = $1;
`, productID).Scan(&maxOrder)
	return maxOrder, err
}

// UpdateDisplayOrder sets the display order directly. Siblings are not
// renumbered; contiguity is not enforced.
func (r *ReferenceImageRepositoryPG) UpdateDisplayOrder(ctx context.Context, id string, order int) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE product_reference_images SET display_order = $2 WHERE id = $1;
`, id, order)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetPrimary clears the primary flag on sibling images and sets it on the
// named one, in a single transaction.
func (r *ReferenceImageRepositoryPG) SetPrimary(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var productID string
	err = tx.QueryRow(ctx, `
SELECT product_id FROM product_reference_images WHERE id = $1 FOR UPDATE;
`, id).Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx, `
UPDATE product_reference_images SET is_primary = FALSE WHERE product_id = $1 AND is_primary;
`, productID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
UPDATE product_reference_images SET is_primary = TRUE WHERE id = $1;
`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Delete removes the row. The caller is responsible for the backing file.
func (r *ReferenceImageRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM product_reference_images WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanReferenceImage(row pgx.Row) (*domain.ReferenceImage, error) {
	var img domain.ReferenceImage
	if err := row.Scan(
		&img.ID,
		&img.ProductID,
		&img.Filename,
		&img.StoragePath,
		&img.SizeBytes,
		&img.MIMEType,
		&img.Width,
		&img.Height,
		&img.Primary,
		&img.DisplayOrder,
		&img.UploadedBy,
		&img.UploadedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

var _ domain.ReferenceImageRepository = (*ReferenceImageRepositoryPG)(nil)
