package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"productstudio/internal/domain"
)

// SpecificationRepositoryPG implements domain.SpecificationRepository.
type SpecificationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSpecificationRepository creates a specification repository backed by
// PostgreSQL.
func NewSpecificationRepository(pool *pgxpool.Pool) *SpecificationRepositoryPG {
	return &SpecificationRepositoryPG{pool: pool}
}

const specificationColumns = `id, product_id, version, yaml_content, is_active, change_notes, primary_dimensions, primary_colors, material_type, analysis_model, confidence_overall, image_count, created_by, created_at`

// Create assigns version = max+1 for the product, deactivates every existing
// version and inserts the new row as active, all inside one transaction. The
// product row is locked for the duration so concurrent creates serialize; the
// unique (product_id, version) constraint is the backstop that turns a race
// into domain.ErrConflict.
func (r *SpecificationRepositoryPG) Create(ctx context.Context, spec *domain.Specification) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var productID string
	err = tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE;`, spec.ProductID).Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: product %s", domain.ErrNotFound, spec.ProductID)
		}
		return err
	}

	var nextVersion int
	err = tx.QueryRow(ctx, `
SELECT COALESCE(MAX(version), 0) + 1 FROM product_specifications WHERE product_id = $1;
`, spec.ProductID).Scan(&nextVersion)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
UPDATE product_specifications SET is_active = FALSE WHERE product_id = $1 AND is_active;
`, spec.ProductID); err != nil {
		return err
	}

	dimensions, colors, err := marshalDerived(spec)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
INSERT INTO product_specifications
  (id, product_id, version, yaml_content, is_active, change_notes, primary_dimensions, primary_colors, material_type, analysis_model, confidence_overall, image_count, created_by)
VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at;
`,
		spec.ID,
		spec.ProductID,
		nextVersion,
		spec.Document,
		spec.ChangeNotes,
		dimensions,
		colors,
		spec.MaterialType,
		nullableString(spec.AnalysisModel),
		spec.Confidence,
		spec.ImageCount,
		spec.CreatedBy,
	).Scan(&spec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: concurrent specification create for product %s", domain.ErrConflict, spec.ProductID)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	spec.Version = nextVersion
	spec.Active = true
	return nil
}

// Activate deactivates all versions for the owning product and activates the
// named one. Version numbers and document bodies are untouched; only the
// active flags move.
func (r *SpecificationRepositoryPG) Activate(ctx context.Context, id string) (*domain.Specification, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var productID string
	err = tx.QueryRow(ctx, `
SELECT product_id FROM product_specifications WHERE id = $1 FOR UPDATE;
`, id).Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
UPDATE product_specifications SET is_active = FALSE WHERE product_id = $1 AND is_active;
`, productID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
UPDATE product_specifications SET is_active = TRUE WHERE id = $1;
`, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetActive returns (nil, nil) when the product has no active specification.
func (r *SpecificationRepositoryPG) GetActive(ctx context.Context, productID string) (*domain.Specification, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+specificationColumns+`
FROM product_specifications
WHERE product_id = $1 AND is_active;
`, productID)
	spec, err := scanSpecification(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return spec, err
}

// GetByID fetches a specification by its identifier.
func (r *SpecificationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Specification, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+specificationColumns+` FROM product_specifications WHERE id = $1;
`, id)
	return scanSpecification(row)
}

// ListByProduct returns all versions, newest version first.
func (r *SpecificationRepositoryPG) ListByProduct(ctx context.Context, productID string) ([]domain.Specification, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+specificationColumns+`
FROM product_specifications
WHERE product_id = $1
ORDER BY version DESC;
`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specs []domain.Specification
	for rows.Next() {
		spec, err := scanSpecification(rows)
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return specs, rows.Err()
}

func marshalDerived(spec *domain.Specification) ([]byte, []byte, error) {
	var dimensions, colors []byte
	var err error
	if spec.PrimaryDimensions != nil {
		if dimensions, err = json.Marshal(spec.PrimaryDimensions); err != nil {
			return nil, nil, err
		}
	}
	if len(spec.PrimaryColors) > 0 {
		if colors, err = json.Marshal(spec.PrimaryColors); err != nil {
			return nil, nil, err
		}
	}
	return dimensions, colors, nil
}

func scanSpecification(row pgx.Row) (*domain.Specification, error) {
	var spec domain.Specification
	var dimensions, colors []byte
	var analysisModel *string
	if err := row.Scan(
		&spec.ID,
		&spec.ProductID,
		&spec.Version,
		&spec.Document,
		&spec.Active,
		&spec.ChangeNotes,
		&dimensions,
		&colors,
		&spec.MaterialType,
		&analysisModel,
		&spec.Confidence,
		&spec.ImageCount,
		&spec.CreatedBy,
		&spec.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(dimensions) > 0 {
		spec.PrimaryDimensions = &domain.Dimensions{}
		if err := json.Unmarshal(dimensions, spec.PrimaryDimensions); err != nil {
			spec.PrimaryDimensions = nil
		}
	}
	if len(colors) > 0 {
		if err := json.Unmarshal(colors, &spec.PrimaryColors); err != nil {
			spec.PrimaryColors = nil
		}
	}
	if analysisModel != nil {
		spec.AnalysisModel = *analysisModel
	}
	return &spec, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ domain.SpecificationRepository = (*SpecificationRepositoryPG)(nil)
