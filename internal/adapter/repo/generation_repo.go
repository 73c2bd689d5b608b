package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"productstudio/internal/domain"
)

// GenerationRepositoryPG implements domain.GenerationRepository.
type GenerationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewGenerationRepository creates a generation repository backed by
// PostgreSQL.
func NewGenerationRepository(pool *pgxpool.Pool) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{pool: pool}
}

const requestColumns = `id, product_id, specification_id, prompt, custom_prompt_override, aspect_ratio, resolution, image_count, status, cancel_requested, error_message, created_by, created_at, started_at, completed_at`

const imageColumns = `id, generation_request_id, product_id, filename, storage_path, file_size_bytes, mime_type, width, height, generation_index, model_response_text, created_at`

// CreateRequest inserts a new request in pending state.
func (r *GenerationRepositoryPG) CreateRequest(ctx context.Context, req *domain.GenerationRequest) error {
	query := `
INSERT INTO generation_requests
  (id, product_id, specification_id, prompt, custom_prompt_override, aspect_ratio, resolution, image_count, status, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at;
`
	return r.pool.QueryRow(ctx, query,
		req.ID,
		req.ProductID,
		req.SpecificationID,
		req.Prompt,
		req.CustomPrompt,
		req.AspectRatio,
		req.Resolution,
		req.ImageCount,
		req.Status,
		req.CreatedBy,
	).Scan(&req.CreatedAt)
}

// GetRequest fetches a request by its identifier.
func (r *GenerationRepositoryPG) GetRequest(ctx context.Context, id string) (*domain.GenerationRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM generation_requests WHERE id = $1;`, id)
	return scanRequest(row)
}

// ListRequestsByProduct returns a product's requests, newest first.
func (r *GenerationRepositoryPG) ListRequestsByProduct(ctx context.Context, productID string, limit, offset int) ([]domain.GenerationRequest, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+requestColumns+`
FROM generation_requests
WHERE product_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3;
`, productID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.GenerationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// ClaimNextPending atomically claims the oldest pending request and flips it
// to processing. SKIP LOCKED keeps concurrent workers from claiming the same
// row. Returns (nil, nil) when nothing is pending.
func (r *GenerationRepositoryPG) ClaimNextPending(ctx context.Context) (*domain.GenerationRequest, error) {
	row := r.pool.QueryRow(ctx, `
WITH next_request AS (
    SELECT id
    FROM generation_requests
    WHERE status = 'pending'
    ORDER BY created_at ASC
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
UPDATE generation_requests gr
SET status = 'processing', started_at = NOW()
WHERE gr.id IN (SELECT id FROM next_request)
RETURNING `+requestColumns+`;
`)
	req, err := scanRequest(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return req, err
}

// MarkProcessing transitions pending to processing and stamps started_at.
// It is a no-op for requests already in processing (the claim query stamped
// them) and returns false for terminal requests.
func (r *GenerationRepositoryPG) MarkProcessing(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE generation_requests
SET status = 'processing',
    started_at = COALESCE(started_at, $2)
WHERE id = $1 AND status IN ('pending', 'processing');
`, id, startedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCompleted transitions the request to its terminal completed state.
func (r *GenerationRepositoryPG) MarkCompleted(ctx context.Context, id string, completedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
UPDATE generation_requests
SET status = 'completed', completed_at = $2
WHERE id = $1 AND status = 'processing';
`, id, completedAt)
	return err
}

// MarkFailed transitions the request to its terminal failed state with a
// human-readable cause. Failure is still "done": completed_at is stamped.
func (r *GenerationRepositoryPG) MarkFailed(ctx context.Context, id string, message string, completedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
UPDATE generation_requests
SET status = 'failed', error_message = $2, completed_at = $3
WHERE id = $1 AND status IN ('pending', 'processing');
`, id, message, completedAt)
	return err
}

// RequestCancel sets the cancellation flag on a non-terminal request. The
// processing loop observes it at the next safe checkpoint.
func (r *GenerationRepositoryPG) RequestCancel(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE generation_requests
SET cancel_requested = TRUE
WHERE id = $1 AND status IN ('pending', 'processing');
`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CancelRequested reads the cancellation flag.
func (r *GenerationRepositoryPG) CancelRequested(ctx context.Context, id string) (bool, error) {
	var cancelled bool
	err := r.pool.QueryRow(ctx, `
SELECT cancel_requested FROM generation_requests WHERE id = $1;
`, id).Scan(&cancelled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return cancelled, nil
}

// DeleteRequest removes the request and its image rows in one transaction.
// Backing files are the caller's responsibility.
func (r *GenerationRepositoryPG) DeleteRequest(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM generated_images WHERE generation_request_id = $1;`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM generation_requests WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit(ctx)
}

// CreateImage inserts one generated image row.
func (r *GenerationRepositoryPG) CreateImage(ctx context.Context, image *domain.GeneratedImage) error {
	query := `
INSERT INTO generated_images
  (id, generation_request_id, product_id, filename, storage_path, file_size_bytes, mime_type, width, height, generation_index, model_response_text)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING created_at;
`
	return r.pool.QueryRow(ctx, query,
		image.ID,
		image.RequestID,
		image.ProductID,
		image.Filename,
		image.StoragePath,
		image.SizeBytes,
		image.MIMEType,
		image.Width,
		image.Height,
		image.GenerationIndex,
		image.ModelResponse,
	).Scan(&image.CreatedAt)
}

// ListImages returns a request's images in generation order.
func (r *GenerationRepositoryPG) ListImages(ctx context.Context, requestID string) ([]domain.GeneratedImage, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+imageColumns+`
FROM generated_images
WHERE generation_request_id = $1
ORDER BY generation_index ASC;
`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectImages(rows)
}

// ListGallery returns a product's generated images, newest first.
func (r *GenerationRepositoryPG) ListGallery(ctx context.Context, productID string, limit, offset int) ([]domain.GeneratedImage, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+imageColumns+`
FROM generated_images
WHERE product_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3;
`, productID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectImages(rows)
}

func collectImages(rows pgx.Rows) ([]domain.GeneratedImage, error) {
	var images []domain.GeneratedImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

func scanRequest(row pgx.Row) (*domain.GenerationRequest, error) {
	var req domain.GenerationRequest
	if err := row.Scan(
		&req.ID,
		&req.ProductID,
		&req.SpecificationID,
		&req.Prompt,
		&req.CustomPrompt,
		&req.AspectRatio,
		&req.Resolution,
		&req.ImageCount,
		&req.Status,
		&req.CancelRequested,
		&req.ErrorMessage,
		&req.CreatedBy,
		&req.CreatedAt,
		&req.StartedAt,
		&req.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func scanImage(row pgx.Row) (*domain.GeneratedImage, error) {
	var img domain.GeneratedImage
	if err := row.Scan(
		&img.ID,
		&img.RequestID,
		&img.ProductID,
		&img.Filename,
		&img.StoragePath,
		&img.SizeBytes,
		&img.MIMEType,
		&img.Width,
		&img.Height,
		&img.GenerationIndex,
		&img.ModelResponse,
		&img.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

var _ domain.GenerationRepository = (*GenerationRepositoryPG)(nil)
