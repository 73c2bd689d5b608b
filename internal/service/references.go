package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"productstudio/internal/domain"
	"productstudio/internal/imaging"
	"productstudio/internal/storage"
)

// References manages the upload lifecycle of product reference images: quota,
// content-type allow-list, primary designation and display ordering.
type References struct {
	products domain.ProductRepository
	repo     domain.ReferenceImageRepository
	store    storage.Store
	logger   zerolog.Logger
}

// NewReferences constructs the reference image service.
func NewReferences(products domain.ProductRepository, repo domain.ReferenceImageRepository, store storage.Store, logger zerolog.Logger) *References {
	return &References{products: products, repo: repo, store: store, logger: logger}
}

// AddReferenceParams carries one uploaded image.
type AddReferenceParams struct {
	ProductID  string
	Filename   string
	MIMEType   string
	Data       []byte
	UploadedBy string
}

// Add validates and stores an uploaded reference image. The first image of a
// product becomes primary automatically; display order is the current maximum
// plus one, so orders stay monotonic even after deletions. The file is written
// before the row: a row insert failure leaves at worst an orphan file, never a
// row pointing at nothing.
func (s *References) Add(ctx context.Context, p AddReferenceParams) (*domain.ReferenceImage, error) {
	product, err := s.products.GetByID(ctx, p.ProductID)
	if err != nil {
		return nil, err
	}
	if len(p.Data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrInvalidInput)
	}
	if !imaging.Allowed(p.MIMEType) {
		return nil, fmt.Errorf("%w: unsupported content type %q", domain.ErrInvalidInput, p.MIMEType)
	}

	count, err := s.repo.CountByProduct(ctx, p.ProductID)
	if err != nil {
		return nil, err
	}
	if count >= domain.MaxReferenceImages {
		return nil, fmt.Errorf("%w: product already has %d reference images", domain.ErrQuotaExceeded, domain.MaxReferenceImages)
	}

	maxOrder, err := s.repo.MaxDisplayOrder(ctx, p.ProductID)
	if err != nil {
		return nil, err
	}

	width, height := imaging.Probe(p.Data)
	stored := fmt.Sprintf("ref-%s%s", strings.ReplaceAll(uuid.NewString(), "-", ""), imaging.Extension(p.MIMEType))
	key, err := s.store.Put(ctx, storage.ReferenceKey(product.Slug, stored), p.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	img := &domain.ReferenceImage{
		ID:           uuid.NewString(),
		ProductID:    p.ProductID,
		Filename:     p.Filename,
		StoragePath:  key,
		SizeBytes:    int64(len(p.Data)),
		MIMEType:     p.MIMEType,
		Width:        width,
		Height:       height,
		Primary:      count == 0,
		DisplayOrder: maxOrder + 1,
		UploadedBy:   p.UploadedBy,
	}
	if err := s.repo.Create(ctx, img); err != nil {
		// Orphan file; the database stays authoritative.
		if _, delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn().Err(delErr).Str("key", key).Msg("cleanup of orphan reference file failed")
		}
		return nil, err
	}

	s.logger.Info().
		Str("product_id", p.ProductID).
		Str("reference_id", img.ID).
		Bool("primary", img.Primary).
		Msg("reference image added")
	return img, nil
}

// Get fetches a single reference image.
func (s *References) Get(ctx context.Context, id string) (*domain.ReferenceImage, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a product's reference images in display order.
func (s *References) List(ctx context.Context, productID string) ([]domain.ReferenceImage, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListByProduct(ctx, productID)
}

// Delete removes the row and then the backing file. The file delete is
// best-effort: a leftover file is harmless, a dangling row is not.
func (s *References) Delete(ctx context.Context, id string) error {
	img, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if _, err := s.store.Delete(ctx, img.StoragePath); err != nil {
		s.logger.Warn().Err(err).Str("key", img.StoragePath).Msg("reference file delete failed")
	}
	return nil
}

// Reorder sets the display order of one image. Orders are not renumbered and
// need not be contiguous.
func (s *References) Reorder(ctx context.Context, id string, order int) error {
	if order < 0 {
		return fmt.Errorf("%w: display order must be non-negative", domain.ErrInvalidInput)
	}
	return s.repo.UpdateDisplayOrder(ctx, id, order)
}

// SetPrimary promotes the named image; the previous primary is demoted in the
// same transaction.
func (s *References) SetPrimary(ctx context.Context, id string) error {
	return s.repo.SetPrimary(ctx, id)
}
