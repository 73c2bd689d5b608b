package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"productstudio/internal/domain"
	"productstudio/internal/specdoc"
	"productstudio/internal/storage"
)

// Specifications manages the versioned specification documents of a product.
// Every create yields a new version; exactly one version per product is active
// at any time and activation of an old version is the rollback mechanism.
type Specifications struct {
	products domain.ProductRepository
	repo     domain.SpecificationRepository
	store    storage.Store
	logger   zerolog.Logger
}

// NewSpecifications constructs the specification service.
func NewSpecifications(products domain.ProductRepository, repo domain.SpecificationRepository, store storage.Store, logger zerolog.Logger) *Specifications {
	return &Specifications{products: products, repo: repo, store: store, logger: logger}
}

// CreateSpecificationParams carries a new specification document. The
// provenance fields are set by the analysis pipeline and left empty for
// manually submitted documents.
type CreateSpecificationParams struct {
	ProductID     string
	Document      string
	ChangeNotes   string
	CreatedBy     string
	AnalysisModel string
	ImageCount    *int
}

// Create persists the document as the next version and makes it active. The
// quick-access fields are derived from the document text; a document that does
// not parse still becomes a valid version with null derived fields. A durable
// copy of the document is written to storage under the version's key.
func (s *Specifications) Create(ctx context.Context, p CreateSpecificationParams) (*domain.Specification, error) {
	if strings.TrimSpace(p.Document) == "" {
		return nil, fmt.Errorf("%w: specification document is required", domain.ErrInvalidInput)
	}
	product, err := s.products.GetByID(ctx, p.ProductID)
	if err != nil {
		return nil, err
	}

	fields := specdoc.Extract(p.Document)
	spec := &domain.Specification{
		ID:                uuid.NewString(),
		ProductID:         p.ProductID,
		Document:          p.Document,
		ChangeNotes:       p.ChangeNotes,
		PrimaryDimensions: fields.Dimensions,
		PrimaryColors:     fields.Colors,
		MaterialType:      fields.Material,
		AnalysisModel:     p.AnalysisModel,
		Confidence:        fields.Confidence,
		ImageCount:        p.ImageCount,
		CreatedBy:         p.CreatedBy,
	}
	if err := s.repo.Create(ctx, spec); err != nil {
		return nil, err
	}

	key := storage.SpecificationKey(product.Slug, spec.Version)
	if _, err := s.store.Put(ctx, key, []byte(p.Document)); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("durable specification copy failed")
		return spec, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	s.logger.Info().
		Str("product_id", p.ProductID).
		Str("specification_id", spec.ID).
		Int("version", spec.Version).
		Msg("specification version created")
	return spec, nil
}

// Activate makes the named version the active one for its product. The
// version number and document are untouched; this is how rollback works.
func (s *Specifications) Activate(ctx context.Context, id string) (*domain.Specification, error) {
	return s.repo.Activate(ctx, id)
}

// GetActive returns (nil, nil) when the product has no specification yet.
func (s *Specifications) GetActive(ctx context.Context, productID string) (*domain.Specification, error) {
	return s.repo.GetActive(ctx, productID)
}

// Get fetches a specification version by id.
func (s *Specifications) Get(ctx context.Context, id string) (*domain.Specification, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every version of a product, newest first.
func (s *Specifications) List(ctx context.Context, productID string) ([]domain.Specification, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListByProduct(ctx, productID)
}
