package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"productstudio/internal/domain"
	"productstudio/internal/providers/vision"
	"productstudio/internal/storage"
)

// Analysis runs the vision model over a product's reference images and turns
// the result into a new specification version.
type Analysis struct {
	products   domain.ProductRepository
	references domain.ReferenceImageRepository
	specs      *Specifications
	store      storage.Store
	analyzer   vision.Analyzer
	logger     zerolog.Logger
}

// NewAnalysis constructs the analysis service.
func NewAnalysis(products domain.ProductRepository, references domain.ReferenceImageRepository, specs *Specifications, store storage.Store, analyzer vision.Analyzer, logger zerolog.Logger) *Analysis {
	return &Analysis{
		products:   products,
		references: references,
		specs:      specs,
		store:      store,
		analyzer:   analyzer,
		logger:     logger,
	}
}

// Analyze loads every reference image of the product, sends them to the vision
// model and persists the returned document as a new active specification
// version with analysis provenance attached.
func (s *Analysis) Analyze(ctx context.Context, productID, requestedBy string) (*domain.Specification, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	refs, err := s.references.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: product has no reference images", domain.ErrInvalidInput)
	}

	images := make([]vision.ImageInput, 0, len(refs))
	for _, ref := range refs {
		data, err := s.store.Get(ctx, ref.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("%w: read reference %s: %v", domain.ErrStorageFailure, ref.ID, err)
		}
		images = append(images, vision.ImageInput{Data: data, MIME: ref.MIMEType})
	}

	result, err := s.analyzer.Analyze(ctx, vision.AnalyzeRequest{
		ProductName: product.Name,
		Images:      images,
	})
	if err != nil {
		return nil, err
	}
	if result.Degraded {
		s.logger.Warn().Str("product_id", productID).Msg("analysis produced no structured fields")
	}

	imageCount := len(refs)
	return s.specs.Create(ctx, CreateSpecificationParams{
		ProductID:     productID,
		Document:      result.Document,
		ChangeNotes:   "automated vision analysis",
		CreatedBy:     requestedBy,
		AnalysisModel: result.Model,
		ImageCount:    &imageCount,
	})
}
