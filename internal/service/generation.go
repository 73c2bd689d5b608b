package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"productstudio/internal/domain"
	"productstudio/internal/imaging"
	imageprovider "productstudio/internal/providers/image"
	"productstudio/internal/storage"
)

const defaultGenerationTimeout = 120 * time.Second

// Orchestrator drives generation requests through their lifecycle: pending,
// processing, completed or failed. Processing is sequential per request; a
// failure partway leaves the already committed images in place and records
// the cause on the request.
type Orchestrator struct {
	products   domain.ProductRepository
	references domain.ReferenceImageRepository
	specs      domain.SpecificationRepository
	requests   domain.GenerationRepository
	store      storage.Store
	generator  imageprovider.Generator
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewOrchestrator constructs the generation orchestrator. timeout bounds each
// individual model call, not the request as a whole.
func NewOrchestrator(
	products domain.ProductRepository,
	references domain.ReferenceImageRepository,
	specs domain.SpecificationRepository,
	requests domain.GenerationRepository,
	store storage.Store,
	generator imageprovider.Generator,
	timeout time.Duration,
	logger zerolog.Logger,
) *Orchestrator {
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	return &Orchestrator{
		products:   products,
		references: references,
		specs:      specs,
		requests:   requests,
		store:      store,
		generator:  generator,
		timeout:    timeout,
		logger:     logger,
	}
}

// CreateRequestParams carries a new generation request.
type CreateRequestParams struct {
	ProductID       string
	Prompt          string
	CustomPrompt    string
	SpecificationID *string
	AspectRatio     string
	Resolution      string
	ImageCount      int
	CreatedBy       string
}

// CreateRequest validates and persists a request in pending state. A nil
// specification id means "use whichever version is active when processing
// starts"; a pinned id must belong to the same product.
func (o *Orchestrator) CreateRequest(ctx context.Context, p CreateRequestParams) (*domain.GenerationRequest, error) {
	product, err := o.products.GetByID(ctx, p.ProductID)
	if err != nil {
		return nil, err
	}
	if p.Prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", domain.ErrInvalidInput)
	}
	if p.ImageCount < domain.MinImageCount || p.ImageCount > domain.MaxImageCount {
		return nil, fmt.Errorf("%w: image count must be between %d and %d",
			domain.ErrInvalidInput, domain.MinImageCount, domain.MaxImageCount)
	}
	if p.SpecificationID != nil {
		spec, err := o.specs.GetByID(ctx, *p.SpecificationID)
		if err != nil {
			return nil, err
		}
		if spec.ProductID != product.ID {
			return nil, fmt.Errorf("%w: specification belongs to another product", domain.ErrInvalidInput)
		}
	}
	if p.AspectRatio == "" {
		p.AspectRatio = "1:1"
	}
	if p.Resolution == "" {
		p.Resolution = "2K"
	}

	req := &domain.GenerationRequest{
		ID:              uuid.NewString(),
		ProductID:       p.ProductID,
		SpecificationID: p.SpecificationID,
		Prompt:          p.Prompt,
		CustomPrompt:    p.CustomPrompt,
		AspectRatio:     p.AspectRatio,
		Resolution:      p.Resolution,
		ImageCount:      p.ImageCount,
		Status:          domain.StatusPending,
		CreatedBy:       p.CreatedBy,
	}
	if err := o.requests.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	o.logger.Info().
		Str("request_id", req.ID).
		Str("product_id", req.ProductID).
		Int("image_count", req.ImageCount).
		Msg("generation request created")
	return req, nil
}

// Process executes one request to a terminal state. Any failure along the way
// is captured on the request as status=failed with a message; Process itself
// returns an error only when even that bookkeeping is impossible. Cancellation
// is checked before the first image and between images, never mid-call.
func (o *Orchestrator) Process(ctx context.Context, id string) error {
	req, err := o.requests.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			o.logger.Warn().Str("request_id", id).Msg("generation request vanished before processing")
			return nil
		}
		return err
	}
	if req.Status.Terminal() {
		return nil
	}
	if req.CancelRequested {
		o.fail(ctx, id, "cancelled by user")
		return nil
	}

	ok, err := o.requests.MarkProcessing(ctx, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	spec, failMsg := o.resolveSpecification(ctx, req)
	if failMsg != "" {
		o.fail(ctx, id, failMsg)
		return nil
	}

	product, err := o.products.GetByID(ctx, req.ProductID)
	if err != nil {
		o.fail(ctx, id, fmt.Sprintf("load product: %v", err))
		return nil
	}

	ref, failMsg := o.resolveReference(ctx, req.ProductID)
	if failMsg != "" {
		o.fail(ctx, id, failMsg)
		return nil
	}
	refData, err := o.store.Get(ctx, ref.StoragePath)
	if err != nil {
		o.fail(ctx, id, fmt.Sprintf("read reference image: %v", err))
		return nil
	}

	prompt := req.Prompt
	if req.CustomPrompt != "" {
		prompt = req.CustomPrompt
	}

	for i := 1; i <= req.ImageCount; i++ {
		cancelled, err := o.requests.CancelRequested(ctx, id)
		if err != nil {
			o.logger.Warn().Err(err).Str("request_id", id).Msg("cancellation check failed")
		}
		if cancelled {
			o.fail(ctx, id, "cancelled by user")
			return nil
		}

		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		result, err := o.generator.Generate(callCtx, imageprovider.GenerateRequest{
			ReferenceImage: refData,
			ReferenceMIME:  ref.MIMEType,
			SpecDocument:   spec.Document,
			Prompt:         prompt,
			AspectRatio:    req.AspectRatio,
			Resolution:     req.Resolution,
			RequestID:      id,
		})
		cancel()
		if err != nil {
			o.fail(ctx, id, fmt.Sprintf("generate image %d of %d: %v", i, req.ImageCount, err))
			return nil
		}

		now := time.Now().UTC()
		filename := fmt.Sprintf("gen-%s-%02d%s", id, i, imaging.Extension(result.MIME))
		key, err := o.store.Put(ctx, storage.GeneratedKey(product.Slug, now, filename), result.Data)
		if err != nil {
			o.fail(ctx, id, fmt.Sprintf("store image %d of %d: %v", i, req.ImageCount, err))
			return nil
		}

		width, height := imaging.Probe(result.Data)
		img := &domain.GeneratedImage{
			ID:              uuid.NewString(),
			RequestID:       id,
			ProductID:       req.ProductID,
			Filename:        filename,
			StoragePath:     key,
			SizeBytes:       int64(len(result.Data)),
			MIMEType:        result.MIME,
			Width:           width,
			Height:          height,
			GenerationIndex: i,
			ModelResponse:   result.Text,
		}
		if err := o.requests.CreateImage(ctx, img); err != nil {
			o.fail(ctx, id, fmt.Sprintf("record image %d of %d: %v", i, req.ImageCount, err))
			return nil
		}
	}

	if err := o.requests.MarkCompleted(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	o.logger.Info().
		Str("request_id", id).
		Int("image_count", req.ImageCount).
		Msg("generation request completed")
	return nil
}

// resolveSpecification returns the pinned version, or the currently active
// one when the request does not pin. The empty string means success.
func (o *Orchestrator) resolveSpecification(ctx context.Context, req *domain.GenerationRequest) (*domain.Specification, string) {
	if req.SpecificationID != nil {
		spec, err := o.specs.GetByID(ctx, *req.SpecificationID)
		if err != nil {
			return nil, fmt.Sprintf("load specification %s: %v", *req.SpecificationID, err)
		}
		return spec, ""
	}
	spec, err := o.specs.GetActive(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Sprintf("load active specification: %v", err)
	}
	if spec == nil {
		return nil, "product has no active specification"
	}
	return spec, ""
}

// resolveReference picks the primary reference image, falling back to the
// lowest display order when none is flagged.
func (o *Orchestrator) resolveReference(ctx context.Context, productID string) (*domain.ReferenceImage, string) {
	refs, err := o.references.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Sprintf("list reference images: %v", err)
	}
	if len(refs) == 0 {
		return nil, "product has no reference images"
	}
	for i := range refs {
		if refs[i].Primary {
			return &refs[i], ""
		}
	}
	return &refs[0], ""
}

func (o *Orchestrator) fail(ctx context.Context, id, message string) {
	if err := o.requests.MarkFailed(ctx, id, message, time.Now().UTC()); err != nil {
		o.logger.Error().Err(err).Str("request_id", id).Msg("marking request failed failed")
		return
	}
	o.logger.Warn().Str("request_id", id).Str("reason", message).Msg("generation request failed")
}

// Cancel flags a non-terminal request for cancellation. A still-pending
// request is failed immediately; a processing one stops at its next
// checkpoint and keeps the images committed so far.
func (o *Orchestrator) Cancel(ctx context.Context, id string) error {
	req, err := o.requests.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.Status.Terminal() {
		return fmt.Errorf("%w: request is already %s", domain.ErrInvalidInput, req.Status)
	}
	if err := o.requests.RequestCancel(ctx, id); err != nil {
		return err
	}
	if req.Status == domain.StatusPending {
		if err := o.requests.MarkFailed(ctx, id, "cancelled by user", time.Now().UTC()); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a request, its image rows and their backing files. An active
// request is cancelled first; file deletes are best-effort.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	req, err := o.requests.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if !req.Status.Terminal() {
		if err := o.Cancel(ctx, id); err != nil {
			o.logger.Warn().Err(err).Str("request_id", id).Msg("cancel before delete failed")
		}
	}

	images, err := o.requests.ListImages(ctx, id)
	if err != nil {
		return err
	}
	for _, img := range images {
		if _, err := o.store.Delete(ctx, img.StoragePath); err != nil {
			o.logger.Warn().Err(err).Str("key", img.StoragePath).Msg("generated file delete failed")
		}
	}
	return o.requests.DeleteRequest(ctx, id)
}

// GetRequest fetches a request by id.
func (o *Orchestrator) GetRequest(ctx context.Context, id string) (*domain.GenerationRequest, error) {
	return o.requests.GetRequest(ctx, id)
}

// ListRequests returns a product's requests, newest first.
func (o *Orchestrator) ListRequests(ctx context.Context, productID string, limit, offset int) ([]domain.GenerationRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return o.requests.ListRequestsByProduct(ctx, productID, limit, offset)
}

// ListImages returns a request's output images in generation order.
func (o *Orchestrator) ListImages(ctx context.Context, requestID string) ([]domain.GeneratedImage, error) {
	if _, err := o.requests.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return o.requests.ListImages(ctx, requestID)
}

// Gallery returns a product's generated images across requests, newest first.
func (o *Orchestrator) Gallery(ctx context.Context, productID string, limit, offset int) ([]domain.GeneratedImage, error) {
	if _, err := o.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return o.requests.ListGallery(ctx, productID, limit, offset)
}
