package domain

import (
	"context"
	"time"
)

// ProductRepository defines persistence for products.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	List(ctx context.Context, limit, offset int) ([]Product, error)
	Update(ctx context.Context, product *Product) error
	Deactivate(ctx context.Context, id string) error
}

// ReferenceImageRepository defines persistence for product reference images.
type ReferenceImageRepository interface {
	Create(ctx context.Context, image *ReferenceImage) error
	GetByID(ctx context.Context, id string) (*ReferenceImage, error)
	// ListByProduct returns images ordered by display order ascending.
	ListByProduct(ctx context.Context, productID string) ([]ReferenceImage, error)
	CountByProduct(ctx context.Context, productID string) (int, error)
	// MaxDisplayOrder returns -1 when the product has no images.
	MaxDisplayOrder(ctx context.Context, productID string) (int, error)
	UpdateDisplayOrder(ctx context.Context, id string, order int) error
	// SetPrimary atomically clears the primary flag on sibling images and
	// sets it on the named one.
	SetPrimary(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// SpecificationRepository defines persistence for specification versions.
type SpecificationRepository interface {
	// Create assigns the next version number for the product, deactivates
	// every existing version and inserts the new row as the active one, all
	// in one transaction. The assigned version is written back to spec.
	Create(ctx context.Context, spec *Specification) error
	// Activate deactivates all versions for the owning product and activates
	// the named one. This is the rollback mechanism.
	Activate(ctx context.Context, id string) (*Specification, error)
	// GetActive returns (nil, nil) when the product has no active version;
	// callers treat that as a normal state.
	GetActive(ctx context.Context, productID string) (*Specification, error)
	GetByID(ctx context.Context, id string) (*Specification, error)
	// ListByProduct returns versions ordered by version descending.
	ListByProduct(ctx context.Context, productID string) ([]Specification, error)
}

// GenerationRepository defines persistence for generation requests and their
// output images.
type GenerationRepository interface {
	CreateRequest(ctx context.Context, req *GenerationRequest) error
	GetRequest(ctx context.Context, id string) (*GenerationRequest, error)
	ListRequestsByProduct(ctx context.Context, productID string, limit, offset int) ([]GenerationRequest, error)
	// ClaimNextPending atomically claims the oldest pending request, flips it
	// to processing and returns it. Returns (nil, nil) when none is pending.
	ClaimNextPending(ctx context.Context) (*GenerationRequest, error)
	// MarkProcessing transitions pending to processing. Returns false when
	// the request is already terminal; re-marking an in-flight request keeps
	// its original start timestamp.
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id string, message string, completedAt time.Time) error
	// RequestCancel sets the cancellation flag on a non-terminal request.
	RequestCancel(ctx context.Context, id string) error
	CancelRequested(ctx context.Context, id string) (bool, error)
	// DeleteRequest removes the request row and all its image rows.
	DeleteRequest(ctx context.Context, id string) error
	CreateImage(ctx context.Context, image *GeneratedImage) error
	// ListImages returns images ordered by generation index ascending.
	ListImages(ctx context.Context, requestID string) ([]GeneratedImage, error)
	// ListGallery returns a product's generated images, newest first.
	ListGallery(ctx context.Context, productID string, limit, offset int) ([]GeneratedImage, error)
}
