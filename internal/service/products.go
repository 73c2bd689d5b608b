package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"productstudio/internal/domain"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Products manages the product catalog entries that own everything else.
type Products struct {
	repo   domain.ProductRepository
	logger zerolog.Logger
}

// NewProducts constructs the product service.
func NewProducts(repo domain.ProductRepository, logger zerolog.Logger) *Products {
	return &Products{repo: repo, logger: logger}
}

// CreateProductParams carries the attributes for a new product.
type CreateProductParams struct {
	Slug        string
	Name        string
	Description string
	Category    string
	Tags        []string
	CreatedBy   string
}

// Create validates and persists a new product. When no slug is provided one
// is derived from the name. Duplicate slugs surface as domain.ErrConflict.
func (s *Products) Create(ctx context.Context, p CreateProductParams) (*domain.Product, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
	}
	slug := strings.TrimSpace(p.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%w: slug %q must match %s", domain.ErrInvalidInput, slug, slugPattern)
	}

	product := &domain.Product{
		ID:          uuid.NewString(),
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(p.Description),
		Category:    strings.TrimSpace(p.Category),
		Tags:        p.Tags,
		Active:      true,
		CreatedBy:   p.CreatedBy,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.logger.Info().Str("product_id", product.ID).Str("slug", product.Slug).Msg("product created")
	return product, nil
}

// Get fetches a product by id.
func (s *Products) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBySlug fetches a product by slug.
func (s *Products) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// List returns active products, newest first.
func (s *Products) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// UpdateProductParams carries optional attribute updates; nil fields are left
// untouched.
type UpdateProductParams struct {
	Name        *string
	Description *string
	Category    *string
	Tags        []string
}

// Update applies the provided attribute changes.
func (s *Products) Update(ctx context.Context, id string, p UpdateProductParams) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: product name cannot be empty", domain.ErrInvalidInput)
		}
		product.Name = name
	}
	if p.Description != nil {
		product.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		product.Category = strings.TrimSpace(*p.Category)
	}
	if p.Tags != nil {
		product.Tags = p.Tags
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete soft-deletes a product by clearing its active flag. History stays
// queryable.
func (s *Products) Delete(ctx context.Context, id string) error {
	return s.repo.Deactivate(ctx, id)
}

var slugTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives a slug from a human-readable name: accents are stripped via
// unicode decomposition, anything outside [a-z0-9] collapses to a hyphen.
func Slugify(name string) string {
	folded, _, err := transform.String(slugTransformer, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}
	var b strings.Builder
	lastHyphen := true
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
