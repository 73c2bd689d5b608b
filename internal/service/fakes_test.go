package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"productstudio/internal/domain"
	imageprovider "productstudio/internal/providers/image"
	"productstudio/internal/providers/vision"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type memProducts struct {
	mu   sync.Mutex
	byID map[string]*domain.Product
}

func newMemProducts() *memProducts {
	return &memProducts{byID: map[string]*domain.Product{}}
}

func (m *memProducts) Create(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Slug == p.Slug {
			return fmt.Errorf("%w: slug %q already exists", domain.ErrConflict, p.Slug)
		}
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memProducts) List(_ context.Context, limit, offset int) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Product
	for _, p := range m.byID {
		if p.Active {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memProducts) Update(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byID[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.Name = p.Name
	existing.Description = p.Description
	existing.Category = p.Category
	existing.Tags = p.Tags
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memProducts) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = false
	return nil
}

type memReferences struct {
	mu   sync.Mutex
	byID map[string]*domain.ReferenceImage
}

func newMemReferences() *memReferences {
	return &memReferences{byID: map[string]*domain.ReferenceImage{}}
}

func (m *memReferences) Create(_ context.Context, img *domain.ReferenceImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img.UploadedAt = time.Now().UTC()
	cp := *img
	m.byID[img.ID] = &cp
	return nil
}

func (m *memReferences) GetByID(_ context.Context, id string) (*domain.ReferenceImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *img
	return &cp, nil
}

func (m *memReferences) ListByProduct(_ context.Context, productID string) ([]domain.ReferenceImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ReferenceImage
	for _, img := range m.byID {
		if img.ProductID == productID {
			out = append(out, *img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (m *memReferences) CountByProduct(ctx context.Context, productID string) (int, error) {
	images, err := m.ListByProduct(ctx, productID)
	return len(images), err
}

func (m *memReferences) MaxDisplayOrder(ctx context.Context, productID string) (int, error) {
	images, err := m.ListByProduct(ctx, productID)
	if err != nil {
		return -1, err
	}
	maxOrder := -1
	for _, img := range images {
		if img.DisplayOrder > maxOrder {
			maxOrder = img.DisplayOrder
		}
	}
	return maxOrder, nil
}

func (m *memReferences) UpdateDisplayOrder(_ context.Context, id string, order int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	img.DisplayOrder = order
	return nil
}

func (m *memReferences) SetPrimary(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	for _, img := range m.byID {
		if img.ProductID == target.ProductID {
			img.Primary = false
		}
	}
	target.Primary = true
	return nil
}

func (m *memReferences) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memSpecifications struct {
	mu       sync.Mutex
	byID     map[string]*domain.Specification
	products *memProducts
}

func newMemSpecifications(products *memProducts) *memSpecifications {
	return &memSpecifications{byID: map[string]*domain.Specification{}, products: products}
}

func (m *memSpecifications) Create(ctx context.Context, spec *domain.Specification) error {
	if _, err := m.products.GetByID(ctx, spec.ProductID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := 1
	for _, existing := range m.byID {
		if existing.ProductID == spec.ProductID {
			existing.Active = false
			if existing.Version >= next {
				next = existing.Version + 1
			}
		}
	}
	spec.Version = next
	spec.Active = true
	spec.CreatedAt = time.Now().UTC()
	cp := *spec
	m.byID[spec.ID] = &cp
	return nil
}

func (m *memSpecifications) Activate(_ context.Context, id string) (*domain.Specification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, spec := range m.byID {
		if spec.ProductID == target.ProductID {
			spec.Active = false
		}
	}
	target.Active = true
	cp := *target
	return &cp, nil
}

func (m *memSpecifications) GetActive(_ context.Context, productID string) (*domain.Specification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, spec := range m.byID {
		if spec.ProductID == productID && spec.Active {
			cp := *spec
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSpecifications) GetByID(_ context.Context, id string) (*domain.Specification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *spec
	return &cp, nil
}

func (m *memSpecifications) ListByProduct(_ context.Context, productID string) ([]domain.Specification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Specification
	for _, spec := range m.byID {
		if spec.ProductID == productID {
			out = append(out, *spec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

type memGeneration struct {
	mu       sync.Mutex
	requests map[string]*domain.GenerationRequest
	images   map[string]*domain.GeneratedImage
}

func newMemGeneration() *memGeneration {
	return &memGeneration{
		requests: map[string]*domain.GenerationRequest{},
		images:   map[string]*domain.GeneratedImage{},
	}
}

func (m *memGeneration) CreateRequest(_ context.Context, req *domain.GenerationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.CreatedAt = time.Now().UTC()
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *memGeneration) GetRequest(_ context.Context, id string) (*domain.GenerationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memGeneration) ListRequestsByProduct(_ context.Context, productID string, limit, offset int) ([]domain.GenerationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.GenerationRequest
	for _, req := range m.requests {
		if req.ProductID == productID {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memGeneration) ClaimNextPending(_ context.Context) (*domain.GenerationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *domain.GenerationRequest
	for _, req := range m.requests {
		if req.Status != domain.StatusPending {
			continue
		}
		if oldest == nil || req.CreatedAt.Before(oldest.CreatedAt) {
			oldest = req
		}
	}
	if oldest == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	oldest.Status = domain.StatusProcessing
	oldest.StartedAt = &now
	cp := *oldest
	return &cp, nil
}

func (m *memGeneration) MarkProcessing(_ context.Context, id string, startedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.Status.Terminal() {
		return false, nil
	}
	req.Status = domain.StatusProcessing
	if req.StartedAt == nil {
		req.StartedAt = &startedAt
	}
	return true, nil
}

func (m *memGeneration) MarkCompleted(_ context.Context, id string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.Status != domain.StatusProcessing {
		return nil
	}
	req.Status = domain.StatusCompleted
	req.CompletedAt = &completedAt
	return nil
}

func (m *memGeneration) MarkFailed(_ context.Context, id string, message string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.Status.Terminal() {
		return nil
	}
	req.Status = domain.StatusFailed
	req.ErrorMessage = message
	req.CompletedAt = &completedAt
	return nil
}

func (m *memGeneration) RequestCancel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.Status.Terminal() {
		return domain.ErrNotFound
	}
	req.CancelRequested = true
	return nil
}

func (m *memGeneration) CancelRequested(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	return req.CancelRequested, nil
}

func (m *memGeneration) DeleteRequest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[id]; !ok {
		return domain.ErrNotFound
	}
	for imgID, img := range m.images {
		if img.RequestID == id {
			delete(m.images, imgID)
		}
	}
	delete(m.requests, id)
	return nil
}

func (m *memGeneration) CreateImage(_ context.Context, img *domain.GeneratedImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img.CreatedAt = time.Now().UTC()
	cp := *img
	m.images[img.ID] = &cp
	return nil
}

func (m *memGeneration) ListImages(_ context.Context, requestID string) ([]domain.GeneratedImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.GeneratedImage
	for _, img := range m.images {
		if img.RequestID == requestID {
			out = append(out, *img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GenerationIndex < out[j].GenerationIndex })
	return out, nil
}

func (m *memGeneration) ListGallery(_ context.Context, productID string, limit, offset int) ([]domain.GeneratedImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.GeneratedImage
	for _, img := range m.images {
		if img.ProductID == productID {
			out = append(out, *img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memStore is an in-memory storage.Store.
type memStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (m *memStore) Put(_ context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return "", errors.New("storage unavailable")
	}
	m.files[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("no file at %s", key)
	}
	return append([]byte(nil), data...), nil
}

func (m *memStore) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[key]; !ok {
		return false, nil
	}
	delete(m.files, key)
	return true, nil
}

func (m *memStore) PublicURL(key string) string {
	return "http://files.test/" + key
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type stubAnalyzer struct {
	result    *vision.Analysis
	err       error
	gotImages int
	gotName   string
}

func (s *stubAnalyzer) Analyze(_ context.Context, req vision.AnalyzeRequest) (*vision.Analysis, error) {
	s.gotImages = len(req.Images)
	s.gotName = req.ProductName
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubGenerator struct {
	mu      sync.Mutex
	calls   int
	failAt  int // 1-based call number to fail on; 0 means never
	err     error
	data    []byte
	mime    string
	gotDocs []string
	onCall  func(call int)
}

func (s *stubGenerator) Generate(_ context.Context, req imageprovider.GenerateRequest) (*imageprovider.Result, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.gotDocs = append(s.gotDocs, req.SpecDocument)
	hook := s.onCall
	s.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if s.failAt != 0 && call == s.failAt {
		if s.err != nil {
			return nil, s.err
		}
		return nil, fmt.Errorf("%w: model refused", domain.ErrAdapterFailure)
	}
	data := s.data
	if data == nil {
		data = []byte(fmt.Sprintf("image-bytes-%d", call))
	}
	mime := s.mime
	if mime == "" {
		mime = "image/png"
	}
	return &imageprovider.Result{Data: data, MIME: mime, Text: "rendered"}, nil
}

func seedProduct(t interface {
	Helper()
	Fatalf(string, ...any)
}, products *memProducts, slug string) *domain.Product {
	t.Helper()
	p := &domain.Product{ID: uuid.NewString(), Slug: slug, Name: slug, Active: true, CreatedBy: "tester"}
	if err := products.Create(context.Background(), p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}
