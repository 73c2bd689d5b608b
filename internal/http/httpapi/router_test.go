package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"productstudio/internal/domain"
	"productstudio/internal/http/handlers"
	"productstudio/internal/infra"
	"productstudio/internal/middleware"
	"productstudio/internal/service"
	"productstudio/internal/storage"
)

type fakeProductRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{byID: map[string]*domain.Product{}}
}

func (f *fakeProductRepo) Create(_ context.Context, p *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Slug == p.Slug {
			return fmt.Errorf("%w: slug %q already exists", domain.ErrConflict, p.Slug)
		}
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeProductRepo) List(_ context.Context, _, _ int) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Product
	for _, p := range f.byID {
		if p.Active {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) Update(_ context.Context, p *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.byID[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	*existing = *p
	return nil
}

func (f *fakeProductRepo) Deactivate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = false
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *storage.FileStore) {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir(), "http://localhost/api/files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	logger := zerolog.Nop()
	app := &handlers.App{
		Config:     &infra.Config{JWTSecret: "test-secret"},
		Logger:     logger,
		Products:   service.NewProducts(newFakeProductRepo(), logger),
		Dispatcher: service.NoopDispatcher{},
		Files:      files,
	}
	return NewRouter(app), files
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := middleware.SignJWT("test-secret", middleware.TokenClaims{
		Sub: "user-1",
		Exp: time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	return "Bearer " + token
}

func TestHealthIsPublic(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestProductRoutesRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProductCreateAndConflict(t *testing.T) {
	router, _ := newTestRouter(t)
	auth := bearer(t)

	body := `{"name":"Walnut Desk","slug":"walnut-desk"}`
	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewBufferString(body))
	req.Header.Set("Authorization", auth)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Slug != "walnut-desk" {
		t.Fatalf("slug = %q", created.Slug)
	}

	// Same slug again maps to 409.
	req = httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewBufferString(body))
	req.Header.Set("Authorization", auth)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var errBody struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody.Error != "conflict" {
		t.Fatalf("error slug = %q, want conflict", errBody.Error)
	}
}

func TestProductNotFoundMapsTo404(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/products/missing", nil)
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProductValidationMapsTo400(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewBufferString(`{"name":""}`))
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFileServe(t *testing.T) {
	router, files := newTestRouter(t)

	key, err := files.Put(context.Background(), "walnut-desk/specs/v1.yaml", []byte("dimensions: {}\n"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/"+key, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/yaml" {
		t.Fatalf("content type = %q", got)
	}
	if rec.Body.String() != "dimensions: {}\n" {
		t.Fatalf("body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/walnut-desk/specs/v2.yaml", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing file status = %d, want 404", rec.Code)
	}
}
