package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"productstudio/internal/service"
)

type createProductRequest struct {
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

func (a *App) ProductCreate(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	product, err := a.Products.Create(r.Context(), service.CreateProductParams{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		CreatedBy:   a.currentUserID(r),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toProductResponse(product))
}

func (a *App) ProductGet(w http.ResponseWriter, r *http.Request) {
	product, err := a.Products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toProductResponse(product))
}

func (a *App) ProductGetBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := a.Products.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toProductResponse(product))
}

func (a *App) ProductList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	products, err := a.Products.List(r.Context(), limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"products": out})
}

type updateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Tags        []string `json:"tags"`
}

func (a *App) ProductUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	product, err := a.Products.Update(r.Context(), chi.URLParam(r, "id"), service.UpdateProductParams{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toProductResponse(product))
}

func (a *App) ProductDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
