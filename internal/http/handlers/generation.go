package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"productstudio/internal/domain"
	"productstudio/internal/service"
	"productstudio/pkg/zip"
)

type createGenerationRequest struct {
	Prompt          string  `json:"prompt"`
	CustomPrompt    string  `json:"custom_prompt"`
	SpecificationID *string `json:"specification_id"`
	AspectRatio     string  `json:"aspect_ratio"`
	Resolution      string  `json:"resolution"`
	ImageCount      int     `json:"image_count"`
}

// GenerationCreate enqueues a request and hands it to the dispatcher. The
// response is the pending request; clients poll for progress.
func (a *App) GenerationCreate(w http.ResponseWriter, r *http.Request) {
	var req createGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	created, err := a.Generation.CreateRequest(r.Context(), service.CreateRequestParams{
		ProductID:       chi.URLParam(r, "id"),
		Prompt:          req.Prompt,
		CustomPrompt:    req.CustomPrompt,
		SpecificationID: req.SpecificationID,
		AspectRatio:     req.AspectRatio,
		Resolution:      req.Resolution,
		ImageCount:      req.ImageCount,
		CreatedBy:       a.currentUserID(r),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Dispatcher.Dispatch(created.ID)
	a.json(w, http.StatusAccepted, toRequestResponse(created))
}

func (a *App) GenerationGet(w http.ResponseWriter, r *http.Request) {
	req, err := a.Generation.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toRequestResponse(req))
}

func (a *App) GenerationList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	requests, err := a.Generation.ListRequests(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]requestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, toRequestResponse(&requests[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"requests": out})
}

func (a *App) GenerationImages(w http.ResponseWriter, r *http.Request) {
	images, err := a.Generation.ListImages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]imageResponse, 0, len(images))
	for i := range images {
		out = append(out, toImageResponse(&images[i], a.Files))
	}
	a.json(w, http.StatusOK, map[string]any{"images": out})
}

func (a *App) GenerationCancel(w http.ResponseWriter, r *http.Request) {
	if err := a.Generation.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *App) GenerationDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Generation.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerationZip streams all of a request's images as one archive.
func (a *App) GenerationZip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	images, err := a.Generation.ListImages(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(images) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "request has no images")
		return
	}

	assets := make([]zip.Asset, 0, len(images))
	for _, img := range images {
		data, err := a.Files.Get(r.Context(), img.StoragePath)
		if err != nil {
			a.fail(w, r, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err))
			return
		}
		assets = append(assets, zip.Asset{Filename: img.Filename, MIME: img.MIMEType, Data: data})
	}

	archive := zip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "generation-"+id+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) Gallery(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	images, err := a.Generation.Gallery(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]imageResponse, 0, len(images))
	for i := range images {
		out = append(out, toImageResponse(&images[i], a.Files))
	}
	a.json(w, http.StatusOK, map[string]any{"images": out})
}
