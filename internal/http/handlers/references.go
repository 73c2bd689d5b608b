package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"productstudio/internal/service"
)

// maxUploadBytes bounds a single reference image upload.
const maxUploadBytes = 20 << 20

// ReferenceUpload accepts one multipart image under the "file" field.
func (a *App) ReferenceUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read upload")
		return
	}

	img, err := a.References.Add(r.Context(), service.AddReferenceParams{
		ProductID:  chi.URLParam(r, "id"),
		Filename:   header.Filename,
		MIMEType:   header.Header.Get("Content-Type"),
		Data:       data,
		UploadedBy: a.currentUserID(r),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toReferenceResponse(img, a.Files))
}

func (a *App) ReferenceList(w http.ResponseWriter, r *http.Request) {
	images, err := a.References.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]referenceResponse, 0, len(images))
	for i := range images {
		out = append(out, toReferenceResponse(&images[i], a.Files))
	}
	a.json(w, http.StatusOK, map[string]any{"images": out})
}

func (a *App) ReferenceDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.References.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) ReferenceSetPrimary(w http.ResponseWriter, r *http.Request) {
	if err := a.References.SetPrimary(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	DisplayOrder int `json:"display_order"`
}

func (a *App) ReferenceReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.References.Reorder(r.Context(), chi.URLParam(r, "id"), req.DisplayOrder); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
