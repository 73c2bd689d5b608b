package handlers

import (
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
)

// FileServe serves stored assets by their storage key. The store sanitizes
// keys, so traversal attempts resolve to a 404 rather than escaping the root.
func (a *App) FileServe(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "file path required")
		return
	}
	data, err := a.Files.Get(r.Context(), key)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "file not found")
		return
	}

	contentType := "application/octet-stream"
	switch path.Ext(key) {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".webp":
		contentType = "image/webp"
	case ".yaml", ".yml":
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
