package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"productstudio/internal/domain"
	"productstudio/internal/infra"
	"productstudio/internal/middleware"
	"productstudio/internal/service"
	"productstudio/internal/storage"
)

// App bundles the services behind the HTTP surface.
type App struct {
	Config     *infra.Config
	Logger     infra.Logger
	Products   *service.Products
	References *service.References
	Specs      *service.Specifications
	Analysis   *service.Analysis
	Generation *service.Orchestrator
	Dispatcher service.Dispatcher
	Files      *storage.FileStore
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, errorBody{Error: slug, Message: message})
}

// fail maps the domain error taxonomy onto HTTP statuses. Unknown errors are
// logged and reported as a bare 500.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrQuotaExceeded):
		a.error(w, http.StatusForbidden, "quota_exceeded", err.Error())
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrAdapterFailure):
		a.error(w, http.StatusBadGateway, "adapter_failure", err.Error())
	case errors.Is(err, domain.ErrStorageFailure):
		a.error(w, http.StatusInternalServerError, "storage_failure", err.Error())
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
