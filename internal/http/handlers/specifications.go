package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"productstudio/internal/service"
)

// Analyze runs the vision model over the product's reference images and
// appends a new specification version.
func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	spec, err := a.Analysis.Analyze(r.Context(), chi.URLParam(r, "id"), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toSpecificationResponse(spec))
}

type createSpecificationRequest struct {
	Document    string `json:"document"`
	ChangeNotes string `json:"change_notes"`
}

// SpecificationCreate appends a manually authored version.
func (a *App) SpecificationCreate(w http.ResponseWriter, r *http.Request) {
	var req createSpecificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	spec, err := a.Specs.Create(r.Context(), service.CreateSpecificationParams{
		ProductID:   chi.URLParam(r, "id"),
		Document:    req.Document,
		ChangeNotes: req.ChangeNotes,
		CreatedBy:   a.currentUserID(r),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toSpecificationResponse(spec))
}

func (a *App) SpecificationList(w http.ResponseWriter, r *http.Request) {
	specs, err := a.Specs.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]specificationResponse, 0, len(specs))
	for i := range specs {
		out = append(out, toSpecificationResponse(&specs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"specifications": out})
}

// SpecificationActive returns 404 when the product has no active version;
// the service reports absence as (nil, nil).
func (a *App) SpecificationActive(w http.ResponseWriter, r *http.Request) {
	spec, err := a.Specs.GetActive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if spec == nil {
		a.error(w, http.StatusNotFound, "not_found", "product has no active specification")
		return
	}
	a.json(w, http.StatusOK, toSpecificationResponse(spec))
}

func (a *App) SpecificationGet(w http.ResponseWriter, r *http.Request) {
	spec, err := a.Specs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toSpecificationResponse(spec))
}

// SpecificationActivate is the rollback endpoint: it re-activates an older
// version without touching version numbers.
func (a *App) SpecificationActivate(w http.ResponseWriter, r *http.Request) {
	spec, err := a.Specs.Activate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toSpecificationResponse(spec))
}
