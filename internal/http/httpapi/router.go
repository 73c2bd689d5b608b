package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"productstudio/internal/http/handlers"
	"productstudio/internal/middleware"
)

// NewRouter wires the full API surface. Health and file serving are public;
// everything else requires a bearer token.
func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(app.Logger),
	)

	r.Get("/api/healthz", app.Health)
	r.Get("/api/files/*", app.FileServe)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Config.JWTSecret))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", app.ProductCreate)
			r.Get("/", app.ProductList)
			r.Get("/slug/{slug}", app.ProductGetBySlug)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.ProductGet)
				r.Patch("/", app.ProductUpdate)
				r.Delete("/", app.ProductDelete)

				r.Post("/references", app.ReferenceUpload)
				r.Get("/references", app.ReferenceList)

				r.Post("/analyze", app.Analyze)
				r.Post("/specifications", app.SpecificationCreate)
				r.Get("/specifications", app.SpecificationList)
				r.Get("/specifications/active", app.SpecificationActive)

				r.Post("/generations", app.GenerationCreate)
				r.Get("/generations", app.GenerationList)
				r.Get("/gallery", app.Gallery)
			})
		})

		r.Route("/references/{id}", func(r chi.Router) {
			r.Delete("/", app.ReferenceDelete)
			r.Post("/primary", app.ReferenceSetPrimary)
			r.Post("/order", app.ReferenceReorder)
		})

		r.Route("/specifications/{id}", func(r chi.Router) {
			r.Get("/", app.SpecificationGet)
			r.Post("/activate", app.SpecificationActivate)
		})

		r.Route("/generations/{id}", func(r chi.Router) {
			r.Get("/", app.GenerationGet)
			r.Delete("/", app.GenerationDelete)
			r.Get("/images", app.GenerationImages)
			r.Post("/cancel", app.GenerationCancel)
			r.Get("/download", app.GenerationZip)
		})
	})

	return r
}
