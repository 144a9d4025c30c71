package analysis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"outpatient_capacity/pkg/core/pipeline"
)

// NewRouter wires the analysis endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/specialties", h.listSpecialties)
		r.Get("/summary", h.summary)
		r.Post("/analysis", h.runAnalysis)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.createSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getSession)
				r.Get("/report", h.sessionReport)
				for _, name := range []string{
					pipeline.StepForecast,
					pipeline.StepRatios,
					pipeline.StepCapacity,
					pipeline.StepReconcile,
					pipeline.StepWaitingList,
				} {
					r.Post("/"+name, h.runStep(name))
				}
			})
		})
	})
	return r
}
