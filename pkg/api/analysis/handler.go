// Package analysis is the HTTP surface behind the capacity-planning pages: one-shot
// runs, step-by-step sessions, the summary table and the HTML report.
package analysis

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"outpatient_capacity/pkg/config"
	"outpatient_capacity/pkg/core/period"
	"outpatient_capacity/pkg/core/pipeline"
	"outpatient_capacity/pkg/core/report"
	"outpatient_capacity/pkg/core/validate"
	"outpatient_capacity/pkg/models"
)

const maxBody = 1 << 20

// Handler holds dependencies for analysis endpoints.
type Handler struct {
	Engine   *pipeline.Engine
	Sessions *SessionStore
	Defaults config.Defaults
	logger   *slog.Logger
}

// NewHandler creates a handler over one engine.
func NewHandler(engine *pipeline.Engine, sessions *SessionStore, defaults config.Defaults, logger *slog.Logger) *Handler {
	return &Handler{
		Engine:   engine,
		Sessions: sessions,
		Defaults: defaults,
		logger:   logger.With("component", "api"),
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := mapError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, status, kind, "internal error")
		return
	}
	writeError(w, status, kind, err.Error())
}

// scenario decodes an optional body. An empty body is an empty scenario.
func scenario(r *http.Request) (config.Scenario, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return config.Scenario{}, fmt.Errorf("read body: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return config.Scenario{}, nil
	}
	s, err := config.ParseScenario(data, "json")
	if err != nil {
		return config.Scenario{}, &models.InvalidRangeError{Field: "body", Reason: err.Error()}
	}
	return s, nil
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, ErrSessionNotFound
	}
	return id, nil
}

// =============================================================================
// DATASET
// =============================================================================

type specialtiesResponse struct {
	Specialties []string              `json:"specialties"`
	Range       period.ObservedRange  `json:"observed_range"`
	Default     period.BaselinePeriod `json:"default_baseline"`
}

func (h *Handler) listSpecialties(w http.ResponseWriter, r *http.Request) {
	d := h.Engine.Dataset()
	rng, err := period.DatasetRange(d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, specialtiesResponse{
		Specialties: d.Specialties(),
		Range:       rng,
		Default:     period.DefaultBaseline(rng, period.DefaultBaselineMonths),
	})
}

// summary serves the cross-specialty table as JSON, or CSV with format=csv.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s := config.Scenario{BaselineStart: q.Get("baseline_start"), BaselineEnd: q.Get("baseline_end")}
	start, end, err := s.Baseline()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	baseline, err := validate.Baseline(h.Engine.Dataset(), start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sum, err := report.Summarise(h.Engine.Dataset(), baseline, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if q.Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="summary.csv"`)
		if err := sum.WriteCSV(w); err != nil {
			h.logger.Error("write summary csv", "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// =============================================================================
// ANALYSIS
// =============================================================================

// runAnalysis executes every step from one scenario and keeps the result as a session.
func (h *Handler) runAnalysis(w http.ResponseWriter, r *http.Request) {
	s, err := scenario(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := s.Parameters(h.Defaults)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.Engine.Run(p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Sessions.Put(c)
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	s, err := scenario(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	start, end, err := s.Baseline()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.Engine.Begin(s.Specialty, start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Sessions.Put(c)
	w.Header().Set("Location", "/api/sessions/"+c.ID.String())
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.Sessions.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// stepFunc binds a scenario to one pipeline step.
type stepFunc func(e *pipeline.Engine, s config.Scenario, d config.Defaults, c pipeline.AnalysisContext) (pipeline.AnalysisContext, error)

var steps = map[string]stepFunc{
	pipeline.StepForecast: func(e *pipeline.Engine, s config.Scenario, _ config.Defaults, c pipeline.AnalysisContext) (pipeline.AnalysisContext, error) {
		in, err := s.ForecastInput()
		if err != nil {
			return c, err
		}
		return e.Forecast(c, in)
	},
	pipeline.StepRatios: func(e *pipeline.Engine, _ config.Scenario, _ config.Defaults, c pipeline.AnalysisContext) (pipeline.AnalysisContext, error) {
		return e.Ratios(c)
	},
	pipeline.StepCapacity: func(e *pipeline.Engine, s config.Scenario, d config.Defaults, c pipeline.AnalysisContext) (pipeline.AnalysisContext, error) {
		return e.Capacity(c, s.CapacityInput(d))
	},
	pipeline.StepReconcile: func(e *pipeline.Engine, s config.Scenario, _ config.Defaults, c pipeline.AnalysisContext) (pipeline.AnalysisContext, error) {
		in, err := s.ReconcileInput()
		if err != nil {
			return c, err
		}
		return e.Reconcile(c, in)
	},
	pipeline.StepWaitingList: func(e *pipeline.Engine, s config.Scenario, d config.Defaults, c pipeline.AnalysisContext) (pipeline.AnalysisContext, error) {
		return e.WaitingList(c, s.WaitingListInput(d))
	},
}

// runStep applies one named step to a session's context.
func (h *Handler) runStep(name string) http.HandlerFunc {
	step := steps[name]
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionID(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		s, err := scenario(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		c, err := h.Sessions.Update(id, func(c pipeline.AnalysisContext) (pipeline.AnalysisContext, error) {
			return step(h.Engine, s, h.Defaults, c)
		})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// sessionReport renders the session as HTML, or Markdown with format=markdown.
func (h *Handler) sessionReport(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.Sessions.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, report.Markdown(c))
		return
	}
	page, err := report.HTML(c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, page)
}
