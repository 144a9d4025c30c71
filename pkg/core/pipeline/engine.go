package pipeline

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"outpatient_capacity/pkg/core/capacity"
	"outpatient_capacity/pkg/core/projection"
	"outpatient_capacity/pkg/core/ratio"
	"outpatient_capacity/pkg/core/reconcile"
	"outpatient_capacity/pkg/core/validate"
	"outpatient_capacity/pkg/core/waitlist"
	"outpatient_capacity/pkg/models"
)

// AvailableSource picks what the Reconciler treats as available capacity.
type AvailableSource string

const (
	// SourceRequiredAvailable uses the converter's utilisation/DNA-inverted slots.
	SourceRequiredAvailable AvailableSource = "required_available"
	// SourceAttended uses 12-month attended appointments.
	SourceAttended AvailableSource = "attended"
)

// ForecastInput configures the Demand Forecaster. A zero ModelStart means the month
// after the latest data.
type ForecastInput struct {
	ModelStart time.Time
	ByPriority bool
	Method     projection.Method
}

// CapacityInput configures the Capacity Converter. Adjusted enables the what-if.
// With DataDNA the baseline DNA rate comes from the data's did-not-attend column when
// the specialty has one, and Rates.DNA is only the fallback; an Adjusted DNA rate
// follows it unless AdjustedDNASet.
type CapacityInput struct {
	Rates          capacity.Rates
	Adjusted       *capacity.Rates
	DataDNA        bool
	AdjustedDNASet bool
}

// ReconcileInput configures the Reconciler. With Split set, the chosen source's total
// is reallocated across types by percentage.
type ReconcileInput struct {
	Framing ratio.Framing
	Source  AvailableSource
	Split   *reconcile.Split
}

// WaitingListInput configures the projector. A nil Start uses the estimate from the
// historic series when EstimateStart is set, DefaultStart otherwise.
type WaitingListInput struct {
	Start         *float64
	EstimateStart bool
	OtherRemovals float64
}

// Parameters drive a full run.
type Parameters struct {
	Specialty     string
	BaselineStart *time.Time
	BaselineEnd   *time.Time
	Forecast      ForecastInput
	Capacity      CapacityInput
	Reconcile     ReconcileInput
	WaitingList   WaitingListInput
}

// Engine runs steps against one read-only dataset.
type Engine struct {
	data   *models.Dataset
	logger *slog.Logger
}

// NewEngine binds an engine to a loaded dataset.
func NewEngine(d *models.Dataset, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{data: d, logger: logger.With("component", "pipeline")}
}

// Dataset returns the engine's tables.
func (e *Engine) Dataset() *models.Dataset { return e.data }

// Begin validates the specialty and baseline and returns an empty context.
func (e *Engine) Begin(specialty string, start, end *time.Time) (AnalysisContext, error) {
	baseline, err := validate.Baseline(e.data, start, end)
	if err != nil {
		return AnalysisContext{}, err
	}
	if err := validate.Specialty(e.data, specialty); err != nil {
		return AnalysisContext{}, err
	}
	c := AnalysisContext{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Specialty: specialty,
		Baseline:  baseline,
	}
	e.logger.Info("analysis started", "context_id", c.ID, "specialty", specialty, "baseline", baseline.String())
	return c, nil
}

// Forecast runs the Demand Forecaster. Downstream results are cleared.
func (e *Engine) Forecast(c AnalysisContext, in ForecastInput) (AnalysisContext, error) {
	start, err := validate.ModelStart(e.data, in.ModelStart)
	if err != nil {
		return c, err
	}
	fc, err := projection.Run(e.data.Referrals, projection.Request{
		Specialty:  c.Specialty,
		Baseline:   c.Baseline,
		ModelStart: start,
		ByPriority: in.ByPriority,
		Method:     in.Method,
	})
	if err != nil {
		return c, fmt.Errorf("forecast %s: %w", c.Specialty, err)
	}
	e.logger.Info("forecast computed", "context_id", c.ID, "method", fc.Method, "series", len(fc.Series)+len(fc.Uplifts), "total", fc.Total)
	return c.next(func(n *AnalysisContext) {
		n.Forecast = fc
		if n.Capacity != nil {
			cr := *n.Capacity
			a := capacity.Assess(fc.Total, cr.Figures)
			cr.Assessment = &a
			n.Capacity = &cr
		}
		n.Reconciliation = nil
		n.WaitingList = nil
	}), nil
}

// Ratios runs the Ratio Extractor.
func (e *Engine) Ratios(c AnalysisContext) (AnalysisContext, error) {
	totals, err := ratio.SumByType(e.data.Appointments, c.Specialty, c.Baseline)
	if err != nil {
		return c, fmt.Errorf("ratios %s: %w", c.Specialty, err)
	}
	set := ratio.Extract(totals.Attended, totals.ForRemovals)
	res := &RatioResult{Totals: *totals, Set: set, Alignment: ratio.Assess(set)}
	for _, a := range res.Alignment {
		if a.Status != ratio.Aligned {
			e.logger.Warn("appointment mix not aligned", "context_id", c.ID, "pair", a.Pair, "status", a.Status)
		}
	}
	return c.next(func(n *AnalysisContext) {
		n.Ratios = res
		n.Reconciliation = nil
		n.WaitingList = nil
	}), nil
}

// Capacity runs the Capacity Converter, plus the what-if when adjusted rates are given
// and the demand assessment when a forecast exists.
func (e *Engine) Capacity(c AnalysisContext, in CapacityInput) (AnalysisContext, error) {
	if in.DataDNA {
		if dna, ok := capacity.BaselineDNARate(e.data.Appointments, c.Specialty, c.Baseline); ok {
			e.logger.Info("dna rate from data", "context_id", c.ID, "dna_rate", dna)
			in.Rates.DNA = dna
			if in.Adjusted != nil && !in.AdjustedDNASet {
				adj := *in.Adjusted
				adj.DNA = dna
				in.Adjusted = &adj
			}
		}
	}
	figs, err := capacity.FromAppointments(e.data.Appointments, c.Specialty, c.Baseline, in.Rates)
	if err != nil {
		return c, fmt.Errorf("capacity %s: %w", c.Specialty, err)
	}
	res := &CapacityResult{Figures: figs}
	if in.Adjusted != nil {
		w, err := capacity.RunWhatIf(figs.Figure(models.RTTFirst).Attended, in.Rates, *in.Adjusted)
		if err != nil {
			return c, fmt.Errorf("what-if %s: %w", c.Specialty, err)
		}
		res.WhatIf = w
	}
	if c.Forecast != nil {
		a := capacity.Assess(c.Forecast.Total, figs)
		res.Assessment = &a
	}
	e.logger.Info("capacity computed", "context_id", c.ID, "rtt_first_available", figs.Figure(models.RTTFirst).RequiredAvailable)
	return c.next(func(n *AnalysisContext) {
		n.Capacity = res
		n.Reconciliation = nil
		n.WaitingList = nil
	}), nil
}

// Reconcile sets the forecast against available capacity. It needs the forecast, the
// ratios and the capacity figures.
func (e *Engine) Reconcile(c AnalysisContext, in ReconcileInput) (AnalysisContext, error) {
	fc, err := c.requireForecast(StepReconcile)
	if err != nil {
		return c, err
	}
	rr, err := c.requireRatios(StepReconcile)
	if err != nil {
		return c, err
	}
	cr, err := c.requireCapacity(StepReconcile)
	if err != nil {
		return c, err
	}

	source := in.Source
	if source == "" {
		source = SourceRequiredAvailable
	}
	var avail ratio.TypeTotals
	switch source {
	case SourceRequiredAvailable:
		avail = cr.Figures.Available()
	case SourceAttended:
		avail = cr.Figures.Attended()
	default:
		return c, &models.InvalidRangeError{Field: "available_source", Reason: fmt.Sprintf("unknown source %q", source)}
	}
	label := string(source)
	if in.Split != nil {
		avail, err = reconcile.Allocate(avail.Total(), *in.Split)
		if err != nil {
			return c, err
		}
		label += " (split)"
	}

	tbl := reconcile.Reconcile(fc.Total, rr.Set, in.Framing, avail)
	tbl.AvailableSource = label
	if short := tbl.Shortfalls(); len(short) > 0 {
		e.logger.Warn("capacity shortfall", "context_id", c.ID, "types", short)
	}
	return c.next(func(n *AnalysisContext) {
		n.Reconciliation = tbl
		n.WaitingList = nil
	}), nil
}

// WaitingList runs the projector on the forecast additions and the reconciled RTT-first
// availability.
func (e *Engine) WaitingList(c AnalysisContext, in WaitingListInput) (AnalysisContext, error) {
	fc, err := c.requireForecast(StepWaitingList)
	if err != nil {
		return c, err
	}
	tbl, err := c.requireReconciliation(StepWaitingList)
	if err != nil {
		return c, err
	}

	res := &WaitingListResult{}
	start := float64(waitlist.DefaultStart)
	switch {
	case in.Start != nil:
		if err := validate.Count("waiting_list_start", *in.Start); err != nil {
			return c, err
		}
		start = *in.Start
	case in.EstimateStart:
		h, err := waitlist.Historic(e.data, c.Specialty)
		if err != nil {
			return c, fmt.Errorf("waiting list history %s: %w", c.Specialty, err)
		}
		est, err := waitlist.EstimateStart(h, c.Baseline, fc.ModelStart)
		if err != nil {
			return c, fmt.Errorf("waiting list estimate %s: %w", c.Specialty, err)
		}
		res.Estimate = est
		start = math.Max(0, math.Round(est.Estimated))
	}
	if err := validate.Count("other_removals", in.OtherRemovals); err != nil {
		return c, err
	}

	res.Inputs = waitlist.Inputs{
		Start:             start,
		Additions:         fc.Total,
		AvailableRTTFirst: tbl.Row(models.RTTFirst).Available,
		OtherRemovals:     in.OtherRemovals,
	}
	p, err := waitlist.Project(res.Inputs)
	if err != nil {
		return c, err
	}
	res.Projection = p
	res.Waterfall = p.Waterfall()
	for _, w := range p.Warnings {
		e.logger.Warn(w, "context_id", c.ID)
	}
	e.logger.Info("waiting list projected", "context_id", c.ID, "start", p.Start, "end", p.End)
	return c.next(func(n *AnalysisContext) { n.WaitingList = res }), nil
}

// Run validates every parameter, then composes all five steps.
func (e *Engine) Run(p Parameters) (AnalysisContext, error) {
	if err := e.check(p); err != nil {
		return AnalysisContext{}, err
	}
	c, err := e.Begin(p.Specialty, p.BaselineStart, p.BaselineEnd)
	if err != nil {
		return AnalysisContext{}, err
	}
	steps := []func(AnalysisContext) (AnalysisContext, error){
		func(c AnalysisContext) (AnalysisContext, error) { return e.Forecast(c, p.Forecast) },
		e.Ratios,
		func(c AnalysisContext) (AnalysisContext, error) { return e.Capacity(c, p.Capacity) },
		func(c AnalysisContext) (AnalysisContext, error) { return e.Reconcile(c, p.Reconcile) },
		func(c AnalysisContext) (AnalysisContext, error) { return e.WaitingList(c, p.WaitingList) },
	}
	for _, step := range steps {
		if c, err = step(c); err != nil {
			e.logger.Error("analysis halted", "context_id", c.ID, "error_kind", models.ErrorKind(err), "error", err)
			return c, err
		}
	}
	return c, nil
}

// check fails fast on scalar parameters so a bad slider value never reaches aggregation.
func (e *Engine) check(p Parameters) error {
	var errs []error
	if p.BaselineStart != nil && p.BaselineEnd != nil && models.MonthIndex(*p.BaselineStart) > models.MonthIndex(*p.BaselineEnd) {
		errs = append(errs, &models.InvalidRangeError{
			Field:  "baseline period",
			Reason: fmt.Sprintf("start %s is after end %s", models.FormatMonth(*p.BaselineStart), models.FormatMonth(*p.BaselineEnd)),
		})
	}
	errs = append(errs, p.Capacity.Rates.Validate())
	if p.Capacity.Adjusted != nil {
		errs = append(errs, p.Capacity.Adjusted.Validate())
	}
	if p.Reconcile.Split != nil {
		errs = append(errs, p.Reconcile.Split.Validate())
	}
	if p.WaitingList.Start != nil {
		errs = append(errs, validate.Count("waiting_list_start", *p.WaitingList.Start))
	}
	errs = append(errs, validate.Count("other_removals", p.WaitingList.OtherRemovals))
	return validate.First(errs...)
}
