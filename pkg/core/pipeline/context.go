// Package pipeline threads an immutable AnalysisContext through the calculator's steps.
// Each step takes the prior context and its own input and returns a new context; a
// step whose upstream result is absent fails with a PrerequisiteMissingError.
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"outpatient_capacity/pkg/core/capacity"
	"outpatient_capacity/pkg/core/period"
	"outpatient_capacity/pkg/core/projection"
	"outpatient_capacity/pkg/core/ratio"
	"outpatient_capacity/pkg/core/reconcile"
	"outpatient_capacity/pkg/core/waitlist"
	"outpatient_capacity/pkg/models"
)

// Step names used in prerequisite errors and logs.
const (
	StepForecast    = "forecast"
	StepRatios      = "ratios"
	StepCapacity    = "capacity"
	StepReconcile   = "reconcile"
	StepWaitingList = "waiting-list"
)

// RatioResult is the Ratio Extractor output.
type RatioResult struct {
	Totals    ratio.Totals      `json:"baseline_totals"`
	Set       ratio.RatioSet    `json:"ratios"`
	Alignment []ratio.Alignment `json:"alignment"`
}

// CapacityResult is the Capacity Converter output.
type CapacityResult struct {
	Figures    *capacity.Figures    `json:"figures"`
	WhatIf     *capacity.WhatIf     `json:"what_if,omitempty"`
	Assessment *capacity.Assessment `json:"assessment,omitempty"`
}

// WaitingListResult is the Waiting List Projector output.
type WaitingListResult struct {
	Inputs     waitlist.Inputs         `json:"inputs"`
	Projection *waitlist.Projection    `json:"projection"`
	Waterfall  []waitlist.Step         `json:"waterfall"`
	Estimate   *waitlist.StartEstimate `json:"start_estimate,omitempty"`
}

// AnalysisContext carries one specialty's results. Values are never mutated in place;
// every step returns a copy with a bumped revision and any downstream results cleared.
type AnalysisContext struct {
	ID             uuid.UUID             `json:"id"`
	Revision       int                   `json:"revision"`
	CreatedAt      time.Time             `json:"created_at"`
	Specialty      string                `json:"specialty"`
	Baseline       period.BaselinePeriod `json:"baseline"`
	Forecast       *projection.Forecast  `json:"forecast,omitempty"`
	Ratios         *RatioResult          `json:"ratios,omitempty"`
	Capacity       *CapacityResult       `json:"capacity,omitempty"`
	Reconciliation *reconcile.Table      `json:"reconciliation,omitempty"`
	WaitingList    *WaitingListResult    `json:"waiting_list,omitempty"`
}

// next copies the context, applies f and bumps the revision.
func (c AnalysisContext) next(f func(*AnalysisContext)) AnalysisContext {
	n := c
	f(&n)
	n.Revision++
	return n
}

func (c AnalysisContext) requireForecast(step string) (*projection.Forecast, error) {
	if c.Forecast == nil {
		return nil, &models.PrerequisiteMissingError{Step: step, Missing: StepForecast}
	}
	return c.Forecast, nil
}

func (c AnalysisContext) requireRatios(step string) (*RatioResult, error) {
	if c.Ratios == nil {
		return nil, &models.PrerequisiteMissingError{Step: step, Missing: StepRatios}
	}
	return c.Ratios, nil
}

func (c AnalysisContext) requireCapacity(step string) (*CapacityResult, error) {
	if c.Capacity == nil {
		return nil, &models.PrerequisiteMissingError{Step: step, Missing: StepCapacity}
	}
	return c.Capacity, nil
}

func (c AnalysisContext) requireReconciliation(step string) (*reconcile.Table, error) {
	if c.Reconciliation == nil {
		return nil, &models.PrerequisiteMissingError{Step: step, Missing: StepReconcile}
	}
	return c.Reconciliation, nil
}

// Completed lists the steps with results, in pipeline order.
func (c AnalysisContext) Completed() []string {
	var out []string
	for _, s := range []struct {
		name string
		done bool
	}{
		{StepForecast, c.Forecast != nil},
		{StepRatios, c.Ratios != nil},
		{StepCapacity, c.Capacity != nil},
		{StepReconcile, c.Reconciliation != nil},
		{StepWaitingList, c.WaitingList != nil},
	} {
		if s.done {
			out = append(out, s.name)
		}
	}
	return out
}
