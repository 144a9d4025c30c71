// Package waitlist runs the waiting-list stock-flow for the forecast year and derives
// the historic series the starting point is read from.
package waitlist

import (
	"fmt"
	"math"

	"outpatient_capacity/pkg/models"
)

// DefaultStart is the waiting list assumed when none is supplied.
const DefaultStart = 500

// Inputs feed one waterfall.
type Inputs struct {
	Start             float64 `json:"waiting_list_start"`
	Additions         float64 `json:"additions"`
	AvailableRTTFirst float64 `json:"available_rtt_first"`
	OtherRemovals     float64 `json:"other_removals"`
}

// Validate rejects negative flows and stocks.
func (in Inputs) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"waiting_list_start", in.Start},
		{"additions", in.Additions},
		{"available_rtt_first", in.AvailableRTTFirst},
		{"other_removals", in.OtherRemovals},
	} {
		if f.v < 0 || math.IsNaN(f.v) {
			return &models.InvalidRangeError{Field: f.name, Reason: fmt.Sprintf("%v is negative", f.v)}
		}
	}
	return nil
}

// Projection is the stock-flow tuple. End is always derived.
type Projection struct {
	Start             float64  `json:"start"`
	Additions         float64  `json:"additions"`
	TreatmentRemovals float64  `json:"treatment_removals"`
	OtherRemovals     float64  `json:"other_removals"`
	End               float64  `json:"end"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Change is End − Start.
func (p *Projection) Change() float64 { return p.End - p.Start }

// Project runs end = start + additions − min(available, additions) − other. A negative
// end is kept and flagged.
func Project(in Inputs) (*Projection, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := &Projection{
		Start:             in.Start,
		Additions:         in.Additions,
		TreatmentRemovals: math.Min(in.AvailableRTTFirst, in.Additions),
		OtherRemovals:     in.OtherRemovals,
	}
	p.End = p.Start + p.Additions - p.TreatmentRemovals - p.OtherRemovals
	if p.End < 0 {
		p.Warnings = append(p.Warnings, fmt.Sprintf("projected waiting list is negative (%.2f); check the start value and other removals", p.End))
	}
	return p, nil
}

// StepKind distinguishes levels from flows in the waterfall.
type StepKind string

const (
	Absolute StepKind = "absolute"
	Relative StepKind = "relative"
	Total    StepKind = "total"
)

// Step is one bar of the waterfall.
type Step struct {
	Label   string   `json:"label"`
	Kind    StepKind `json:"kind"`
	Delta   float64  `json:"delta"`
	Running float64  `json:"running"`
}

// Waterfall lays the projection out as ordered steps with running totals.
func (p *Projection) Waterfall() []Step {
	steps := []Step{{Label: "Waiting list start", Kind: Absolute, Delta: p.Start, Running: p.Start}}
	running := p.Start
	for _, f := range []struct {
		label string
		delta float64
	}{
		{"Additions", p.Additions},
		{"Treatment removals", -p.TreatmentRemovals},
		{"Other removals", -p.OtherRemovals},
	} {
		running += f.delta
		steps = append(steps, Step{Label: f.label, Kind: Relative, Delta: f.delta, Running: running})
	}
	return append(steps, Step{Label: "Waiting list end", Kind: Total, Delta: p.End, Running: p.End})
}
