// Package ratio derives appointment-mix ratios (follow-ups and non-RTT appointments per
// RTT first appointment) from baseline appointment totals.
package ratio

import (
	"math"

	"outpatient_capacity/pkg/core/period"
	"outpatient_capacity/pkg/models"
)

// AlignmentTolerance is the absolute gap under which attended and required mixes agree.
const AlignmentTolerance = 0.1

// Ratio is numerator / RTT-first total, or not computable when that total is zero.
type Ratio = models.Quantity

// Framing picks which appointment count the ratios are built from.
type Framing string

const (
	Attended    Framing = "attended"
	ForRemovals Framing = "for_removals"
)

// TypeTotals holds one figure per appointment type.
type TypeTotals struct {
	RTTFirst    float64 `json:"rtt_first"`
	RTTFollowUp float64 `json:"rtt_follow_up"`
	NonRTT      float64 `json:"non_rtt"`
}

// Get returns the figure for a type.
func (t TypeTotals) Get(at models.AppointmentType) float64 {
	switch at {
	case models.RTTFirst:
		return t.RTTFirst
	case models.RTTFollowUp:
		return t.RTTFollowUp
	case models.NonRTT:
		return t.NonRTT
	}
	return 0
}

// Total is the sum across types.
func (t TypeTotals) Total() float64 { return t.RTTFirst + t.RTTFollowUp + t.NonRTT }

// Scale multiplies every figure by f.
func (t TypeTotals) Scale(f float64) TypeTotals {
	return TypeTotals{RTTFirst: t.RTTFirst * f, RTTFollowUp: t.RTTFollowUp * f, NonRTT: t.NonRTT * f}
}

// FramingRatios are the two ratios of one framing.
type FramingRatios struct {
	FollowUpPerFirst Ratio `json:"follow_up_per_first"`
	NonRTTPerFirst   Ratio `json:"non_rtt_per_first"`
}

// RatioSet is the four ratios for one specialty and baseline.
type RatioSet struct {
	Attended    FramingRatios `json:"attended"`
	ForRemovals FramingRatios `json:"for_removals"`
}

// For returns the ratios of one framing.
func (s RatioSet) For(f Framing) FramingRatios {
	if f == Attended {
		return s.Attended
	}
	return s.ForRemovals
}

// Compute builds both ratios of a framing. A zero RTT-first total leaves both undefined.
func Compute(t TypeTotals) FramingRatios {
	if t.RTTFirst == 0 {
		return FramingRatios{FollowUpPerFirst: models.Unknown(), NonRTTPerFirst: models.Unknown()}
	}
	return FramingRatios{
		FollowUpPerFirst: models.Known(t.RTTFollowUp / t.RTTFirst),
		NonRTTPerFirst:   models.Known(t.NonRTT / t.RTTFirst),
	}
}

// Extract builds the full RatioSet from the two framings' totals.
func Extract(attended, forRemovals TypeTotals) RatioSet {
	return RatioSet{Attended: Compute(attended), ForRemovals: Compute(forRemovals)}
}

// Totals holds the baseline appointment sums the ratios are derived from.
type Totals struct {
	Attended    TypeTotals `json:"attended"`
	ForRemovals TypeTotals `json:"for_removals"`
	NumMonths   int        `json:"num_months"`
	Scaling     float64    `json:"scaling_factor"`
}

// SumByType aggregates a specialty's appointments over the window, per type and framing.
func SumByType(appts []models.AppointmentRecord, specialty string, window period.BaselinePeriod) (*Totals, error) {
	agg, err := period.Aggregate(appts, period.Filter{Specialty: specialty, Window: window},
		func(r models.AppointmentRecord) string { return string(r.AppointmentType) },
		period.Measure[models.AppointmentRecord]{Name: string(Attended), Value: func(r models.AppointmentRecord) float64 { return r.Attended }},
		period.Measure[models.AppointmentRecord]{Name: string(ForRemovals), Value: func(r models.AppointmentRecord) float64 { return r.ForRemovals }},
	)
	if err != nil {
		return nil, err
	}
	pick := func(name string) TypeTotals {
		return TypeTotals{
			RTTFirst:    agg.Value(string(models.RTTFirst), name),
			RTTFollowUp: agg.Value(string(models.RTTFollowUp), name),
			NonRTT:      agg.Value(string(models.NonRTT), name),
		}
	}
	return &Totals{
		Attended:    pick(string(Attended)),
		ForRemovals: pick(string(ForRemovals)),
		NumMonths:   agg.NumMonths,
		Scaling:     agg.ScalingFactor,
	}, nil
}

// AlignmentStatus is the advisory outcome of comparing attended and required mixes.
type AlignmentStatus string

const (
	Aligned        AlignmentStatus = "aligned"
	OverProvision  AlignmentStatus = "over_provision"
	UnderProvision AlignmentStatus = "under_provision"
	NotComputable  AlignmentStatus = "not_computable"
)

// Alignment compares one type pair.
type Alignment struct {
	Pair     string          `json:"pair"`
	Attended Ratio           `json:"attended"`
	Required Ratio           `json:"required"`
	Status   AlignmentStatus `json:"status"`
}

// Assess compares the attended mix with the mix needed for removals. When the attended
// ratio is larger, more of that type is being delivered per first appointment than
// clock stops need.
func Assess(s RatioSet) []Alignment {
	return []Alignment{
		align("RTT First -> RTT Follow-up", s.Attended.FollowUpPerFirst, s.ForRemovals.FollowUpPerFirst),
		align("RTT First -> Non-RTT", s.Attended.NonRTTPerFirst, s.ForRemovals.NonRTTPerFirst),
	}
}

func align(pair string, attended, required Ratio) Alignment {
	a := Alignment{Pair: pair, Attended: attended, Required: required}
	switch {
	case !attended.Valid || !required.Valid:
		a.Status = NotComputable
	case math.Abs(attended.Value-required.Value) <= AlignmentTolerance:
		a.Status = Aligned
	case attended.Value > required.Value:
		a.Status = OverProvision
	default:
		a.Status = UnderProvision
	}
	return a
}
