// Package reconcile sets forecast demand, expanded by the appointment mix, against
// available capacity per appointment type.
package reconcile

import (
	"fmt"
	"math"

	"outpatient_capacity/pkg/core/ratio"
	"outpatient_capacity/pkg/models"
)

// SplitTolerance absorbs float noise when checking that percentages total 100.
const SplitTolerance = 1e-6

// Row is one appointment type. Required and Gap are not computable when the ratio
// feeding them is undefined.
type Row struct {
	Type      models.AppointmentType `json:"appointment_type"`
	Ratio     models.Quantity        `json:"ratio"`
	Required  models.Quantity        `json:"required"`
	Available float64                `json:"available"`
	Gap       models.Quantity        `json:"gap"`
}

// Short reports a positive gap.
func (r Row) Short() bool { return r.Gap.Valid && r.Gap.Value > 0 }

// Table is the demand/capacity comparison.
type Table struct {
	ForecastedTotal float64             `json:"forecasted_total"`
	Framing         ratio.Framing       `json:"framing"`
	Ratios          ratio.FramingRatios `json:"ratios"`
	AvailableSource string              `json:"available_source"`
	Rows            []Row               `json:"rows"`
}

// Row returns the row for a type.
func (t *Table) Row(at models.AppointmentType) Row {
	for _, r := range t.Rows {
		if r.Type == at {
			return r
		}
	}
	return Row{Type: at}
}

// RequiredTotal sums the required column; not computable if any row is.
func (t *Table) RequiredTotal() models.Quantity {
	var sum float64
	for _, r := range t.Rows {
		if !r.Required.Valid {
			return models.Unknown()
		}
		sum += r.Required.Value
	}
	return models.Known(sum)
}

// Shortfalls lists the types with a positive gap.
func (t *Table) Shortfalls() []models.AppointmentType {
	var out []models.AppointmentType
	for _, r := range t.Rows {
		if r.Short() {
			out = append(out, r.Type)
		}
	}
	return out
}

// Reconcile builds the three-row table. RTT-first demand is the forecast total; the
// other types follow from the chosen framing's ratios.
func Reconcile(forecastedTotal float64, ratios ratio.RatioSet, framing ratio.Framing, available ratio.TypeTotals) *Table {
	if framing == "" {
		framing = ratio.ForRemovals
	}
	fr := ratios.For(framing)
	t := &Table{ForecastedTotal: forecastedTotal, Framing: framing, Ratios: fr}
	for _, at := range models.AppointmentTypes {
		var r models.Quantity
		switch at {
		case models.RTTFirst:
			r = models.Known(1)
		case models.RTTFollowUp:
			r = fr.FollowUpPerFirst
		case models.NonRTT:
			r = fr.NonRTTPerFirst
		}
		row := Row{Type: at, Ratio: r, Available: available.Get(at)}
		if r.Valid {
			req := forecastedTotal * r.Value
			row.Required = models.Known(req)
			row.Gap = models.Known(math.Max(0, req-row.Available))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Split is a percentage allocation across the three types.
type Split struct {
	RTTFirst    float64 `json:"rtt_first_pct" yaml:"rtt_first_pct"`
	RTTFollowUp float64 `json:"rtt_followup_pct" yaml:"rtt_followup_pct"`
	NonRTT      float64 `json:"non_rtt_pct" yaml:"non_rtt_pct"`
}

// DefaultSplit is 50/30/20.
func DefaultSplit() Split { return Split{RTTFirst: 50, RTTFollowUp: 30, NonRTT: 20} }

// Validate requires non-negative percentages summing to 100. No normalisation.
func (s Split) Validate() error {
	for name, v := range map[string]float64{"rtt_first_pct": s.RTTFirst, "rtt_followup_pct": s.RTTFollowUp, "non_rtt_pct": s.NonRTT} {
		if v < 0 || math.IsNaN(v) {
			return &models.InvalidRangeError{Field: name, Reason: fmt.Sprintf("%v is negative", v)}
		}
	}
	if sum := s.RTTFirst + s.RTTFollowUp + s.NonRTT; math.Abs(sum-100) > SplitTolerance {
		return &models.InvalidRangeError{Field: "appointment split", Reason: fmt.Sprintf("percentages sum to %v, not 100", sum)}
	}
	return nil
}

// Allocate divides a total available capacity by the split.
func Allocate(total float64, s Split) (ratio.TypeTotals, error) {
	if err := s.Validate(); err != nil {
		return ratio.TypeTotals{}, err
	}
	return ratio.TypeTotals{
		RTTFirst:    total * s.RTTFirst / 100,
		RTTFollowUp: total * s.RTTFollowUp / 100,
		NonRTT:      total * s.NonRTT / 100,
	}, nil
}
