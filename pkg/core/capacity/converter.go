// Package capacity turns attended appointments into the appointment slots that must
// exist to deliver them, given utilisation and did-not-attend losses.
package capacity

import (
	"fmt"
	"math"

	"outpatient_capacity/pkg/core/period"
	"outpatient_capacity/pkg/core/ratio"
	"outpatient_capacity/pkg/models"
)

const (
	DefaultUtilisation = 0.85
	DefaultDNA         = 0.10
)

// Rates are the two loss factors applied to available slots.
type Rates struct {
	Utilisation float64 `json:"utilisation_rate" yaml:"utilisation_rate"`
	DNA         float64 `json:"dna_rate" yaml:"dna_rate"`
}

// DefaultRates returns 85% utilisation and a 10% DNA rate.
func DefaultRates() Rates { return Rates{Utilisation: DefaultUtilisation, DNA: DefaultDNA} }

// Yield is the share of available slots that end up attended.
func (r Rates) Yield() float64 { return r.Utilisation * (1 - r.DNA) }

// Validate rejects rates outside [0,1] and the two boundaries that make the inversion
// infinite.
func (r Rates) Validate() error {
	if err := checkUnit("utilisation_rate", r.Utilisation); err != nil {
		return err
	}
	if err := checkUnit("dna_rate", r.DNA); err != nil {
		return err
	}
	if r.Utilisation == 0 {
		return &models.DegenerateRateError{Rate: "utilisation_rate", Value: r.Utilisation}
	}
	if r.DNA == 1 {
		return &models.DegenerateRateError{Rate: "dna_rate", Value: r.DNA}
	}
	return nil
}

func checkUnit(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return &models.InvalidRangeError{Field: name, Reason: fmt.Sprintf("%v is outside [0, 1]", v)}
	}
	return nil
}

// RequiredAvailable inverts the losses: attended / (utilisation × (1 − dna)).
func RequiredAvailable(attended float64, r Rates) (float64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	return attended / r.Yield(), nil
}

// WhatIf compares baseline rates with adjusted ones for the same attended figure.
type WhatIf struct {
	Attended         float64 `json:"attended"`
	Baseline         Rates   `json:"baseline_rates"`
	Adjusted         Rates   `json:"adjusted_rates"`
	Available        float64 `json:"available"`           // required available at baseline rates
	AdjustedRequired float64 `json:"adjusted_required"`   // required available at adjusted rates
	Achievable       float64 `json:"achievable_attended"` // never above Available
}

// RunWhatIf recomputes the inversion at adjusted rates and the attended appointments the
// baseline slots would yield at those rates, capped at the slots themselves.
func RunWhatIf(attended float64, baseline, adjusted Rates) (*WhatIf, error) {
	avail, err := RequiredAvailable(attended, baseline)
	if err != nil {
		return nil, fmt.Errorf("baseline rates: %w", err)
	}
	adjReq, err := RequiredAvailable(attended, adjusted)
	if err != nil {
		return nil, fmt.Errorf("adjusted rates: %w", err)
	}
	return &WhatIf{
		Attended:         attended,
		Baseline:         baseline,
		Adjusted:         adjusted,
		Available:        avail,
		AdjustedRequired: adjReq,
		Achievable:       math.Min(avail*adjusted.Yield(), avail),
	}, nil
}

// Figure is one appointment type's capacity row.
type Figure struct {
	Type              models.AppointmentType `json:"appointment_type"`
	BaselineAttended  float64                `json:"baseline_attended"`
	Attended          float64                `json:"attended"` // 12-month scaled
	RequiredAvailable float64                `json:"required_available"`
}

// Figures are the capacity rows of one specialty.
type Figures struct {
	Specialty     string                `json:"specialty"`
	Baseline      period.BaselinePeriod `json:"baseline"`
	NumMonths     int                   `json:"num_months"`
	ScalingFactor float64               `json:"scaling_factor"`
	Rates         Rates                 `json:"rates"`
	Types         []Figure              `json:"types"`
	Totals        ratio.Totals          `json:"baseline_totals"`
}

// Convert scales baseline attended totals to 12 months and inverts each type.
func Convert(specialty string, baseline period.BaselinePeriod, totals ratio.Totals, r Rates) (*Figures, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	f := &Figures{
		Specialty: specialty,
		Baseline:  baseline,
		NumMonths: totals.NumMonths,
		Rates:     r,
		Totals:    totals,
	}
	for _, at := range models.AppointmentTypes {
		raw := totals.Attended.Get(at)
		scaled, err := period.Scale(raw, totals.NumMonths)
		if err != nil {
			return nil, err
		}
		req, err := RequiredAvailable(scaled, r)
		if err != nil {
			return nil, err
		}
		f.Types = append(f.Types, Figure{Type: at, BaselineAttended: raw, Attended: scaled, RequiredAvailable: req})
	}
	f.ScalingFactor = float64(period.MonthsPerYear) / float64(totals.NumMonths)
	return f, nil
}

// FromAppointments aggregates the baseline window and converts it.
func FromAppointments(appts []models.AppointmentRecord, specialty string, baseline period.BaselinePeriod, r Rates) (*Figures, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	totals, err := ratio.SumByType(appts, specialty, baseline)
	if err != nil {
		return nil, err
	}
	return Convert(specialty, baseline, *totals, r)
}

// BaselineDNARate is the mean did-not-attend rate over the specialty's baseline rows
// that carry one. ok is false when none do.
func BaselineDNARate(appts []models.AppointmentRecord, specialty string, baseline period.BaselinePeriod) (rate float64, ok bool) {
	var sum float64
	var n int
	for _, a := range appts {
		if a.Specialty != specialty || !a.HasDNARate || !baseline.Contains(a.Month) {
			continue
		}
		sum += a.DNARate
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Figure returns the row for one type.
func (f *Figures) Figure(at models.AppointmentType) Figure {
	for _, fig := range f.Types {
		if fig.Type == at {
			return fig
		}
	}
	return Figure{Type: at}
}

// Attended returns the 12-month attended figures.
func (f *Figures) Attended() ratio.TypeTotals {
	return ratio.TypeTotals{
		RTTFirst:    f.Figure(models.RTTFirst).Attended,
		RTTFollowUp: f.Figure(models.RTTFollowUp).Attended,
		NonRTT:      f.Figure(models.NonRTT).Attended,
	}
}

// Available returns the required-available figures.
func (f *Figures) Available() ratio.TypeTotals {
	return ratio.TypeTotals{
		RTTFirst:    f.Figure(models.RTTFirst).RequiredAvailable,
		RTTFollowUp: f.Figure(models.RTTFollowUp).RequiredAvailable,
		NonRTT:      f.Figure(models.NonRTT).RequiredAvailable,
	}
}
