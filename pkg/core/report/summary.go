// Package report builds the cross-specialty summary table, its CSV export, and the
// Markdown/HTML write-up of one analysis.
package report

import (
	"fmt"

	"outpatient_capacity/pkg/core/capacity"
	"outpatient_capacity/pkg/core/period"
	"outpatient_capacity/pkg/core/waitlist"
	"outpatient_capacity/pkg/models"
)

// SummaryRow is one specialty's line of the summary table. The 12-month figures scale
// the baseline by 12 / number of calendar months in the baseline window.
type SummaryRow struct {
	Specialty         string                 `json:"specialty"`
	BaselineReferrals float64                `json:"baseline_referrals"`
	BaselineRemovals  float64                `json:"baseline_removals"`
	Referrals12       float64                `json:"referrals_12_month"`
	Removals12        float64                `json:"removals_12_month"`
	Deficit           float64                `json:"deficit_12_month"`
	ExpectedChange    string                 `json:"expected_change"`
	Sessions          *capacity.Sessions     `json:"sessions,omitempty"`
	SessionStatus     capacity.SessionStatus `json:"capacity_status"`
}

// Summary is the table across every specialty in the dataset.
type Summary struct {
	Baseline      period.BaselinePeriod `json:"baseline"`
	NumMonths     int                   `json:"num_months"`
	ScalingFactor float64               `json:"scaling_factor"`
	Rows          []SummaryRow          `json:"rows"`
}

// Summarise builds a row per specialty. onRow, when set, is called after each row.
func Summarise(d *models.Dataset, baseline period.BaselinePeriod, onRow func(SummaryRow)) (*Summary, error) {
	specialties := d.Specialties()
	if len(specialties) == 0 {
		return nil, &models.InsufficientDataError{What: "summary", Detail: "dataset has no specialties"}
	}
	s := &Summary{
		Baseline:      baseline,
		NumMonths:     baseline.NumMonths(),
		ScalingFactor: baseline.ScalingFactor(),
	}
	for _, sp := range specialties {
		row := SummariseSpecialty(d, sp, baseline)
		s.Rows = append(s.Rows, row)
		if onRow != nil {
			onRow(row)
		}
	}
	return s, nil
}

// SummariseSpecialty computes one row. A specialty with no rows inside the baseline gets
// zeros rather than an error so the table stays complete.
func SummariseSpecialty(d *models.Dataset, specialty string, baseline period.BaselinePeriod) SummaryRow {
	row := SummaryRow{Specialty: specialty}

	for _, r := range d.Referrals {
		if r.Specialty == specialty && baseline.Contains(r.Month) {
			row.BaselineReferrals += r.Referrals
		}
	}
	for _, mv := range waitlist.Removals(d.Appointments, specialty) {
		if baseline.Contains(mv.Month) {
			row.BaselineRemovals += mv.Value
		}
	}

	f := baseline.ScalingFactor()
	row.Referrals12 = row.BaselineReferrals * f
	row.Removals12 = row.BaselineRemovals * f
	row.Deficit = row.Referrals12 - row.Removals12
	row.ExpectedChange = ExpectedChange(row.Deficit)

	sessions, ok := baselineSessions(d.Appointments, specialty, baseline)
	if ok {
		row.Sessions = &sessions
	}
	row.SessionStatus = capacity.ClassifySessions(row.Referrals12, row.Removals12, sessions, ok, f)
	return row
}

// ExpectedChange words the 12-month deficit as a waiting-list movement.
func ExpectedChange(deficit float64) string {
	n := Whole(deficit)
	switch {
	case n.IsPositive():
		return fmt.Sprintf("Increase in waiting list by %s", n)
	case n.IsNegative():
		return fmt.Sprintf("Decrease in waiting list by %s", n.Neg())
	}
	return "No change in waiting list"
}

// baselineSessions sums the session counters inside the baseline. ok is false unless
// every matching row carried them.
func baselineSessions(appts []models.AppointmentRecord, specialty string, baseline period.BaselinePeriod) (capacity.Sessions, bool) {
	var s capacity.Sessions
	seen := false
	for _, a := range appts {
		if a.Specialty != specialty || !baseline.Contains(a.Month) {
			continue
		}
		if !a.HasSessions {
			return capacity.Sessions{}, false
		}
		seen = true
		s.Held += a.Sessions
		s.Cancelled += a.CancelledSessions
		s.MinutesUtilised += a.MinutesUtilised
	}
	return s, seen
}
