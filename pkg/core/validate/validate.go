// Package validate checks user parameters against the loaded dataset before any
// aggregation runs.
package validate

import (
	"fmt"
	"math"
	"time"

	"outpatient_capacity/pkg/core/period"
	"outpatient_capacity/pkg/models"
)

// =============================================================================
// SELECTORS
// =============================================================================

// Specialty requires a value present in the referral table.
func Specialty(d *models.Dataset, specialty string) error {
	if specialty == "" {
		return &models.InvalidRangeError{Field: "specialty", Reason: "is required"}
	}
	for _, r := range d.Referrals {
		if r.Specialty == specialty {
			return nil
		}
	}
	return &models.InvalidRangeError{Field: "specialty", Reason: fmt.Sprintf("%q is not in the referral table", specialty)}
}

// Baseline resolves the baseline window. Reversed bounds fail first, before the tables
// are looked at. Missing bounds fall back to the last DefaultBaselineMonths of the
// range both tables cover; given bounds are clamped to that range.
func Baseline(d *models.Dataset, start, end *time.Time) (period.BaselinePeriod, error) {
	if start != nil && end != nil {
		if _, err := period.NewBaselinePeriod(*start, *end); err != nil {
			return period.BaselinePeriod{}, err
		}
	}
	r, err := period.DatasetRange(d)
	if err != nil {
		return period.BaselinePeriod{}, err
	}
	def := period.DefaultBaseline(r, period.DefaultBaselineMonths)
	s, e := def.Start, def.End
	if start != nil {
		s = *start
	}
	if end != nil {
		e = *end
	}
	p, err := period.NewBaselinePeriod(s, e)
	if err != nil {
		return period.BaselinePeriod{}, err
	}
	return p.Clamp(r)
}

// LatestMonth is the last month observed in either table.
func LatestMonth(d *models.Dataset) (time.Time, error) {
	var latest time.Time
	if r, err := period.Observe(d.Referrals); err == nil {
		latest = r.Max
	}
	if r, err := period.Observe(d.Appointments); err == nil && r.Max.After(latest) {
		latest = r.Max
	}
	if latest.IsZero() {
		return latest, &models.InsufficientDataError{What: "dataset", Detail: "both tables are empty"}
	}
	return latest, nil
}

// ModelStart requires the forecast to begin after the last historical month. A zero
// value resolves to the month after it.
func ModelStart(d *models.Dataset, t time.Time) (time.Time, error) {
	latest, err := LatestMonth(d)
	if err != nil {
		return time.Time{}, err
	}
	if t.IsZero() {
		return models.AddMonths(latest, 1), nil
	}
	t = models.MonthEnd(t)
	if !t.After(latest) {
		return time.Time{}, &models.InvalidRangeError{
			Field:  "model_start_date",
			Reason: fmt.Sprintf("%s is not after the latest historical month %s", models.FormatMonth(t), models.FormatMonth(latest)),
		}
	}
	return t, nil
}

// =============================================================================
// SCALARS
// =============================================================================

// Count requires a non-negative whole number.
func Count(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return &models.InvalidRangeError{Field: field, Reason: fmt.Sprintf("%v is not a non-negative number", v)}
	}
	if v != math.Trunc(v) {
		return &models.InvalidRangeError{Field: field, Reason: fmt.Sprintf("%v is not a whole number", v)}
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
