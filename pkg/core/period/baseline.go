// Package period normalises monthly activity tables and aggregates them over closed
// calendar-month windows, with the 12-month scaling used throughout the calculator.
package period

import (
	"fmt"
	"time"

	"outpatient_capacity/pkg/models"
)

// MonthsPerYear is the horizon every baseline is extrapolated to.
const MonthsPerYear = 12

// DefaultBaselineMonths is the window used when the caller does not choose one.
const DefaultBaselineMonths = 6

// BaselinePeriod is a closed, inclusive range of calendar months.
type BaselinePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewBaselinePeriod normalises both bounds to month-end and rejects start > end.
func NewBaselinePeriod(start, end time.Time) (BaselinePeriod, error) {
	s, e := models.MonthEnd(start), models.MonthEnd(end)
	if s.After(e) {
		return BaselinePeriod{}, &models.InvalidRangeError{
			Field:  "baseline period",
			Reason: fmt.Sprintf("start %s is after end %s", models.FormatMonth(s), models.FormatMonth(e)),
		}
	}
	return BaselinePeriod{Start: s, End: e}, nil
}

// NumMonths is the inclusive calendar-month count.
func (p BaselinePeriod) NumMonths() int {
	return models.MonthIndex(p.End) - models.MonthIndex(p.Start) + 1
}

// ScalingFactor is 12 / NumMonths.
func (p BaselinePeriod) ScalingFactor() float64 {
	return float64(MonthsPerYear) / float64(p.NumMonths())
}

// Contains reports whether t falls in the window (any day of a covered month counts).
func (p BaselinePeriod) Contains(t time.Time) bool {
	m := models.MonthEnd(t)
	return !m.Before(p.Start) && !m.After(p.End)
}

// Months lists the month-ends covered by the window.
func (p BaselinePeriod) Months() []time.Time {
	return models.MonthsBetweenInclusive(p.Start, p.End)
}

func (p BaselinePeriod) String() string {
	return fmt.Sprintf("%s..%s", models.FormatMonth(p.Start), models.FormatMonth(p.End))
}

// Clamp narrows the window to an observed range. A window that does not overlap the
// range at all has nothing to aggregate.
func (p BaselinePeriod) Clamp(r ObservedRange) (BaselinePeriod, error) {
	start, end := p.Start, p.End
	if start.Before(r.Min) {
		start = r.Min
	}
	if end.After(r.Max) {
		end = r.Max
	}
	if start.After(end) {
		return BaselinePeriod{}, &models.InsufficientDataError{
			What:   "baseline period",
			Detail: fmt.Sprintf("%s does not overlap the observed data %s", p, r),
		}
	}
	return BaselinePeriod{Start: start, End: end}, nil
}

// ObservedRange is the min/max month present in a table.
type ObservedRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

func (r ObservedRange) String() string {
	return fmt.Sprintf("%s..%s", models.FormatMonth(r.Min), models.FormatMonth(r.Max))
}

// Observe returns the month range of a record set.
func Observe[R Record](records []R) (ObservedRange, error) {
	if len(records) == 0 {
		return ObservedRange{}, &models.InsufficientDataError{What: "observed range", Detail: "table is empty"}
	}
	r := ObservedRange{Min: models.MonthEnd(records[0].Period()), Max: models.MonthEnd(records[0].Period())}
	for _, rec := range records[1:] {
		m := models.MonthEnd(rec.Period())
		if m.Before(r.Min) {
			r.Min = m
		}
		if m.After(r.Max) {
			r.Max = m
		}
	}
	return r, nil
}

// Intersect returns the months covered by both ranges.
func Intersect(a, b ObservedRange) (ObservedRange, error) {
	out := a
	if b.Min.After(out.Min) {
		out.Min = b.Min
	}
	if b.Max.Before(out.Max) {
		out.Max = b.Max
	}
	if out.Min.After(out.Max) {
		return ObservedRange{}, &models.InsufficientDataError{
			What:   "observed range",
			Detail: fmt.Sprintf("tables do not overlap (%s vs %s)", a, b),
		}
	}
	return out, nil
}

// DatasetRange is the intersection of the referral and appointment tables' observed ranges.
func DatasetRange(d *models.Dataset) (ObservedRange, error) {
	ref, err := Observe(d.Referrals)
	if err != nil {
		return ObservedRange{}, fmt.Errorf("referral table: %w", err)
	}
	appt, err := Observe(d.Appointments)
	if err != nil {
		return ObservedRange{}, fmt.Errorf("appointment table: %w", err)
	}
	return Intersect(ref, appt)
}

// DefaultBaseline is the last n months of the range (or the whole range if shorter).
func DefaultBaseline(r ObservedRange, n int) BaselinePeriod {
	start := models.AddMonths(r.Max, -(n - 1))
	if start.Before(r.Min) {
		start = r.Min
	}
	return BaselinePeriod{Start: start, End: r.Max}
}
