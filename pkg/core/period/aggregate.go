package period

import (
	"fmt"
	"sort"
	"time"

	"outpatient_capacity/pkg/models"
)

// Record is anything with a month and a specialty.
type Record interface {
	Period() time.Time
	SpecialtyName() string
}

// Reduction selects how a measure is folded across the window.
type Reduction int

const (
	// Sum adds every row. Never valid for stock columns.
	Sum Reduction = iota
	// Mean averages the per-month totals.
	Mean
	// Last takes the total of the latest month in the window.
	Last
	// CountMonths counts distinct months with at least one row.
	CountMonths
)

func (r Reduction) String() string {
	switch r {
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	case Last:
		return "last"
	case CountMonths:
		return "count-months"
	}
	return fmt.Sprintf("reduction(%d)", int(r))
}

// Measure names one output aggregate.
type Measure[R Record] struct {
	Name   string
	Value  func(R) float64
	Reduce Reduction
	// Stock marks end-of-month snapshot columns (e.g. waiting list); they cannot be summed.
	Stock bool
}

// Filter scopes an aggregation. An empty Specialty keeps every specialty.
type Filter struct {
	Specialty string
	Window    BaselinePeriod
}

// Group is one output row.
type Group struct {
	Key       string             `json:"key"`
	Values    map[string]float64 `json:"values"`
	NumMonths int                `json:"num_months"`
}

// Aggregation is the result of Aggregate.
type Aggregation struct {
	Groups        []Group `json:"groups"`
	NumMonths     int     `json:"num_months"`
	ScalingFactor float64 `json:"scaling_factor"`
}

// Aggregate filters records to one specialty and an inclusive month window, groups them
// by groupBy (nil means a single group with key ""), and applies each measure.
// NumMonths counts the distinct months present after filtering.
func Aggregate[R Record](records []R, f Filter, groupBy func(R) string, measures ...Measure[R]) (*Aggregation, error) {
	for _, m := range measures {
		if m.Stock && m.Reduce == Sum {
			return nil, &models.InvalidRangeError{
				Field:  "measure " + m.Name,
				Reason: "stock columns must use mean or last-month reduction, not sum",
			}
		}
	}

	type bucket struct {
		months  map[int]bool
		byMonth map[int][]float64 // per measure, per month totals
		sums    []float64
	}
	buckets := make(map[string]*bucket)
	var order []string
	allMonths := make(map[int]bool)

	for _, rec := range records {
		if f.Specialty != "" && rec.SpecialtyName() != f.Specialty {
			continue
		}
		if !f.Window.Contains(rec.Period()) {
			continue
		}
		key := ""
		if groupBy != nil {
			key = groupBy(rec)
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{months: make(map[int]bool), byMonth: make(map[int][]float64), sums: make([]float64, len(measures))}
			buckets[key] = b
			order = append(order, key)
		}
		idx := models.MonthIndex(rec.Period())
		b.months[idx] = true
		allMonths[idx] = true
		if _, ok := b.byMonth[idx]; !ok {
			b.byMonth[idx] = make([]float64, len(measures))
		}
		for i, m := range measures {
			if m.Value == nil {
				continue
			}
			v := m.Value(rec)
			b.byMonth[idx][i] += v
			b.sums[i] += v
		}
	}

	if len(allMonths) == 0 {
		what := "aggregation"
		if f.Specialty != "" {
			what = f.Specialty
		}
		return nil, &models.InsufficientDataError{What: what, Detail: fmt.Sprintf("no rows in %s", f.Window)}
	}

	agg := &Aggregation{
		NumMonths:     len(allMonths),
		ScalingFactor: float64(MonthsPerYear) / float64(len(allMonths)),
	}
	for _, key := range order {
		b := buckets[key]
		g := Group{Key: key, Values: make(map[string]float64, len(measures)), NumMonths: len(b.months)}
		months := make([]int, 0, len(b.byMonth))
		for m := range b.byMonth {
			months = append(months, m)
		}
		sort.Ints(months)
		for i, m := range measures {
			switch m.Reduce {
			case Sum:
				g.Values[m.Name] = b.sums[i]
			case Mean:
				g.Values[m.Name] = b.sums[i] / float64(len(months))
			case Last:
				g.Values[m.Name] = b.byMonth[months[len(months)-1]][i]
			case CountMonths:
				g.Values[m.Name] = float64(len(months))
			}
		}
		agg.Groups = append(agg.Groups, g)
	}
	return agg, nil
}

// Group returns the row with the given key.
func (a *Aggregation) Group(key string) (Group, bool) {
	for _, g := range a.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

// Value returns a measure for a group, zero when the group is absent.
func (a *Aggregation) Value(key, name string) float64 {
	g, ok := a.Group(key)
	if !ok {
		return 0
	}
	return g.Values[name]
}

// Scaled returns a measure extrapolated to 12 months.
func (a *Aggregation) Scaled(key, name string) float64 {
	return a.Value(key, name) * a.ScalingFactor
}

// Scale extrapolates a total observed over numMonths to a 12-month equivalent.
func Scale(total float64, numMonths int) (float64, error) {
	if numMonths <= 0 {
		return 0, &models.InsufficientDataError{What: "scaling", Detail: "window has no months"}
	}
	return total * (float64(MonthsPerYear) / float64(numMonths)), nil
}

// MonthValue is one point of a monthly series.
type MonthValue struct {
	Month time.Time `json:"month"`
	Value float64   `json:"value"`
}

// MonthlyTotals sums value per month for one specialty (all specialties if empty),
// ordered by month. keep, when non-nil, filters individual rows.
func MonthlyTotals[R Record](records []R, specialty string, value func(R) float64, keep func(R) bool) []MonthValue {
	totals := make(map[int]float64)
	for _, rec := range records {
		if specialty != "" && rec.SpecialtyName() != specialty {
			continue
		}
		if keep != nil && !keep(rec) {
			continue
		}
		totals[models.MonthIndex(rec.Period())] += value(rec)
	}
	idx := make([]int, 0, len(totals))
	for m := range totals {
		idx = append(idx, m)
	}
	sort.Ints(idx)
	out := make([]MonthValue, 0, len(idx))
	for _, m := range idx {
		out = append(out, MonthValue{Month: models.MonthFromIndex(m), Value: totals[m]})
	}
	return out
}
