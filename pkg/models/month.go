package models

import (
	"fmt"
	"strings"
	"time"
)

// MonthEnd normalises any timestamp to the last day of its calendar month (UTC, midnight).
func MonthEnd(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1)
}

// MonthIndex is an integer ordinal for a calendar month (consecutive months differ by 1).
func MonthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// MonthFromIndex inverts MonthIndex, returning the month-end timestamp.
func MonthFromIndex(idx int) time.Time {
	return MonthEnd(time.Date(idx/12, time.Month(idx%12+1), 1, 0, 0, 0, 0, time.UTC))
}

// AddMonths shifts a month by n calendar months, staying on month-end.
func AddMonths(t time.Time, n int) time.Time {
	return MonthFromIndex(MonthIndex(t) + n)
}

// MonthsBetweenInclusive returns every month-end from start to end, both included.
func MonthsBetweenInclusive(start, end time.Time) []time.Time {
	from, to := MonthIndex(start), MonthIndex(end)
	var out []time.Time
	for i := from; i <= to; i++ {
		out = append(out, MonthFromIndex(i))
	}
	return out
}

// FormatMonth renders a month as YYYY-MM.
func FormatMonth(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

var monthLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01",
	"2006/01/02",
	"02/01/2006",
	"Jan 2006",
	"January 2006",
	"012006",
}

// ParseMonth accepts the date shapes found in exported activity tables and normalises
// the result to month-end.
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty month value")
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthEnd(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised month %q", s)
}
