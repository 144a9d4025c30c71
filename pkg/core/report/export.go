package report

import (
	"io"

	"github.com/shopspring/decimal"

	"outpatient_capacity/pkg/core/ingest"
	"outpatient_capacity/pkg/models"
)

// SummaryHeader is the CSV header of the exported summary.
var SummaryHeader = []string{
	"Specialty",
	"Referrals (Baseline)",
	"Removals (Baseline)",
	"Expected Change",
	"Referrals (12-Month)",
	"Removals (12-Month)",
	"Deficit (12-Month)",
	"Capacity Status",
}

// Whole rounds half away from zero to a whole number.
func Whole(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(0)
}

// Fixed renders v with the given number of decimal places.
func Fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FixedQuantity renders a quantity, or its "not computable" text when undefined.
func FixedQuantity(q models.Quantity, places int32) string {
	if !q.Valid {
		return q.String()
	}
	return Fixed(q.Value, places)
}

// Records lays the summary out as CSV rows, figures rounded to whole numbers.
func (s *Summary) Records() [][]string {
	out := make([][]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		out = append(out, []string{
			r.Specialty,
			Whole(r.BaselineReferrals).String(),
			Whole(r.BaselineRemovals).String(),
			r.ExpectedChange,
			Whole(r.Referrals12).String(),
			Whole(r.Removals12).String(),
			Whole(r.Deficit).String(),
			r.SessionStatus.Label(),
		})
	}
	return out
}

// WriteCSV exports the summary.
func (s *Summary) WriteCSV(w io.Writer) error {
	return ingest.WriteCSV(w, SummaryHeader, s.Records())
}
