package projection

import (
	"fmt"
	"math"

	"outpatient_capacity/pkg/core/period"
	"outpatient_capacity/pkg/models"
)

// Uplift is the trend-based alternative to model selection: the baseline-scaled
// 12-month total raised by the annual percentage change implied by the full history.
type Uplift struct {
	Priority            string  `json:"priority,omitempty"`
	BaselineScaledTotal float64 `json:"baseline_scaled_total"`
	Slope               float64 `json:"slope"`
	Mean                float64 `json:"mean"`
	AnnualChange        float64 `json:"annual_change"`  // fraction, may be negative
	AppliedChange       float64 `json:"applied_change"` // floored at zero
	Total               float64 `json:"total"`
}

// TrendUplift fits a line to the whole history and applies slope×12/mean as a one-time
// uplift. Fewer than two points or a zero mean give no uplift.
func TrendUplift(history []period.MonthValue, baseline period.BaselinePeriod) (Uplift, error) {
	var u Uplift
	actual := pointsIn(history, baseline)
	if len(actual) == 0 {
		return u, &models.InsufficientDataError{What: "referrals", Detail: fmt.Sprintf("no rows in baseline %s", baseline)}
	}
	var total float64
	for _, p := range actual {
		total += p.Value
	}
	scaled, err := period.Scale(total, len(actual))
	if err != nil {
		return u, err
	}
	u.BaselineScaledTotal = scaled

	all := pointsIn(history, period.BaselinePeriod{Start: history[0].Month, End: history[len(history)-1].Month})
	for _, p := range all {
		u.Mean += p.Value
	}
	u.Mean /= float64(len(all))

	if len(all) >= 2 && u.Mean != 0 {
		reg, err := FitRegression(all)
		if err == nil {
			u.Slope = reg.Slope
			u.AnnualChange = reg.Slope * period.MonthsPerYear / u.Mean
		}
	}
	u.AppliedChange = math.Max(0, u.AnnualChange)
	u.Total = u.BaselineScaledTotal * (1 + u.AppliedChange)
	return u, nil
}
