package projection

import (
	"fmt"
	"time"

	"outpatient_capacity/pkg/core/period"
	"outpatient_capacity/pkg/models"
)

const (
	// Horizon is the number of forecast months.
	Horizon = 12
	// PreBaselineMonths bounds the evaluation window before the baseline start.
	PreBaselineMonths = 12
)

// Method chooses between model selection and the trend-uplift path.
type Method string

const (
	MethodModel Method = "model"
	MethodTrend Method = "trend"
)

// Score is one model's error on the baseline window.
type Score struct {
	Model ModelKind `json:"model"`
	MAE   float64   `json:"mae"`
}

// Series is the forecast of one referral stream (a whole specialty or one priority).
type Series struct {
	Priority            string              `json:"priority,omitempty"`
	Selected            ModelKind           `json:"selected"`
	Average             AverageModel        `json:"average"`
	Regression          *RegressionModel    `json:"regression,omitempty"`
	Scores              []Score             `json:"scores"`
	PreBaselinePoints   int                 `json:"pre_baseline_points"`
	BaselineTotal       float64             `json:"baseline_total"`
	BaselineMonths      int                 `json:"baseline_months"`
	BaselineMonthlyRate float64             `json:"baseline_monthly_rate"`
	Months              []period.MonthValue `json:"months"`
	Total               float64             `json:"total"`
}

// Model returns the selected model.
func (s *Series) Model() ForecastModel {
	if s.Selected == Regression && s.Regression != nil {
		return s.Regression
	}
	return &s.Average
}

// Forecast is the demand result for one specialty.
type Forecast struct {
	Specialty     string                `json:"specialty"`
	Method        Method                `json:"method"`
	Baseline      period.BaselinePeriod `json:"baseline"`
	ModelStart    time.Time             `json:"model_start"`
	ScalingFactor float64               `json:"scaling_factor"`
	Series        []Series              `json:"series,omitempty"`
	Uplifts       []Uplift              `json:"uplifts,omitempty"`
	Total         float64               `json:"forecasted_total"`
}

// Request scopes a forecast.
type Request struct {
	Specialty  string
	Baseline   period.BaselinePeriod
	ModelStart time.Time
	ByPriority bool
	Method     Method
}

// Run forecasts referrals for one specialty. With ByPriority each priority is projected
// separately and the total is their sum.
func Run(refs []models.ReferralRecord, req Request) (*Forecast, error) {
	history := period.MonthlyTotals(refs, req.Specialty, referrals, nil)
	if len(history) == 0 {
		return nil, &models.InvalidRangeError{Field: "specialty", Reason: fmt.Sprintf("%q has no referral rows", req.Specialty)}
	}

	streams := []stream{{history: history}}
	if req.ByPriority {
		if split := byPriority(refs, req.Specialty, history); len(split) > 0 {
			streams = split
		}
	}

	method := req.Method
	if method == "" {
		method = MethodModel
	}
	fc := &Forecast{
		Specialty:  req.Specialty,
		Method:     method,
		Baseline:   req.Baseline,
		ModelStart: models.MonthEnd(req.ModelStart),
	}

	n := len(pointsIn(history, req.Baseline))
	if n == 0 {
		return nil, &models.InsufficientDataError{What: req.Specialty + " referrals", Detail: fmt.Sprintf("no rows in baseline %s", req.Baseline)}
	}
	fc.ScalingFactor = float64(period.MonthsPerYear) / float64(n)

	for _, st := range streams {
		switch method {
		case MethodTrend:
			if err := checkModelStart(st.history, req.ModelStart); err != nil {
				return nil, err
			}
			u, err := TrendUplift(st.history, req.Baseline)
			if err != nil {
				return nil, fmt.Errorf("trend for %q: %w", st.priority, err)
			}
			u.Priority = st.priority
			fc.Uplifts = append(fc.Uplifts, u)
			fc.Total += u.Total
		default:
			s, err := ProjectSeries(st.history, req.Baseline, req.ModelStart)
			if err != nil {
				if st.priority != "" {
					return nil, fmt.Errorf("priority %q: %w", st.priority, err)
				}
				return nil, err
			}
			s.Priority = st.priority
			fc.Series = append(fc.Series, *s)
			fc.Total += s.Total
		}
	}
	return fc, nil
}

// ProjectSeries fits both models, selects by baseline MAE (ties favour Average) and
// projects Horizon months from modelStart.
func ProjectSeries(history []period.MonthValue, baseline period.BaselinePeriod, modelStart time.Time) (*Series, error) {
	if err := checkModelStart(history, modelStart); err != nil {
		return nil, err
	}
	actual := pointsIn(history, baseline)
	if len(actual) == 0 {
		return nil, &models.InsufficientDataError{What: "referrals", Detail: fmt.Sprintf("no rows in baseline %s", baseline)}
	}

	s := &Series{BaselineMonths: len(actual)}
	for _, p := range actual {
		s.BaselineTotal += p.Value
	}
	scaled, err := period.Scale(s.BaselineTotal, len(actual))
	if err != nil {
		return nil, err
	}
	s.BaselineMonthlyRate = scaled / period.MonthsPerYear
	s.Average = AverageModel{MonthlyRate: s.BaselineMonthlyRate}
	s.Selected = Average
	s.Scores = []Score{{Model: Average, MAE: MeanAbsoluteError(&s.Average, actual)}}

	pre := preBaseline(history, baseline)
	s.PreBaselinePoints = len(pre)
	if len(pre) >= 2 {
		reg, err := FitRegression(pre)
		if err != nil {
			return nil, &models.InsufficientDataError{What: "regression", Detail: err.Error()}
		}
		s.Regression = reg
		mae := MeanAbsoluteError(reg, actual)
		s.Scores = append(s.Scores, Score{Model: Regression, MAE: mae})
		if mae < s.Scores[0].MAE {
			s.Selected = Regression
		}
	}

	model := s.Model()
	start := models.MonthIndex(modelStart)
	s.Months = make([]period.MonthValue, 0, Horizon)
	for i := 0; i < Horizon; i++ {
		v := model.Predict(start + i)
		s.Months = append(s.Months, period.MonthValue{Month: models.MonthFromIndex(start + i), Value: v})
		s.Total += v
	}
	return s, nil
}

type stream struct {
	priority string
	history  []period.MonthValue
}

func referrals(r models.ReferralRecord) float64 { return r.Referrals }

// UnspecifiedPriority labels the stream of rows that carry no priority when the rest of
// the specialty is split by priority.
const UnspecifiedPriority = "Unspecified"

// byPriority splits a specialty's history per priority, zero-filling months where a
// priority has no row so every stream covers the same calendar. Blank-priority rows form
// their own stream so the streams always sum to the specialty total.
func byPriority(refs []models.ReferralRecord, specialty string, months []period.MonthValue) []stream {
	priorities := (&models.Dataset{Referrals: refs}).Priorities(specialty)
	if len(priorities) == 0 {
		return nil
	}
	for _, r := range refs {
		if r.Specialty == specialty && r.Priority == "" {
			priorities = append(priorities, "")
			break
		}
	}

	var out []stream
	for _, pr := range priorities {
		totals := period.MonthlyTotals(refs, specialty, referrals, func(r models.ReferralRecord) bool { return r.Priority == pr })
		byIdx := make(map[int]float64, len(totals))
		for _, mv := range totals {
			byIdx[models.MonthIndex(mv.Month)] = mv.Value
		}
		h := make([]period.MonthValue, 0, len(months))
		for _, mv := range months {
			h = append(h, period.MonthValue{Month: mv.Month, Value: byIdx[models.MonthIndex(mv.Month)]})
		}
		label := pr
		if label == "" {
			label = UnspecifiedPriority
		}
		out = append(out, stream{priority: label, history: h})
	}
	return out
}

func checkModelStart(history []period.MonthValue, modelStart time.Time) error {
	if len(history) == 0 {
		return &models.InsufficientDataError{What: "referrals", Detail: "empty history"}
	}
	latest := history[len(history)-1].Month
	if models.MonthIndex(modelStart) <= models.MonthIndex(latest) {
		return &models.InvalidRangeError{
			Field:  "model_start_date",
			Reason: fmt.Sprintf("%s is not after the latest historical month %s", models.FormatMonth(modelStart), models.FormatMonth(latest)),
		}
	}
	return nil
}

func pointsIn(history []period.MonthValue, window period.BaselinePeriod) []Point {
	var pts []Point
	for _, mv := range history {
		if window.Contains(mv.Month) {
			pts = append(pts, Point{MonthIndex: models.MonthIndex(mv.Month), Value: mv.Value})
		}
	}
	return pts
}

// preBaseline returns the months with data among the PreBaselineMonths before the
// baseline start.
func preBaseline(history []period.MonthValue, baseline period.BaselinePeriod) []Point {
	start := models.MonthIndex(baseline.Start)
	var pts []Point
	for _, mv := range history {
		idx := models.MonthIndex(mv.Month)
		if idx >= start-PreBaselineMonths && idx < start {
			pts = append(pts, Point{MonthIndex: idx, Value: mv.Value})
		}
	}
	return pts
}
