// Package projection forecasts 12 months of referral demand for a specialty.
// Two models compete: a flat baseline average and an ordinary least-squares trend over
// the month index. The model with the lower mean absolute error on the baseline wins.
package projection

import (
	"fmt"
	"math"
)

// =============================================================================
// FORECAST MODEL INTERFACE
// =============================================================================

// ModelKind tags the two model variants.
type ModelKind string

const (
	Average    ModelKind = "average"
	Regression ModelKind = "regression"
)

// ForecastModel predicts a monthly referral count from a month index
// (see models.MonthIndex).
type ForecastModel interface {
	// Name returns the model identifier.
	Name() ModelKind

	// Predict returns the expected count for one month. Never negative.
	Predict(monthIndex int) float64

	// Validate reports whether the fitted parameters are usable.
	Validate() error
}

// =============================================================================
// BUILT-IN MODELS
// =============================================================================

// AverageModel repeats one constant monthly rate.
type AverageModel struct {
	MonthlyRate float64 `json:"monthly_rate"`
}

func (m *AverageModel) Name() ModelKind { return Average }

func (m *AverageModel) Predict(int) float64 { return math.Max(0, m.MonthlyRate) }

func (m *AverageModel) Validate() error {
	if math.IsNaN(m.MonthlyRate) || math.IsInf(m.MonthlyRate, 0) {
		return fmt.Errorf("average model: rate is not finite")
	}
	return nil
}

// RegressionModel is a straight line fitted by least squares.
// Formula: value = Intercept + Slope × (monthIndex − Origin)
type RegressionModel struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Origin    int     `json:"origin"` // month index of the first fitted point
}

func (m *RegressionModel) Name() ModelKind { return Regression }

// Predict floors the line at zero; a referral count cannot go negative.
func (m *RegressionModel) Predict(monthIndex int) float64 {
	return math.Max(0, m.Intercept+m.Slope*float64(monthIndex-m.Origin))
}

func (m *RegressionModel) Validate() error {
	for _, v := range []float64{m.Slope, m.Intercept} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("regression model: parameters are not finite")
		}
	}
	return nil
}

// Point is one observation of the fitted series.
type Point struct {
	MonthIndex int
	Value      float64
}

// FitRegression runs ordinary least squares of value against month index.
// It needs at least two distinct months.
func FitRegression(points []Point) (*RegressionModel, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("regression needs at least 2 points, got %d", len(points))
	}
	origin := points[0].MonthIndex
	for _, p := range points {
		if p.MonthIndex < origin {
			origin = p.MonthIndex
		}
	}
	n := float64(len(points))
	var sx, sy float64
	for _, p := range points {
		sx += float64(p.MonthIndex - origin)
		sy += p.Value
	}
	mx, my := sx/n, sy/n
	var sxx, sxy float64
	for _, p := range points {
		dx := float64(p.MonthIndex-origin) - mx
		sxx += dx * dx
		sxy += dx * (p.Value - my)
	}
	if sxx == 0 {
		return nil, fmt.Errorf("regression needs at least 2 distinct months")
	}
	slope := sxy / sxx
	m := &RegressionModel{Slope: slope, Intercept: my - slope*mx, Origin: origin}
	return m, m.Validate()
}

// MeanAbsoluteError scores a model against observed points.
func MeanAbsoluteError(m ForecastModel, actual []Point) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for _, p := range actual {
		sum += math.Abs(m.Predict(p.MonthIndex) - p.Value)
	}
	return sum / float64(len(actual))
}
