package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"outpatient_capacity/pkg/core/pipeline"
	"outpatient_capacity/pkg/core/projection"
	"outpatient_capacity/pkg/core/ratio"
	"outpatient_capacity/pkg/core/reconcile"
	"outpatient_capacity/pkg/core/utils"
	"outpatient_capacity/pkg/models"
)

// Scenario is the user's parameter set for one analysis. Months are YYYY-MM (or any
// shape models.ParseMonth accepts); unset fields take the configured defaults. The same
// shape is the request body of the HTTP steps.
type Scenario struct {
	Specialty     string `json:"specialty" yaml:"specialty"`
	BaselineStart string `json:"baseline_start,omitempty" yaml:"baseline_start"`
	BaselineEnd   string `json:"baseline_end,omitempty" yaml:"baseline_end"`

	ModelStart string            `json:"model_start_date,omitempty" yaml:"model_start_date"`
	ByPriority bool              `json:"by_priority,omitempty" yaml:"by_priority"`
	Method     projection.Method `json:"method,omitempty" yaml:"method"`

	Utilisation         *float64 `json:"utilisation_rate,omitempty" yaml:"utilisation_rate"`
	DNA                 *float64 `json:"dna_rate,omitempty" yaml:"dna_rate"`
	AdjustedUtilisation *float64 `json:"adjusted_utilisation_rate,omitempty" yaml:"adjusted_utilisation_rate"`
	AdjustedDNA         *float64 `json:"adjusted_dna_rate,omitempty" yaml:"adjusted_dna_rate"`

	Framing         ratio.Framing            `json:"framing,omitempty" yaml:"framing"`
	AvailableSource pipeline.AvailableSource `json:"available_source,omitempty" yaml:"available_source"`
	Split           *reconcile.Split         `json:"split,omitempty" yaml:"split"`

	WaitingListStart    *float64 `json:"waiting_list_start,omitempty" yaml:"waiting_list_start"`
	EstimateWaitingList bool     `json:"estimate_waiting_list_start,omitempty" yaml:"estimate_waiting_list_start"`
	OtherRemovals       *float64 `json:"other_removals,omitempty" yaml:"other_removals"`
}

// LoadScenario reads a scenario file. .yaml/.yml are YAML, .hjson is Hjson, anything
// else goes through the lenient JSON chain.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	s, err := ParseScenario(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes data in the given format ("yaml", "yml", "hjson" or "json").
func ParseScenario(data []byte, format string) (Scenario, error) {
	var s Scenario
	switch format {
	case "yaml", "yml":
		if err := yaml.UnmarshalStrict(data, &s); err != nil {
			return Scenario{}, fmt.Errorf("yaml: %w", err)
		}
	case "hjson":
		converted, err := utils.ParseHJSON(data)
		if err != nil {
			return Scenario{}, err
		}
		if err := utils.DecodeStrict(converted, &s); err != nil {
			return Scenario{}, err
		}
	default:
		if _, err := utils.SmartParse(data, &s); err != nil {
			return Scenario{}, err
		}
	}
	return s, nil
}

// =============================================================================
// STEP INPUTS
// =============================================================================

// Baseline parses the optional baseline bounds.
func (s Scenario) Baseline() (start, end *time.Time, err error) {
	if start, err = optionalMonth("baseline_start", s.BaselineStart); err != nil {
		return nil, nil, err
	}
	if end, err = optionalMonth("baseline_end", s.BaselineEnd); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// ForecastInput builds the forecaster input.
func (s Scenario) ForecastInput() (pipeline.ForecastInput, error) {
	in := pipeline.ForecastInput{ByPriority: s.ByPriority, Method: s.Method}
	switch s.Method {
	case "", projection.MethodModel, projection.MethodTrend:
	default:
		return in, &models.InvalidRangeError{Field: "method", Reason: fmt.Sprintf("%q is not model or trend", s.Method)}
	}
	ms, err := optionalMonth("model_start_date", s.ModelStart)
	if err != nil {
		return in, err
	}
	if ms != nil {
		in.ModelStart = *ms
	}
	return in, nil
}

// CapacityInput builds the converter input. Either adjusted rate enables the what-if;
// the other falls back to the baseline value. Without an explicit dna_rate the data's
// baseline DNA rate is preferred over the configured default.
func (s Scenario) CapacityInput(d Defaults) pipeline.CapacityInput {
	rates := d.Rates
	if s.Utilisation != nil {
		rates.Utilisation = *s.Utilisation
	}
	if s.DNA != nil {
		rates.DNA = *s.DNA
	}
	in := pipeline.CapacityInput{Rates: rates, DataDNA: s.DNA == nil, AdjustedDNASet: s.AdjustedDNA != nil}
	if s.AdjustedUtilisation != nil || s.AdjustedDNA != nil {
		adj := rates
		if s.AdjustedUtilisation != nil {
			adj.Utilisation = *s.AdjustedUtilisation
		}
		if s.AdjustedDNA != nil {
			adj.DNA = *s.AdjustedDNA
		}
		in.Adjusted = &adj
	}
	return in
}

// ReconcileInput builds the reconciler input.
func (s Scenario) ReconcileInput() (pipeline.ReconcileInput, error) {
	in := pipeline.ReconcileInput{Framing: s.Framing, Source: s.AvailableSource, Split: s.Split}
	switch s.Framing {
	case "", ratio.Attended, ratio.ForRemovals:
	default:
		return in, &models.InvalidRangeError{Field: "framing", Reason: fmt.Sprintf("%q is not attended or for_removals", s.Framing)}
	}
	switch s.AvailableSource {
	case "", pipeline.SourceRequiredAvailable, pipeline.SourceAttended:
	default:
		return in, &models.InvalidRangeError{Field: "available_source", Reason: fmt.Sprintf("%q is not required_available or attended", s.AvailableSource)}
	}
	return in, nil
}

// WaitingListInput builds the projector input. An explicit start wins over the
// estimate; with neither, the configured default start is used.
func (s Scenario) WaitingListInput(d Defaults) pipeline.WaitingListInput {
	in := pipeline.WaitingListInput{Start: s.WaitingListStart, EstimateStart: s.EstimateWaitingList, OtherRemovals: d.OtherRemovals}
	if s.OtherRemovals != nil {
		in.OtherRemovals = *s.OtherRemovals
	}
	if in.Start == nil && !in.EstimateStart {
		start := d.StartOrDefault()
		in.Start = &start
	}
	return in
}

// Parameters assembles a full pipeline run.
func (s Scenario) Parameters(d Defaults) (pipeline.Parameters, error) {
	start, end, err := s.Baseline()
	if err != nil {
		return pipeline.Parameters{}, err
	}
	fc, err := s.ForecastInput()
	if err != nil {
		return pipeline.Parameters{}, err
	}
	rc, err := s.ReconcileInput()
	if err != nil {
		return pipeline.Parameters{}, err
	}
	return pipeline.Parameters{
		Specialty:     s.Specialty,
		BaselineStart: start,
		BaselineEnd:   end,
		Forecast:      fc,
		Capacity:      s.CapacityInput(d),
		Reconcile:     rc,
		WaitingList:   s.WaitingListInput(d),
	}, nil
}

func optionalMonth(field, v string) (*time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	t, err := models.ParseMonth(v)
	if err != nil {
		return nil, &models.InvalidRangeError{Field: field, Reason: err.Error()}
	}
	return &t, nil
}
