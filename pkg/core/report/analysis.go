package report

import (
	"fmt"
	"strings"

	"outpatient_capacity/pkg/core/pipeline"
	"outpatient_capacity/pkg/core/utils"
	"outpatient_capacity/pkg/models"
)

// =============================================================================
// ANALYSIS WRITE-UP
// =============================================================================

// Markdown renders whatever steps the context has completed; missing steps are noted
// rather than failing the report.
func Markdown(c pipeline.AnalysisContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Outpatient capacity: %s\n\n", c.Specialty)
	fmt.Fprintf(&b, "Baseline %s (%d months). Analysis %s, revision %d.\n\n",
		c.Baseline, c.Baseline.NumMonths(), c.ID, c.Revision)

	writeForecast(&b, c)
	writeRatios(&b, c)
	writeCapacity(&b, c)
	writeReconciliation(&b, c)
	writeWaitingList(&b, c)
	return b.String()
}

// HTML renders Markdown as a standalone page.
func HTML(c pipeline.AnalysisContext) (string, error) {
	return utils.RenderPage("Outpatient capacity: "+c.Specialty, Markdown(c))
}

func pending(b *strings.Builder, step string) {
	fmt.Fprintf(b, "_The %s step has not been run._\n\n", step)
}

func writeForecast(b *strings.Builder, c pipeline.AnalysisContext) {
	b.WriteString("## Demand forecast\n\n")
	f := c.Forecast
	if f == nil {
		pending(b, pipeline.StepForecast)
		return
	}
	fmt.Fprintf(b, "Forecast referrals for the 12 months from %s: **%s** (method: %s).\n\n",
		models.FormatMonth(f.ModelStart), Whole(f.Total), f.Method)
	if len(f.Series) > 0 {
		b.WriteString(utils.TableRow("Stream", "Model", "Baseline monthly rate", "12-month total"))
		b.WriteString(utils.TableRule(4))
		for _, s := range f.Series {
			name := s.Priority
			if name == "" {
				name = "All referrals"
			}
			b.WriteString(utils.TableRow(name, string(s.Selected), Fixed(s.BaselineMonthlyRate, 1), Whole(s.Total).String()))
		}
		b.WriteString("\n")
	}
	if len(f.Uplifts) > 0 {
		b.WriteString(utils.TableRow("Stream", "Annual trend", "Applied uplift", "12-month total"))
		b.WriteString(utils.TableRule(4))
		for _, u := range f.Uplifts {
			name := u.Priority
			if name == "" {
				name = "All referrals"
			}
			b.WriteString(utils.TableRow(name, percent(u.AnnualChange), percent(u.AppliedChange), Whole(u.Total).String()))
		}
		b.WriteString("\n")
	}
}

func writeRatios(b *strings.Builder, c pipeline.AnalysisContext) {
	b.WriteString("## Appointment ratios\n\n")
	r := c.Ratios
	if r == nil {
		pending(b, pipeline.StepRatios)
		return
	}
	b.WriteString(utils.TableRow("Ratio", "Attended", "For removals", "Status"))
	b.WriteString(utils.TableRule(4))
	for _, a := range r.Alignment {
		b.WriteString(utils.TableRow(a.Pair, FixedQuantity(a.Attended, 2), FixedQuantity(a.Required, 2), string(a.Status)))
	}
	b.WriteString("\n")
}

func writeCapacity(b *strings.Builder, c pipeline.AnalysisContext) {
	b.WriteString("## Capacity\n\n")
	cr := c.Capacity
	if cr == nil {
		pending(b, pipeline.StepCapacity)
		return
	}
	f := cr.Figures
	fmt.Fprintf(b, "Utilisation %s, DNA rate %s.\n\n", percent(f.Rates.Utilisation), percent(f.Rates.DNA))
	b.WriteString(utils.TableRow("Appointment type", "Attended (baseline)", "Attended (12-month)", "Required available"))
	b.WriteString(utils.TableRule(4))
	for _, t := range f.Types {
		b.WriteString(utils.TableRow(string(t.Type), Whole(t.BaselineAttended).String(), Whole(t.Attended).String(), Whole(t.RequiredAvailable).String()))
	}
	b.WriteString("\n")
	if w := cr.WhatIf; w != nil {
		fmt.Fprintf(b, "At utilisation %s and DNA %s the same slots would give **%s** attended RTT first appointments (%s slots needed for the baseline volume).\n\n",
			percent(w.Adjusted.Utilisation), percent(w.Adjusted.DNA), Whole(w.Achievable), Whole(w.AdjustedRequired))
	}
	if a := cr.Assessment; a != nil {
		fmt.Fprintf(b, "**%s**: %s.\n\n", a.Status, a.Message)
	}
}

func writeReconciliation(b *strings.Builder, c pipeline.AnalysisContext) {
	b.WriteString("## Demand vs capacity\n\n")
	t := c.Reconciliation
	if t == nil {
		pending(b, pipeline.StepReconcile)
		return
	}
	fmt.Fprintf(b, "Ratios framed on %s; available capacity from %s.\n\n", t.Framing, t.AvailableSource)
	b.WriteString(utils.TableRow("Appointment type", "Required", "Available", "Gap"))
	b.WriteString(utils.TableRule(4))
	for _, r := range t.Rows {
		b.WriteString(utils.TableRow(string(r.Type), FixedQuantity(r.Required, 0), Whole(r.Available).String(), FixedQuantity(r.Gap, 0)))
	}
	b.WriteString("\n")
	if short := t.Shortfalls(); len(short) > 0 {
		names := make([]string, len(short))
		for i, s := range short {
			names[i] = string(s)
		}
		fmt.Fprintf(b, "Shortfall in: %s.\n\n", strings.Join(names, ", "))
	}
}

func writeWaitingList(b *strings.Builder, c pipeline.AnalysisContext) {
	b.WriteString("## Waiting list\n\n")
	w := c.WaitingList
	if w == nil {
		pending(b, pipeline.StepWaitingList)
		return
	}
	b.WriteString(utils.TableRow("Step", "Change", "Running total"))
	b.WriteString(utils.TableRule(3))
	for _, s := range w.Waterfall {
		b.WriteString(utils.TableRow(s.Label, Whole(s.Delta).String(), Whole(s.Running).String()))
	}
	b.WriteString("\n")
	if e := w.Estimate; e != nil {
		fmt.Fprintf(b, "Start estimated from %s observed in %s over %d months.\n\n",
			Whole(e.LastObserved), models.FormatMonth(e.LastObservedMonth), e.MonthsElapsed)
	}
	for _, warn := range w.Projection.Warnings {
		fmt.Fprintf(b, "> Warning: %s\n\n", warn)
	}
}

func percent(v float64) string {
	return Fixed(v*100, 1) + "%"
}
