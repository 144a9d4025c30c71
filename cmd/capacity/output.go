package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"outpatient_capacity/pkg/config"
	"outpatient_capacity/pkg/core/pipeline"
	"outpatient_capacity/pkg/core/report"
	"outpatient_capacity/pkg/core/validate"
	"outpatient_capacity/pkg/models"
)

// writeSummary builds the summary over the scenario's baseline (or the default one),
// showing progress per specialty.
func writeSummary(data *models.Dataset, s config.Scenario, path string) error {
	start, end, err := s.Baseline()
	if err != nil {
		return err
	}
	baseline, err := validate.Baseline(data, start, end)
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(data.Specialties())), "summarising")
	sum, err := report.Summarise(data, baseline, func(report.SummaryRow) { _ = bar.Add(1) })
	if err != nil {
		return err
	}
	_ = bar.Finish()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	if err := sum.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write summary: %w", err)
	}
	return f.Close()
}

// writeReport writes HTML for .html/.htm paths and Markdown otherwise.
func writeReport(c pipeline.AnalysisContext, path string) error {
	var body string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		page, err := report.HTML(c)
		if err != nil {
			return err
		}
		body = page
	default:
		body = report.Markdown(c)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
