// Command capacity runs one outpatient capacity analysis from the command line and can
// export the cross-specialty summary as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"outpatient_capacity/pkg/config"
	"outpatient_capacity/pkg/core/pipeline"
	"outpatient_capacity/pkg/core/report"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "config file (default $CONFIG_PATH or config.yaml)")
	scenarioPath := flag.String("scenario", "", "scenario file (.yaml, .hjson or .json)")
	specialty := flag.String("specialty", "", "specialty to analyse when no scenario file is given")
	summaryPath := flag.String("summary", "", "write the cross-specialty summary CSV to this path")
	reportPath := flag.String("report", "", "write the analysis report (.md or .html) to this path")
	flag.Parse()

	if err := run(*configPath, *scenarioPath, *specialty, *summaryPath, *reportPath); err != nil {
		fmt.Fprintf(os.Stderr, "capacity: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, scenarioPath, specialty, summaryPath, reportPath string) error {
	var cfg config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)

	ctx := context.Background()
	data, err := cfg.LoadDataset(ctx, logger)
	if err != nil {
		return err
	}

	scenario := config.Scenario{Specialty: specialty}
	if scenarioPath != "" {
		if scenario, err = config.LoadScenario(scenarioPath); err != nil {
			return err
		}
		if specialty != "" {
			scenario.Specialty = specialty
		}
	}

	if summaryPath != "" {
		if err := writeSummary(data, scenario, summaryPath); err != nil {
			return err
		}
		logger.Info("summary written", "path", summaryPath)
	}
	if scenario.Specialty == "" {
		if summaryPath == "" {
			return fmt.Errorf("nothing to do: give -scenario, -specialty or -summary")
		}
		return nil
	}

	params, err := scenario.Parameters(cfg.Defaults)
	if err != nil {
		return err
	}
	c, err := pipeline.NewEngine(data, logger).Run(params)
	if err != nil {
		return fmt.Errorf("%s: %w", scenario.Specialty, err)
	}
	printAnalysis(os.Stdout, c)

	if reportPath != "" {
		if err := writeReport(c, reportPath); err != nil {
			return err
		}
		logger.Info("report written", "path", reportPath)
	}
	return nil
}

func printAnalysis(w io.Writer, c pipeline.AnalysisContext) {
	fmt.Fprintf(w, "%s, baseline %s\n", c.Specialty, c.Baseline)
	fmt.Fprintf(w, "Forecast referrals (12 months from %s): %s\n\n",
		c.Forecast.ModelStart.Format("2006-01"), report.Whole(c.Forecast.Total))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Appointment type\tRequired\tAvailable\tGap\t")
	for _, r := range c.Reconciliation.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", r.Type,
			report.FixedQuantity(r.Required, 0), report.Whole(r.Available), report.FixedQuantity(r.Gap, 0))
	}
	tw.Flush()
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Waiting list\tChange\tRunning\t")
	for _, s := range c.WaitingList.Waterfall {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", s.Label, report.Whole(s.Delta), report.Whole(s.Running))
	}
	tw.Flush()
	for _, warn := range c.WaitingList.Projection.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}
