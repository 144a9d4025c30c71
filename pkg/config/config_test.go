package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"outpatient_capacity/pkg/core/capacity"
	"outpatient_capacity/pkg/core/pipeline"
	"outpatient_capacity/pkg/core/projection"
	"outpatient_capacity/pkg/core/ratio"
	"outpatient_capacity/pkg/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CAPACITY_ADDR", "DATABASE_URL", "REFERRALS_CSV", "APPOINTMENTS_CSV", "REFERRAL_TABLE", "APPOINTMENT_TABLE", "LOG_LEVEL", "WAITING_LIST_START"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8080" || cfg.LogLevel != "info" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Defaults.Rates.Utilisation != 0.85 || cfg.Defaults.Rates.DNA != 0.10 {
		t.Fatalf("rates = %+v", cfg.Defaults.Rates)
	}
	if cfg.Defaults.Split.RTTFirst != 50 || cfg.Defaults.StartOrDefault() != 500 {
		t.Fatalf("defaults = %+v", cfg.Defaults)
	}
	if cfg.Tables.Referrals != "referrals" || cfg.Tables.Appointments != "appointments" {
		t.Fatalf("tables = %+v", cfg.Tables)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("config without a data source should not validate")
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, "config.yaml", `
addr: ":9000"
referrals_path: "/data/referrals.csv"
appointments_path: "/data/appointments.csv"
tables:
  referrals: "rtt.referrals"
defaults:
  rates:
    utilisation_rate: 0.9
    dna_rate: 0.05
  other_removals: 25
`)
	t.Setenv("CONFIG_PATH", p)
	t.Setenv("CAPACITY_ADDR", ":7000")
	t.Setenv("APPOINTMENT_TABLE", "rtt.appointments")
	t.Setenv("WAITING_LIST_START", "750")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("addr = %q, env should win", cfg.Addr)
	}
	if cfg.Tables.Referrals != "rtt.referrals" || cfg.Tables.Appointments != "rtt.appointments" {
		t.Errorf("tables = %+v", cfg.Tables)
	}
	if cfg.Defaults.Rates.Utilisation != 0.9 || cfg.Defaults.OtherRemovals != 25 || cfg.Defaults.StartOrDefault() != 750 {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoad_ZeroWaitingListStartIsKept(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", writeFile(t, "config.yaml", `
defaults:
  waiting_list_start: 0
`))
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Defaults.WaitingListStart == nil || *cfg.Defaults.WaitingListStart != 0 {
		t.Fatalf("waiting_list_start = %v, want explicit 0", cfg.Defaults.WaitingListStart)
	}
	in := Scenario{}.WaitingListInput(cfg.Defaults)
	if in.Start == nil || *in.Start != 0 {
		t.Fatalf("projector start = %v, want 0", in.Start)
	}

	t.Setenv("WAITING_LIST_START", "0")
	t.Setenv("CONFIG_PATH", writeFile(t, "other.yaml", "addr: \":9000\"\n"))
	if cfg, err = Load(); err != nil {
		t.Fatal(err)
	}
	if cfg.Defaults.StartOrDefault() != 0 {
		t.Fatalf("env start = %v, want 0", cfg.Defaults.StartOrDefault())
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", writeFile(t, "bad.yaml", "addr: [unclosed"))
	if _, err := Load(); err == nil {
		t.Error("malformed yaml accepted")
	}

	t.Setenv("CONFIG_PATH", writeFile(t, "unknown.yaml", "colour: red\n"))
	if _, err := Load(); err == nil {
		t.Error("unknown key accepted")
	}

	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("WAITING_LIST_START", "lots")
	if _, err := Load(); err == nil {
		t.Error("non-numeric WAITING_LIST_START accepted")
	}
}

func TestValidate_BadDefaults(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://localhost/db"}
	cfg.applyDefaults()
	cfg.Defaults.Rates.Utilisation = 0
	if err := cfg.Validate(); !errors.Is(err, models.ErrDegenerateRate) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "component", "test")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"component":"test"`) {
		t.Fatalf("log output = %s", out)
	}
	if !NewLogger(&buf, "nonsense").Enabled(context.Background(), 0) {
		t.Fatal("unknown level should fall back to info")
	}
}

func TestParseScenario_Formats(t *testing.T) {
	cases := []struct {
		format string
		data   string
	}{
		{"yaml", "specialty: Cardiology\nbaseline_start: 2024-01\nbaseline_end: 2024-06\nutilisation_rate: 0.9\n"},
		{"hjson", "{\n  # baseline agreed at planning meeting\n  specialty: Cardiology\n  baseline_start: 2024-01\n  baseline_end: 2024-06\n  utilisation_rate: 0.9\n}"},
		{"json", `{"specialty":"Cardiology","baseline_start":"2024-01","baseline_end":"2024-06","utilisation_rate":0.9,}`},
	}
	for _, c := range cases {
		t.Run(c.format, func(t *testing.T) {
			s, err := ParseScenario([]byte(c.data), c.format)
			if err != nil {
				t.Fatal(err)
			}
			if s.Specialty != "Cardiology" || s.Utilisation == nil || *s.Utilisation != 0.9 {
				t.Fatalf("scenario = %+v", s)
			}
			start, end, err := s.Baseline()
			if err != nil {
				t.Fatal(err)
			}
			if start.Month() != time.January || end.Month() != time.June || end.Day() != 30 {
				t.Fatalf("baseline = %v..%v", start, end)
			}
		})
	}
}

func TestLoadScenario_ByExtension(t *testing.T) {
	p := writeFile(t, "scenario.YML", "specialty: ENT\nmethod: trend\n")
	s, err := LoadScenario(p)
	if err != nil {
		t.Fatal(err)
	}
	if s.Specialty != "ENT" || s.Method != projection.MethodTrend {
		t.Fatalf("scenario = %+v", s)
	}
}

func TestScenario_Parameters(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	cfg.Defaults.OtherRemovals = 10

	adjU := 0.95
	s := Scenario{
		Specialty:           "Cardiology",
		ModelStart:          "2024-07",
		AdjustedUtilisation: &adjU,
		Framing:             ratio.Attended,
	}
	p, err := s.Parameters(cfg.Defaults)
	if err != nil {
		t.Fatal(err)
	}
	if p.BaselineStart != nil || p.BaselineEnd != nil {
		t.Error("empty baseline should stay nil")
	}
	if p.Forecast.ModelStart.Month() != time.July {
		t.Errorf("model start = %v", p.Forecast.ModelStart)
	}
	if p.Capacity.Rates != cfg.Defaults.Rates {
		t.Errorf("rates = %+v", p.Capacity.Rates)
	}
	if p.Capacity.Adjusted == nil || p.Capacity.Adjusted.Utilisation != 0.95 || p.Capacity.Adjusted.DNA != 0.10 {
		t.Errorf("adjusted = %+v", p.Capacity.Adjusted)
	}
	if p.Reconcile.Framing != ratio.Attended {
		t.Errorf("framing = %s", p.Reconcile.Framing)
	}
	if p.WaitingList.Start == nil || *p.WaitingList.Start != 500 || p.WaitingList.OtherRemovals != 10 {
		t.Errorf("waiting list = %+v", p.WaitingList)
	}
}

func TestScenario_DNARateSource(t *testing.T) {
	in := Scenario{}.CapacityInput(Defaults{Rates: capacity.DefaultRates()})
	if !in.DataDNA || in.AdjustedDNASet {
		t.Fatalf("no dna_rate given: %+v", in)
	}
	dna, adj := 0.2, 0.1
	in = Scenario{DNA: &dna, AdjustedDNA: &adj}.CapacityInput(Defaults{Rates: capacity.DefaultRates()})
	if in.DataDNA || !in.AdjustedDNASet || in.Rates.DNA != 0.2 || in.Adjusted.DNA != 0.1 {
		t.Fatalf("explicit rates: %+v", in)
	}
}

func TestScenario_EstimateLeavesStartUnset(t *testing.T) {
	in := Scenario{EstimateWaitingList: true}.WaitingListInput(Defaults{})
	if in.Start != nil || !in.EstimateStart {
		t.Fatalf("input = %+v", in)
	}
}

func TestScenario_InvalidValues(t *testing.T) {
	cases := map[string]Scenario{
		"month":  {BaselineStart: "not a month"},
		"method": {Method: "guess"},
		"source": {AvailableSource: pipeline.AvailableSource("budget")},
		"frame":  {Framing: ratio.Framing("booked")},
	}
	for name, s := range cases {
		if _, err := s.Parameters(Defaults{}); !errors.Is(err, models.ErrInvalidRange) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestLoadDataset_Files(t *testing.T) {
	dir := t.TempDir()
	refs := filepath.Join(dir, "referrals.csv")
	appts := filepath.Join(dir, "appointments.csv")
	if err := os.WriteFile(refs, []byte("month,specialty,referrals\n2024-01,ENT,10\n2024-02,ENT,12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(appts, []byte("month,specialty,appointment_type,appointments_attended,appointments_for_removals\n"+
		"2024-01,ENT,RTT First,8,7\n2024-02,ENT,RTT First,9,8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Config{ReferralsPath: refs, AppointmentsPath: appts}
	cfg.applyDefaults()

	d, err := cfg.LoadDataset(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Referrals) != 2 || len(d.Appointments) != 2 {
		t.Fatalf("dataset = %d referrals, %d appointments", len(d.Referrals), len(d.Appointments))
	}
}
