// Package config loads service settings from YAML with environment overrides, and the
// scenario files that carry a user's analysis parameters.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"outpatient_capacity/pkg/core/capacity"
	"outpatient_capacity/pkg/core/reconcile"
	"outpatient_capacity/pkg/core/store"
	"outpatient_capacity/pkg/core/waitlist"
)

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "config.yaml"

// Defaults fill any scenario field the user leaves out. A nil WaitingListStart means the
// key was absent; an explicit 0 is kept.
type Defaults struct {
	Rates            capacity.Rates  `yaml:"rates"`
	Split            reconcile.Split `yaml:"split"`
	WaitingListStart *float64        `yaml:"waiting_list_start"`
	OtherRemovals    float64         `yaml:"other_removals"`
}

// Config is the service configuration.
type Config struct {
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`

	// Data source: a database DSN, or a referral and an appointment file (CSV or HTML).
	DatabaseURL      string       `yaml:"database_url"`
	ReferralsPath    string       `yaml:"referrals_path"`
	AppointmentsPath string       `yaml:"appointments_path"`
	Tables           store.Tables `yaml:"tables"`

	Defaults Defaults `yaml:"defaults"`
}

// Load reads the file named by CONFIG_PATH (or config.yaml). A missing file is not an
// error; environment variables override file values.
func Load() (Config, error) {
	path := DefaultPath
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		path = p
	}
	return LoadFile(path)
}

// LoadFile reads one YAML file, then applies environment overrides and defaults.
func LoadFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	envOverride(&cfg.Addr, "CAPACITY_ADDR")
	envOverride(&cfg.DatabaseURL, "DATABASE_URL")
	envOverride(&cfg.ReferralsPath, "REFERRALS_CSV")
	envOverride(&cfg.AppointmentsPath, "APPOINTMENTS_CSV")
	envOverride(&cfg.Tables.Referrals, "REFERRAL_TABLE")
	envOverride(&cfg.Tables.Appointments, "APPOINTMENT_TABLE")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")
	if err := envOverrideFloat(&cfg.Defaults.WaitingListStart, "WAITING_LIST_START"); err != nil {
		return Config{}, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Tables.Referrals == "" {
		c.Tables.Referrals = store.DefaultTables.Referrals
	}
	if c.Tables.Appointments == "" {
		c.Tables.Appointments = store.DefaultTables.Appointments
	}
	if c.Defaults.Rates == (capacity.Rates{}) {
		c.Defaults.Rates = capacity.DefaultRates()
	}
	if c.Defaults.Split == (reconcile.Split{}) {
		c.Defaults.Split = reconcile.DefaultSplit()
	}
	if c.Defaults.WaitingListStart == nil {
		start := float64(waitlist.DefaultStart)
		c.Defaults.WaitingListStart = &start
	}
}

// StartOrDefault is the configured default waiting-list start, or waitlist.DefaultStart
// when none was set.
func (d Defaults) StartOrDefault() float64 {
	if d.WaitingListStart == nil {
		return waitlist.DefaultStart
	}
	return *d.WaitingListStart
}

// Validate checks that a data source is configured and the default parameters are usable.
func (c Config) Validate() error {
	if c.DatabaseURL == "" && (c.ReferralsPath == "" || c.AppointmentsPath == "") {
		return fmt.Errorf("no data source: set database_url or both referrals_path and appointments_path")
	}
	if err := c.Defaults.Rates.Validate(); err != nil {
		return fmt.Errorf("default rates: %w", err)
	}
	if err := c.Defaults.Split.Validate(); err != nil {
		return fmt.Errorf("default split: %w", err)
	}
	return nil
}

func envOverride(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envOverrideFloat(dst **float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = &f
	return nil
}

// NewLogger returns a JSON slog logger at the named level (debug, info, warn, error).
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
