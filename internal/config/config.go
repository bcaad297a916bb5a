// Package config provides YAML-based configuration loading for renoplan.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/Elemanor/renonext-sub004/internal/cpm"
	"github.com/Elemanor/renonext-sub004/internal/delay"
	"github.com/Elemanor/renonext-sub004/internal/sci"
)

// Config is the top-level configuration, loaded from renoplan.yaml.
type Config struct {
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Delay      DelayConfig      `yaml:"delay"`
	Scope      ScopeConfig      `yaml:"scope"`
	Milestones MilestonesConfig `yaml:"milestones"`
}

// ScheduleConfig tunes the CPM engine.
type ScheduleConfig struct {
	Epsilon float64 `yaml:"epsilon" env:"RENOPLAN_EPSILON"`
}

// DelayConfig tunes delay classification.
type DelayConfig struct {
	AtRiskWindowDays int `yaml:"at_risk_window_days" env:"RENOPLAN_AT_RISK_WINDOW_DAYS"`
}

// ScopeConfig holds the Scope Confidence weights and tier thresholds.
// Weights given in the file override the defaults key by key.
type ScopeConfig struct {
	Weights         map[string]float64 `yaml:"weights"`
	HighThreshold   float64            `yaml:"high_threshold"`
	MediumThreshold float64            `yaml:"medium_threshold"`
}

// MilestonesConfig controls milestone derivation and money formatting.
type MilestonesConfig struct {
	AllowEmpty bool   `yaml:"allow_empty" env:"RENOPLAN_ALLOW_EMPTY_MILESTONES"`
	Currency   string `yaml:"currency" env:"RENOPLAN_CURRENCY"`
	Locale     string `yaml:"locale" env:"RENOPLAN_LOCALE"`
}

// FromEnv returns the defaults with RENOPLAN_* environment overrides.
func FromEnv() (*Config, error) {
	return Parse(nil)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	m := sci.DefaultModel()
	return &Config{
		Schedule: ScheduleConfig{Epsilon: cpm.DefaultEpsilon},
		Delay:    DelayConfig{AtRiskWindowDays: delay.DefaultWindowDays},
		Scope: ScopeConfig{
			Weights:         m.Weights,
			HighThreshold:   m.HighThreshold,
			MediumThreshold: m.MediumThreshold,
		},
		Milestones: MilestonesConfig{Currency: "CAD", Locale: "en-CA"},
	}
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes over the defaults, applies RENOPLAN_*
// environment overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in values that were explicitly blanked.
func (c *Config) applyDefaults() {
	if c.Schedule.Epsilon == 0 {
		c.Schedule.Epsilon = cpm.DefaultEpsilon
	}
	if c.Milestones.Currency == "" {
		c.Milestones.Currency = "CAD"
	}
	if c.Milestones.Locale == "" {
		c.Milestones.Locale = "en-CA"
	}
	c.Milestones.Currency = strings.ToUpper(c.Milestones.Currency)
}

// validate checks that all values are usable.
func (c *Config) validate() error {
	var errs []string
	if c.Schedule.Epsilon < 0 || math.IsNaN(c.Schedule.Epsilon) || c.Schedule.Epsilon >= 1 {
		errs = append(errs, fmt.Sprintf("schedule.epsilon must be in (0,1), got %g", c.Schedule.Epsilon))
	}
	if c.Delay.AtRiskWindowDays < 0 {
		errs = append(errs, fmt.Sprintf("delay.at_risk_window_days must be >= 0, got %d", c.Delay.AtRiskWindowDays))
	}
	if err := c.ScopeModel().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := currency.ParseISO(c.Milestones.Currency); err != nil {
		errs = append(errs, fmt.Sprintf("milestones.currency %q is not an ISO 4217 code", c.Milestones.Currency))
	}
	if _, err := language.Parse(c.Milestones.Locale); err != nil {
		errs = append(errs, fmt.Sprintf("milestones.locale %q is not a BCP 47 tag", c.Milestones.Locale))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ScopeModel returns the configured Scope Confidence model.
func (c *Config) ScopeModel() sci.Model {
	return sci.Model{
		Weights:         c.Scope.Weights,
		HighThreshold:   c.Scope.HighThreshold,
		MediumThreshold: c.Scope.MediumThreshold,
	}
}

// CPMOptions returns the configured engine options.
func (c *Config) CPMOptions() cpm.Options {
	return cpm.Options{Epsilon: c.Schedule.Epsilon}
}

// Classifier returns a delay classifier with the configured window.
func (c *Config) Classifier(clock delay.Clock) delay.Classifier {
	return delay.NewClassifier(c.Delay.AtRiskWindowDays, clock)
}
