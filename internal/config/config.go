package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papapumpkin/lineage/internal/growth"
)

// ErrInvalidConfig is returned by Load when a value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// GrowthConfig holds the cohort model and search defaults.
type GrowthConfig struct {
	InitialReferrers int     `mapstructure:"initial_referrers"`
	Capacity         int     `mapstructure:"capacity"`
	ClosedCohort     bool    `mapstructure:"closed_cohort"`
	MaxDays          int     `mapstructure:"max_days"`
	Epsilon          float64 `mapstructure:"epsilon"`
	MaxBonus         int64   `mapstructure:"max_bonus"`
	Curve            string  `mapstructure:"curve"`
	Midpoint         float64 `mapstructure:"midpoint"`
	Steepness        float64 `mapstructure:"steepness"`
	Ceiling          float64 `mapstructure:"ceiling"`
}

// Model returns the configured cohort model.
func (g GrowthConfig) Model() growth.Model {
	return growth.Model{
		InitialReferrers: g.InitialReferrers,
		Capacity:         g.Capacity,
		ClosedCohort:     g.ClosedCohort,
	}
}

// BonusOptions returns the configured bonus search bounds.
func (g GrowthConfig) BonusOptions() growth.BonusOptions {
	return growth.BonusOptions{Epsilon: g.Epsilon, MaxBonus: g.MaxBonus}
}

// AdoptionCurve returns the configured adoption curve.
func (g GrowthConfig) AdoptionCurve() growth.Curve {
	return growth.Curve{Kind: g.Curve, Midpoint: g.Midpoint, Steepness: g.Steepness, Ceiling: g.Ceiling}
}

// InfluenceConfig tunes the influence ranking.
type InfluenceConfig struct {
	Alpha   float64 `mapstructure:"alpha"`
	Damping float64 `mapstructure:"damping"`
}

// Config holds all runtime configuration for a lineage invocation.
// Values are populated from .lineage.toml, LINEAGE_* env vars, and CLI flags.
type Config struct {
	JournalPath   string          `mapstructure:"journal"`
	TelemetryPath string          `mapstructure:"telemetry"`
	MetricsFile   string          `mapstructure:"metrics_file"`
	LogLevel      string          `mapstructure:"log_level"`
	LogFormat     string          `mapstructure:"log_format"`
	Verbose       bool            `mapstructure:"verbose"`
	JSON          bool            `mapstructure:"json"`
	Growth        GrowthConfig    `mapstructure:"growth"`
	Influence     InfluenceConfig `mapstructure:"influence"`
}

// EnvKeyReplacer maps nested keys such as growth.capacity onto
// LINEAGE_GROWTH_CAPACITY.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("journal", ".lineage/journal.db")
	viper.SetDefault("telemetry", "")
	viper.SetDefault("metrics_file", "")
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("verbose", false)
	viper.SetDefault("json", false)
	viper.SetDefault("growth.initial_referrers", growth.DefaultInitialReferrers)
	viper.SetDefault("growth.capacity", growth.DefaultCapacity)
	viper.SetDefault("growth.closed_cohort", false)
	viper.SetDefault("growth.max_days", growth.DefaultMaxDays)
	viper.SetDefault("growth.epsilon", growth.DefaultBonusEpsilon)
	viper.SetDefault("growth.max_bonus", growth.DefaultMaxBonus)
	viper.SetDefault("growth.curve", "logistic")
	viper.SetDefault("growth.midpoint", 500.0)
	viper.SetDefault("growth.steepness", 0.01)
	viper.SetDefault("growth.ceiling", 0.2)
	viper.SetDefault("influence.alpha", 0.5)
	viper.SetDefault("influence.damping", 0.85)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise surface as confusing errors
// deep inside a command.
func (c Config) Validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	if err := c.Growth.Model().Validate(); err != nil {
		return fmt.Errorf("%w: growth: %w", ErrInvalidConfig, err)
	}
	if c.Growth.MaxDays < 0 {
		return fmt.Errorf("%w: growth.max_days must be non-negative, got %d", ErrInvalidConfig, c.Growth.MaxDays)
	}
	if c.Growth.Epsilon < 0 || c.Growth.MaxBonus < 0 {
		return fmt.Errorf("%w: growth.epsilon and growth.max_bonus must be non-negative", ErrInvalidConfig)
	}
	if _, err := c.Growth.AdoptionCurve().Func(); err != nil {
		return fmt.Errorf("%w: growth: %w", ErrInvalidConfig, err)
	}
	if c.Influence.Alpha < 0 || c.Influence.Alpha > 1 {
		return fmt.Errorf("%w: influence.alpha must be in [0, 1], got %v", ErrInvalidConfig, c.Influence.Alpha)
	}
	if c.Influence.Damping <= 0 || c.Influence.Damping >= 1 {
		return fmt.Errorf("%w: influence.damping must be in (0, 1), got %v", ErrInvalidConfig, c.Influence.Damping)
	}
	return nil
}
