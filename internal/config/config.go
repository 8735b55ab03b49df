// Package config assembles the service configuration: built-in defaults, then
// an optional yaml file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"voice-rewards-go/internal/fraud"
	"voice-rewards-go/internal/quality"
	"voice-rewards-go/internal/reward"
	"voice-rewards-go/internal/window"
)

const DefaultPath = "config.yaml"

var ErrInvalid = errors.New("invalid config")

// Ledger.MaxElapsed bounds the retry loop of a single publish.
type Ledger struct {
	URL        string        `yaml:"url"`
	Mock       bool          `yaml:"mock"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxElapsed time.Duration `yaml:"max_elapsed"`
}

type Config struct {
	Port        string          `yaml:"port"`
	Locale      string          `yaml:"locale"`
	RedisURL    string          `yaml:"redis_url"`
	DatasetPath string          `yaml:"dataset_path"`
	ReportPath  string          `yaml:"report_path"`
	Ledger      Ledger          `yaml:"ledger"`
	Window      window.Config   `yaml:"window"`
	Fraud       fraud.Config    `yaml:"fraud"`
	Quality     quality.Weights `yaml:"quality_weights"`
	Reward      reward.Config   `yaml:"reward"`
}

func Default() Config {
	return Config{
		Port:        "8080",
		Locale:      "sv",
		DatasetPath: "sessions.xlsx",
		ReportPath:  "report.xlsx",
		Ledger: Ledger{
			Timeout:    10 * time.Second,
			MaxElapsed: 30 * time.Second,
		},
		Window: window.Config{
			MaxEntries: window.DefaultMaxEntries,
			Retention:  window.DefaultRetention,
		},
		Fraud:   fraud.DefaultConfig(),
		Quality: quality.DefaultWeights(),
		Reward:  reward.DefaultConfig(),
	}
}

// Load reads path over the defaults and applies env overrides. A missing file
// is not an error; an unreadable or malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.Port = envOr("PORT", c.Port)
	c.Locale = envOr("LOCALE", c.Locale)
	c.RedisURL = envOr("REDIS_URL", c.RedisURL)
	c.Ledger.URL = envOr("LEDGER_URL", c.Ledger.URL)
	c.DatasetPath = envOr("DATASET_PATH", c.DatasetPath)
	c.ReportPath = envOr("REPORT_PATH", c.ReportPath)

	var err error
	if c.Ledger.Mock, err = envBool("USE_MOCK_LEDGER", c.Ledger.Mock); err != nil {
		return err
	}
	if c.Fraud.ConservativeMode, err = envBool("CONSERVATIVE_MODE", c.Fraud.ConservativeMode); err != nil {
		return err
	}
	if c.Window.MaxEntries, err = envInt("WINDOW_MAX_ENTRIES", c.Window.MaxEntries); err != nil {
		return err
	}
	hours, err := envInt("WINDOW_RETENTION_HOURS", int(c.Window.Retention/time.Hour))
	if err != nil {
		return err
	}
	c.Window.Retention = time.Duration(hours) * time.Hour
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("%w: port is empty", ErrInvalid)
	}
	if c.Window.MaxEntries <= 0 {
		return fmt.Errorf("%w: window.max_entries must be positive", ErrInvalid)
	}
	if c.Window.Retention <= 0 {
		return fmt.Errorf("%w: window.retention must be positive", ErrInvalid)
	}
	if c.Ledger.Timeout <= 0 || c.Ledger.MaxElapsed <= 0 {
		return fmt.Errorf("%w: ledger timeouts must be positive", ErrInvalid)
	}
	f := c.Fraud
	if f.ReviewThreshold <= 0 || f.ReviewThreshold >= f.RejectThreshold || f.RejectThreshold > 1 {
		return fmt.Errorf("%w: fraud thresholds %.2f/%.2f", ErrInvalid, f.ReviewThreshold, f.RejectThreshold)
	}
	if f.FuzzyThreshold <= 0 || f.FuzzyThreshold > 1 || f.SemanticThreshold <= 0 || f.SemanticThreshold > 1 {
		return fmt.Errorf("%w: similarity thresholds must be in (0,1]", ErrInvalid)
	}
	if f.Temporal.Window <= 0 || f.Temporal.MaxSubmissions <= 0 {
		return fmt.Errorf("%w: fraud.temporal window and max_submissions must be positive", ErrInvalid)
	}
	if err := c.Quality.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Reward.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalid, k, v)
	}
	return b, nil
}

func envInt(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalid, k, v)
	}
	return n, nil
}
