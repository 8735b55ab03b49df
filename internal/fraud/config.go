// Package fraud computes the independent fraud signals for a feedback session
// and aggregates them into one conservative risk assessment.
package fraud

import (
	"errors"
	"time"
)

var (
	ErrUnknownSignal  = errors.New("unknown signal kind")
	ErrMissingContext = errors.New("business context missing")
	ErrNoSignals      = errors.New("no signals")
)

type TemporalConfig struct {
	Window         time.Duration `yaml:"window"`
	MaxSubmissions int           `yaml:"max_submissions"`
	MinInterval    time.Duration `yaml:"min_interval"`
}

type Config struct {
	FuzzyThreshold         float64        `yaml:"fuzzy_threshold"`
	SemanticThreshold      float64        `yaml:"semantic_threshold"`
	TemplatePenalty        float64        `yaml:"template_penalty"`
	MaxCompareRunes        int            `yaml:"max_compare_runes"`
	ConservativeMode       bool           `yaml:"conservative_mode"`
	ConservativeMultiplier float64        `yaml:"conservative_multiplier"`
	ReviewThreshold        float64        `yaml:"review_threshold"`
	RejectThreshold        float64        `yaml:"reject_threshold"`
	AutomationMarkers      []string       `yaml:"automation_markers"`
	Temporal               TemporalConfig `yaml:"temporal"`
}

func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:         0.85,
		SemanticThreshold:      0.90,
		TemplatePenalty:        0.2,
		MaxCompareRunes:        2000,
		ConservativeMultiplier: 1.3,
		ReviewThreshold:        0.5,
		RejectThreshold:        0.8,
		AutomationMarkers: []string{
			"headless", "phantomjs", "selenium", "webdriver", "puppeteer", "playwright", "slimerjs",
			"curl/", "wget/", "python-requests", "python-urllib", "go-http-client", "okhttp",
			"httpclient", "scrapy", "bot", "crawler", "spider", "bot/", "crawler/", "spider/",
		},
		Temporal: TemporalConfig{
			Window:         time.Hour,
			MaxSubmissions: 3,
			MinInterval:    2 * time.Minute,
		},
	}
}

// conservative applies the conservative-mode multiplier and clamps.
func (c Config) conservative(score float64) float64 {
	if c.ConservativeMode {
		m := c.ConservativeMultiplier
		if m < 1 {
			m = 1
		}
		score *= m
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
