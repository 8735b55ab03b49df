package fraud

import (
	"time"

	"voice-rewards-go/internal/types"
)

type TemporalAnalyzer struct {
	cfg TemporalConfig
}

func NewTemporalAnalyzer(cfg Config) *TemporalAnalyzer {
	return &TemporalAnalyzer{cfg: cfg.Temporal}
}

// Analyze looks at submissions strictly before at. It is a corroborating
// signal and never scores above 0.7 on its own.
func (a *TemporalAnalyzer) Analyze(history []time.Time, at time.Time) types.FraudSignal {
	ev := types.TemporalEvidence{Window: a.cfg.Window}
	var last time.Time
	for _, t := range history {
		if !t.Before(at) {
			continue
		}
		if at.Sub(t) <= a.cfg.Window {
			ev.SubmissionsInWindow++
		}
		if t.After(last) {
			last = t
		}
	}
	if !last.IsZero() {
		ev.SinceLast = at.Sub(last)
	}

	tooMany := a.cfg.MaxSubmissions > 0 && ev.SubmissionsInWindow >= a.cfg.MaxSubmissions
	tooFast := !last.IsZero() && ev.SinceLast < a.cfg.MinInterval

	var score float64
	switch {
	case tooMany && tooFast:
		score = 0.7
	case tooMany:
		score = 0.6
	case tooFast:
		score = 0.5
	}
	return types.FraudSignal{
		Kind:       types.KindTemporalPattern,
		Score:      score,
		Confidence: 0.6,
		Severity:   types.SeverityFor(score),
		Evidence:   ev,
	}
}
