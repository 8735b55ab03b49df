package fraud

import (
	"fmt"
	"time"

	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/logger"
	"voice-rewards-go/internal/textnorm"
	"voice-rewards-go/internal/types"
	"voice-rewards-go/internal/window"
)

// Input is fully materialized before assessment; nothing here does I/O.
// WindowErr/HistoryErr carry store read failures so the matching producer
// degrades instead of silently scoring against an empty snapshot.
type Input struct {
	Current     textnorm.Result
	Window      []window.ContentEntry
	WindowErr   error
	Device      *types.DeviceFingerprint
	History     []time.Time
	HistoryErr  error
	SubmittedAt time.Time
	Business    *types.BusinessContext
	Items       []string
}

type Aggregator struct {
	cfg       Config
	patterns  *PatternMatcher
	duplicate *DuplicateDetector
	device    *DeviceAnalyzer
	temporal  *TemporalAnalyzer
	contextCk *ContextChecker
	log       *logger.Logger
}

func NewAggregator(cfg Config, pack *locale.Pack, log *logger.Logger) *Aggregator {
	if log == nil {
		log = logger.Discard()
	}
	return &Aggregator{
		cfg:       cfg,
		patterns:  NewPatternMatcher(pack),
		duplicate: NewDuplicateDetector(cfg),
		device:    NewDeviceAnalyzer(cfg),
		temporal:  NewTemporalAnalyzer(cfg),
		contextCk: NewContextChecker(pack),
		log:       log.WithComponent("fraud"),
	}
}

// Assess runs every producer and aggregates. It does not return errors: a
// failing producer becomes a degraded signal and pushes the result to review.
func (a *Aggregator) Assess(in Input) types.FraudAssessment {
	signals := []types.FraudSignal{
		a.run(types.KindContentDuplicate, func() (types.FraudSignal, error) {
			if in.WindowErr != nil {
				return types.FraudSignal{}, fmt.Errorf("content window: %w", in.WindowErr)
			}
			return a.duplicate.Detect(in.Current, in.Window, a.patterns.Count(in.Current.Text)), nil
		}),
		a.run(types.KindDeviceAbuse, func() (types.FraudSignal, error) {
			return a.device.Analyze(in.Device), nil
		}),
		a.run(types.KindTemporalPattern, func() (types.FraudSignal, error) {
			if in.HistoryErr != nil {
				return types.FraudSignal{}, fmt.Errorf("submission history: %w", in.HistoryErr)
			}
			return a.temporal.Analyze(in.History, in.SubmittedAt), nil
		}),
		a.run(types.KindContextMismatch, func() (types.FraudSignal, error) {
			return a.contextCk.Check(in.Current, in.Business, in.Items)
		}),
	}
	return a.Combine(signals)
}

// Combine aggregates already computed signals.
func (a *Aggregator) Combine(signals []types.FraudSignal) types.FraudAssessment {
	score, confidence, err := Aggregate(signals, a.cfg)
	if err != nil {
		a.log.WithError(err).Warn("fraud aggregation inconsistent, defaulting to review")
		return defaultReview(signals, a.cfg.ConservativeMode)
	}
	return types.FraudAssessment{
		OverallRiskScore: score,
		Signals:          signals,
		Recommendation:   Recommend(score, signals, a.cfg),
		Confidence:       confidence,
		ConservativeMode: a.cfg.ConservativeMode,
	}
}

func (a *Aggregator) run(kind types.SignalKind, produce func() (types.FraudSignal, error)) (sig types.FraudSignal) {
	defer func() {
		if r := recover(); r != nil {
			sig = a.degrade(kind, fmt.Errorf("panic: %v", r))
		}
	}()
	s, err := produce()
	if err != nil {
		return a.degrade(kind, err)
	}
	return s
}

func (a *Aggregator) degrade(kind types.SignalKind, err error) types.FraudSignal {
	a.log.WithError(err).WithField("signal", string(kind)).Warn("fraud signal producer failed")
	return degradedSignal(kind, err)
}

func degradedSignal(kind types.SignalKind, err error) types.FraudSignal {
	return types.FraudSignal{
		Kind:       kind,
		Score:      1,
		Confidence: 0.5,
		Severity:   types.SeverityMedium,
		Degraded:   true,
		Evidence:   types.DegradedEvidence{Kind: kind, Error: err.Error()},
	}
}

func defaultReview(signals []types.FraudSignal, conservative bool) types.FraudAssessment {
	if len(signals) == 0 {
		signals = []types.FraudSignal{degradedSignal(types.KindContentDuplicate, ErrNoSignals)}
	}
	return types.FraudAssessment{
		OverallRiskScore: 0.5,
		Signals:          signals,
		Recommendation:   types.RecommendReview,
		Confidence:       0.5,
		ConservativeMode: conservative,
	}
}

// Weight is the aggregation weight of a signal kind.
func Weight(kind types.SignalKind) (float64, error) {
	switch kind {
	case types.KindContentDuplicate:
		return 0.8, nil
	case types.KindDeviceAbuse:
		return 0.7, nil
	case types.KindTemporalPattern:
		return 0.6, nil
	case types.KindContextMismatch:
		return 0.4, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, kind)
}

// Aggregate is the weighted, confidence-scaled mean over the signals that
// fired (score > 0), followed by the conservative-mode multiplier. When nothing
// fired the risk is 0 and confidence is the mean confidence of all signals.
func Aggregate(signals []types.FraudSignal, cfg Config) (score, confidence float64, err error) {
	if len(signals) == 0 {
		return 0, 0, ErrNoSignals
	}
	var weighted, weights, confWeighted, confAll float64
	degraded := false
	for _, s := range signals {
		w, err := Weight(s.Kind)
		if err != nil {
			return 0, 0, err
		}
		confAll += s.Confidence
		if s.Degraded {
			degraded = true
		}
		if s.Score <= 0 {
			continue
		}
		weighted += w * clamp01(s.Score) * clamp01(s.Confidence)
		confWeighted += w * clamp01(s.Confidence)
		weights += w
	}
	if weights > 0 {
		score = weighted / weights
		confidence = confWeighted / weights
	} else {
		confidence = confAll / float64(len(signals))
	}
	if degraded && confidence > 0.5 {
		confidence = 0.5
	}
	return cfg.conservative(score), clamp01(confidence), nil
}

// Recommend maps a risk score to accept/review/reject. A high-severity or
// degraded signal never lets the result fall below review.
func Recommend(score float64, signals []types.FraudSignal, cfg Config) types.Recommendation {
	switch {
	case score >= cfg.RejectThreshold:
		return types.RecommendReject
	case score >= cfg.ReviewThreshold:
		return types.RecommendReview
	}
	for _, s := range signals {
		if s.Degraded || (s.Score > 0 && s.Severity == types.SeverityHigh) {
			return types.RecommendReview
		}
	}
	return types.RecommendAccept
}
