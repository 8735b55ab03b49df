// Package processor evaluates one feedback session end to end: it reads the
// window snapshots, scores fraud and quality in parallel, calculates the reward
// and appends the session to the windows.
package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"voice-rewards-go/internal/fraud"
	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/logger"
	"voice-rewards-go/internal/metrics"
	"voice-rewards-go/internal/quality"
	"voice-rewards-go/internal/reward"
	"voice-rewards-go/internal/textnorm"
	"voice-rewards-go/internal/types"
	"voice-rewards-go/internal/window"
)

var ErrInvalidSession = errors.New("invalid session")

// Publisher hands a finished evaluation to the ledger.
type Publisher interface {
	Publish(ctx context.Context, ev types.Evaluation) error
}

// Options.Publish* size the background ledger hand-off; zero values use the
// defaults.
type Options struct {
	Pack           *locale.Pack
	Content        window.ContentStore
	History        window.HistoryStore
	Window         window.Config
	Fraud          fraud.Config
	Quality        quality.Weights
	Reward         *reward.Engine
	Publisher      Publisher
	PublishQueue   int
	PublishWorkers int
	PublishTimeout time.Duration
	Log            *logger.Logger
}

type Evaluator struct {
	pack      *locale.Pack
	content   window.ContentStore
	history   window.HistoryStore
	retention time.Duration
	lookback  time.Duration
	fraud     *fraud.Aggregator
	quality   *quality.Scorer
	reward    *reward.Engine
	handoff   *handoff
	log       *logger.Logger
}

func New(opts Options) (*Evaluator, error) {
	switch {
	case opts.Pack == nil:
		return nil, errors.New("processor: locale pack required")
	case opts.Content == nil || opts.History == nil:
		return nil, errors.New("processor: window stores required")
	case opts.Reward == nil:
		return nil, errors.New("processor: reward engine required")
	}
	if err := opts.Quality.Validate(); err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	retention := opts.Window.Retention
	if retention <= 0 {
		retention = window.DefaultRetention
	}
	lookback := opts.Fraud.Temporal.Window
	if opts.Fraud.Temporal.MinInterval > lookback {
		lookback = opts.Fraud.Temporal.MinInterval
	}
	e := &Evaluator{
		pack:      opts.Pack,
		content:   opts.Content,
		history:   opts.History,
		retention: retention,
		lookback:  lookback,
		fraud:     fraud.NewAggregator(opts.Fraud, opts.Pack, log),
		quality:   quality.NewScorer(opts.Pack, opts.Quality),
		reward:    opts.Reward,
		log:       log.WithComponent("processor"),
	}
	if opts.Publisher != nil {
		e.handoff = newHandoff(opts.Publisher, opts.PublishQueue, opts.PublishWorkers, opts.PublishTimeout, e.log)
	}
	return e, nil
}

// Close stops accepting ledger hand-offs and waits for queued ones to finish
// or for ctx to expire.
func (e *Evaluator) Close(ctx context.Context) error {
	if e.handoff == nil {
		return nil
	}
	return e.handoff.close(ctx)
}

// Evaluate only returns an error when the session cannot be evaluated at all.
// Store failures degrade the affected fraud signal and never fail the session.
func (e *Evaluator) Evaluate(ctx context.Context, s types.FeedbackSession, biz *types.BusinessContext) (types.Evaluation, error) {
	start := time.Now()
	res := types.Evaluation{SessionID: s.SessionID, BusinessID: s.BusinessID}
	if strings.TrimSpace(s.SessionID) == "" || strings.TrimSpace(s.BusinessID) == "" || strings.TrimSpace(s.CustomerHash) == "" {
		return res, fmt.Errorf("%w: session, business and customer ids are required", ErrInvalidSession)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	log := e.log.WithSession(s)

	// 1) Snapshots, taken before any scoring
	at := s.FeedbackAt
	recent, windowErr := e.content.RecentContent(ctx, s.BusinessID, at.Add(-e.retention))
	if windowErr != nil {
		metrics.StoreErrorsTotal.WithLabelValues("read_content").Inc()
	}
	recent = withoutSession(recent, s.SessionID)
	history, historyErr := e.history.Submissions(ctx, s.CustomerHash, at.Add(-e.lookback))
	if historyErr != nil {
		metrics.StoreErrorsTotal.WithLabelValues("read_history").Inc()
	}

	// 2) Fraud and quality are independent
	current := e.pack.Normalizer().Normalize(s.Transcript)
	var g errgroup.Group
	g.Go(func() error {
		res.Fraud = e.fraud.Assess(fraud.Input{
			Current:     current,
			Window:      recent,
			WindowErr:   windowErr,
			Device:      s.Device,
			History:     history,
			HistoryErr:  historyErr,
			SubmittedAt: at,
			Business:    biz,
			Items:       s.Purchase.Items,
		})
		return nil
	})
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("quality scorer panic: %v", r)
			}
		}()
		res.Quality = e.quality.Score(quality.Input{Current: current, Business: biz, Items: s.Purchase.Items})
		return nil
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("quality scoring failed, scoring as zero")
		res.Quality = types.QualityScore{Confidence: 0.3}
		res.Error = err.Error()
	}

	// 3) Reward
	res.Reward = e.reward.Calculate(reward.InputFor(s, res.Quality, &res.Fraud))

	// 4) Append after scoring
	e.appendWindows(ctx, s, current)

	took := time.Since(start)
	res.DurationMs = took.Milliseconds()
	metrics.ObserveEvaluation(res, took)

	log.WithField("quality", res.Quality.Total).
		WithField("risk", res.Fraud.OverallRiskScore).
		WithField("recommendation", res.Fraud.Recommendation).
		WithField("eligible", res.Reward.Eligible).
		WithField("reward", res.Reward.RewardAmount).
		WithField("duration_ms", res.DurationMs).
		Info("session evaluated")

	if e.handoff != nil {
		e.handoff.enqueue(ctx, res)
	}
	return res, nil
}

// withoutSession drops the session's own earlier entry, so re-evaluating a
// session is not scored as a duplicate of itself.
func withoutSession(entries []window.ContentEntry, sessionID string) []window.ContentEntry {
	out := entries[:0:0]
	for _, en := range entries {
		if en.SessionID != sessionID {
			out = append(out, en)
		}
	}
	return out
}

func (e *Evaluator) appendWindows(ctx context.Context, s types.FeedbackSession, current textnorm.Result) {
	if !current.Empty() {
		err := e.content.InsertContent(ctx, s.BusinessID, window.ContentEntry{
			SessionID:  s.SessionID,
			Text:       current.Text,
			Keywords:   current.Keywords,
			RecordedAt: s.FeedbackAt,
		})
		if err != nil {
			metrics.StoreErrorsTotal.WithLabelValues("insert_content").Inc()
			e.log.WithError(err).WithField("session_id", s.SessionID).Warn("content window append failed")
		}
	}
	if err := e.history.RecordSubmission(ctx, s.CustomerHash, s.FeedbackAt); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("record_submission").Inc()
		e.log.WithError(err).WithField("session_id", s.SessionID).Warn("submission history append failed")
	}
}

// EvaluateAll evaluates sessions in order, so later sessions see earlier ones
// in their windows. Sessions that cannot be evaluated are kept with Error set.
func (e *Evaluator) EvaluateAll(ctx context.Context, sessions []types.FeedbackSession, contexts map[string]*types.BusinessContext) ([]types.Evaluation, error) {
	out := make([]types.Evaluation, 0, len(sessions))
	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		ev, err := e.Evaluate(ctx, s, contexts[s.BusinessID])
		if err != nil {
			e.log.WithError(err).WithField("session_id", s.SessionID).Warn("session skipped")
			ev.Error = err.Error()
		}
		out = append(out, ev)
	}
	return out, nil
}
