package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"voice-rewards-go/internal/types"
)

var (
	once sync.Once

	// EvaluationsTotal counts evaluated sessions by fraud recommendation.
	EvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_rewards",
		Subsystem: "engine",
		Name:      "evaluations_total",
		Help:      "Total number of evaluated feedback sessions, labeled by fraud recommendation.",
	}, []string{"recommendation"})

	// RewardsTotal counts reward results by tier and eligibility.
	RewardsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_rewards",
		Subsystem: "engine",
		Name:      "rewards_total",
		Help:      "Total number of reward results, labeled by reward tier and eligibility.",
	}, []string{"tier", "eligible"})

	RewardMinorUnitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "voice_rewards",
		Subsystem: "engine",
		Name:      "reward_minor_units_total",
		Help:      "Sum of granted reward amounts in minor currency units.",
	})

	// ProducerErrorsTotal counts degraded fraud signals by kind.
	ProducerErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_rewards",
		Subsystem: "fraud",
		Name:      "producer_errors_total",
		Help:      "Total number of fraud signal producers that failed and were degraded, labeled by signal kind.",
	}, []string{"kind"})

	StoreErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_rewards",
		Subsystem: "window",
		Name:      "store_errors_total",
		Help:      "Total number of window store failures, labeled by operation.",
	}, []string{"op"})

	// EvaluationDurationSeconds is the time from snapshot to append for one session.
	EvaluationDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "voice_rewards",
		Subsystem: "engine",
		Name:      "evaluation_duration_seconds",
		Help:      "Time to evaluate one feedback session, including window reads and writes.",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	LedgerPublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_rewards",
		Subsystem: "ledger",
		Name:      "publish_total",
		Help:      "Total number of ledger hand-offs, labeled by result.",
	}, []string{"result"})
)

// Register registers engine metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			EvaluationsTotal,
			RewardsTotal,
			RewardMinorUnitsTotal,
			ProducerErrorsTotal,
			StoreErrorsTotal,
			EvaluationDurationSeconds,
			LedgerPublishTotal,
		)
	})
}

// ObserveEvaluation records the outcome of one evaluated session.
func ObserveEvaluation(ev types.Evaluation, took time.Duration) {
	EvaluationsTotal.WithLabelValues(string(ev.Fraud.Recommendation)).Inc()
	eligible := "false"
	if ev.Reward.Eligible {
		eligible = "true"
	}
	RewardsTotal.WithLabelValues(string(ev.Reward.Tier), eligible).Inc()
	if ev.Reward.RewardAmount > 0 {
		RewardMinorUnitsTotal.Add(float64(ev.Reward.RewardAmount))
	}
	for _, s := range ev.Fraud.Signals {
		if s.Degraded {
			ProducerErrorsTotal.WithLabelValues(string(s.Kind)).Inc()
		}
	}
	EvaluationDurationSeconds.Observe(took.Seconds())
}
