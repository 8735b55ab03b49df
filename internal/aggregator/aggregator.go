package aggregator

import (
	"math"

	"voice-rewards-go/internal/types"
)

// Summary is the batch view over many evaluations.
type Summary struct {
	Sessions         int                           `json:"sessions"`
	Failed           int                           `json:"failed"`
	Eligible         int                           `json:"eligible"`
	ByTier           map[types.RewardTier]int      `json:"by_tier"`
	ByRecommendation map[types.Recommendation]int  `json:"by_recommendation"`
	ByReason         map[types.RejectionReason]int `json:"by_reason"`
	DegradedSignals  map[types.SignalKind]int      `json:"degraded_signals"`
	CapsApplied      int                           `json:"caps_applied"`
	TotalReward      int64                         `json:"total_reward"`
	TotalCommission  int64                         `json:"total_commission"`
	TotalCost        int64                         `json:"total_business_cost"`
	MeanQuality      float64                       `json:"mean_quality"`
	MeanRisk         float64                       `json:"mean_risk"`
	EligibleRate     float64                       `json:"eligible_rate"`
}

// Aggregate skips evaluations that carry an error in the score means; they are
// counted as Failed.
func Aggregate(evs []types.Evaluation) Summary {
	s := Summary{
		ByTier:           map[types.RewardTier]int{},
		ByRecommendation: map[types.Recommendation]int{},
		ByReason:         map[types.RejectionReason]int{},
		DegradedSignals:  map[types.SignalKind]int{},
	}
	var qualitySum, riskSum float64
	scored := 0
	for _, ev := range evs {
		s.Sessions++
		if ev.Error != "" {
			s.Failed++
			continue
		}
		scored++
		qualitySum += float64(ev.Quality.Total)
		riskSum += ev.Fraud.OverallRiskScore
		s.ByRecommendation[ev.Fraud.Recommendation]++
		for _, sig := range ev.Fraud.Signals {
			if sig.Degraded {
				s.DegradedSignals[sig.Kind]++
			}
		}

		r := ev.Reward
		s.ByTier[r.Tier]++
		for _, reason := range r.RejectionReasons {
			s.ByReason[reason]++
		}
		if r.Eligible {
			s.Eligible++
		}
		s.CapsApplied += len(r.AppliedCaps)
		s.TotalReward += r.RewardAmount
		s.TotalCommission += r.Commission
		s.TotalCost += r.BusinessCost
	}
	if scored > 0 {
		s.MeanQuality = round2(qualitySum / float64(scored))
		s.MeanRisk = round2(riskSum / float64(scored))
		s.EligibleRate = round2(float64(s.Eligible) / float64(scored))
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
