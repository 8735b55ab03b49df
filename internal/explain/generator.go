// Package explain renders an evaluation as short localized lines for the
// customer and the business. It makes no decisions of its own.
package explain

import (
	"fmt"
	"strings"

	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/types"
)

type Explanation struct {
	Locale  string   `json:"locale"`
	Summary string   `json:"summary"`
	Quality string   `json:"quality"`
	Fraud   []string `json:"fraud"`
	Reward  []string `json:"reward"`
}

func Generate(ev types.Evaluation, pack *locale.Pack) Explanation {
	q := ev.Quality
	out := Explanation{
		Locale:  pack.Locale,
		Quality: fmt.Sprintf(pack.Message("quality_summary"), q.Total, q.Authenticity, q.Concreteness, q.Depth),
		Fraud:   fraudLines(ev.Fraud, pack),
		Reward:  rewardLines(ev.Reward, pack),
	}
	if len(out.Reward) > 0 {
		out.Summary = out.Reward[0]
	}
	return out
}

func fraudLines(fa types.FraudAssessment, pack *locale.Pack) []string {
	lines := []string{
		fmt.Sprintf(pack.Message("fraud_"+string(fa.Recommendation)), pack.FormatDecimal(fa.OverallRiskScore, 2)),
	}
	for _, s := range fa.Signals {
		if s.Score <= 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf(pack.Message("signal_line"),
			pack.Message("signal_"+string(s.Kind)), pack.FormatDecimal(s.Score, 2)))
	}
	return lines
}

func rewardLines(r types.RewardResult, pack *locale.Pack) []string {
	if !r.Eligible {
		reasons := make([]string, 0, len(r.RejectionReasons))
		for _, code := range r.RejectionReasons {
			reasons = append(reasons, pack.Message("reason_"+string(code)))
		}
		return []string{fmt.Sprintf(pack.Message("ineligible"), strings.Join(reasons, ", "))}
	}

	lines := []string{
		fmt.Sprintf(pack.Message("reward_amount"), pack.FormatMinor(r.RewardAmount), pack.FormatDecimal(r.RewardPercentage, 2)),
		fmt.Sprintf(pack.Message("reward_tier"), pack.Message("tier_"+string(r.Tier))),
	}
	if r.QualityBonus > 0 {
		lines = append(lines, fmt.Sprintf(pack.Message("reward_bonus"), pack.FormatMinor(r.QualityBonus)))
	}
	if r.FraudAdjustment > 0 {
		lines = append(lines, fmt.Sprintf(pack.Message("reward_fraud"), pack.FormatMinor(r.FraudAdjustment)))
	}
	for _, c := range r.AppliedCaps {
		lines = append(lines, fmt.Sprintf(pack.Message("reward_cap"),
			pack.Message("cap_"+string(c.Type)), pack.FormatMinor(c.Limit), pack.FormatMinor(c.AmountRemoved)))
	}
	if r.FloorApplied {
		lines = append(lines, pack.Message("reward_floor"))
	}
	if r.Override != nil {
		lines = append(lines, fmt.Sprintf(pack.Message("reward_override"), r.Override.Actor, r.Override.Reason))
	}
	lines = append(lines, fmt.Sprintf(pack.Message("reward_commission"), pack.FormatMinor(r.Commission), pack.FormatMinor(r.BusinessCost)))
	return lines
}
