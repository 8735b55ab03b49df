package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/types"
)

func evaluation() types.Evaluation {
	return types.Evaluation{
		SessionID: "s-1",
		Quality:   types.QualityScore{Authenticity: 80, Concreteness: 70, Depth: 60, Total: 71},
		Fraud: types.FraudAssessment{
			OverallRiskScore: 0.12,
			Recommendation:   types.RecommendAccept,
			Signals: []types.FraudSignal{
				{Kind: types.KindContextMismatch, Score: 0.2, Severity: types.SeverityLow},
				{Kind: types.KindDeviceAbuse, Score: 0, Severity: types.SeverityLow},
			},
		},
		Reward: types.RewardResult{
			Eligible:         true,
			Tier:             types.TierAcceptable,
			BaseReward:       2571,
			QualityBonus:     200,
			FraudAdjustment:  216,
			RewardAmount:     2555,
			RewardPercentage: 2.5714,
			AppliedCaps:      []types.AppliedCap{},
			Commission:       460,
			BusinessCost:     3015,
		},
	}
}

func TestGenerateSwedish(t *testing.T) {
	ex := Generate(evaluation(), locale.MustLoad("sv"))

	assert.Equal(t, "sv", ex.Locale)
	assert.Equal(t, "Kvalitetspoäng 71 av 100 (äkthet 80, konkretion 70, djup 60).", ex.Quality)
	assert.Equal(t, "Belöning: 25,55 kr (2,57 % av köpet).", ex.Summary)
	assert.Equal(t, []string{
		"Belöning: 25,55 kr (2,57 % av köpet).",
		"Nivå: godkänd.",
		"Kvalitetsbonus: 2,00 kr.",
		"Avdrag för risk: 2,16 kr.",
		"Plattformsavgift 4,60 kr, total kostnad för företaget 30,15 kr.",
	}, ex.Reward)
	require.Len(t, ex.Fraud, 2)
	assert.Equal(t, "Riskbedömning: godkänd (risk 0,12).", ex.Fraud[0])
	assert.Contains(t, ex.Fraud[1], "generiska formuleringar")
}

func TestGenerateIneligibleEnglish(t *testing.T) {
	ev := evaluation()
	ev.Reward = types.RewardResult{
		Eligible:         false,
		RejectionReasons: []types.RejectionReason{types.ReasonFeedbackTooLate},
		Tier:             types.TierInsufficient,
	}

	ex := Generate(ev, locale.MustLoad("en"))

	assert.Equal(t, []string{"No reward: feedback too late."}, ex.Reward)
	assert.Equal(t, ex.Reward[0], ex.Summary)
}

func TestGenerateCapsFloorAndOverride(t *testing.T) {
	ev := evaluation()
	ev.Reward.AppliedCaps = []types.AppliedCap{
		{Type: types.CapJurisdiction, Limit: 20000, AmountRemoved: 40000},
	}
	ev.Reward.FloorApplied = true
	ev.Reward.Override = &types.ManualOverride{Actor: "ops", Reason: "goodwill", OriginalAmount: 100}

	ex := Generate(ev, locale.MustLoad("en"))

	assert.Contains(t, ex.Reward, "Cap (jurisdiction cap) of 200.00 applied, 400.00 removed.")
	assert.Contains(t, ex.Reward, "Minimum reward applied.")
	assert.Contains(t, ex.Reward, "Manually adjusted by ops: goodwill.")
}
