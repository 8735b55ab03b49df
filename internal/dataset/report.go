package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"voice-rewards-go/internal/aggregator"
	"voice-rewards-go/internal/explain"
	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/types"
)

const (
	ResultsSheet = "results"
	SummarySheet = "summary"
)

var resultHeader = []interface{}{
	"session_id", "business_id", "quality_total", "authenticity", "concreteness", "depth",
	"fraud_risk", "recommendation", "eligible", "rejection_reasons", "reward_tier",
	"base_reward", "quality_bonus", "fraud_adjustment", "caps", "reward_amount",
	"commission", "business_cost", "explanation", "error",
}

// WriteReport writes one row per evaluation to the results sheet and the batch
// summary to the summary sheet. Explanations use pack.
func WriteReport(path string, evs []types.Evaluation, sum aggregator.Summary, pack *locale.Pack) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(ResultsSheet, "A1", &resultHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, ev := range evs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := resultRow(ev, pack)
		if err := f.SetSheetRow(ResultsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	for i, kv := range summaryRows(sum) {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := kv
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func resultRow(ev types.Evaluation, pack *locale.Pack) []interface{} {
	r := ev.Reward
	reasons := make([]string, 0, len(r.RejectionReasons))
	for _, reason := range r.RejectionReasons {
		reasons = append(reasons, string(reason))
	}
	caps := make([]string, 0, len(r.AppliedCaps))
	for _, c := range r.AppliedCaps {
		caps = append(caps, fmt.Sprintf("%s:%d", c.Type, c.AmountRemoved))
	}
	summary := ""
	if ev.Error == "" {
		summary = explain.Generate(ev, pack).Summary
	}
	return []interface{}{
		ev.SessionID, ev.BusinessID, ev.Quality.Total, ev.Quality.Authenticity, ev.Quality.Concreteness, ev.Quality.Depth,
		ev.Fraud.OverallRiskScore, string(ev.Fraud.Recommendation), r.Eligible, strings.Join(reasons, ";"), string(r.Tier),
		r.BaseReward, r.QualityBonus, r.FraudAdjustment, strings.Join(caps, ";"), r.RewardAmount,
		r.Commission, r.BusinessCost, summary, ev.Error,
	}
}

func summaryRows(s aggregator.Summary) [][]interface{} {
	rows := [][]interface{}{
		{"sessions", s.Sessions},
		{"failed", s.Failed},
		{"eligible", s.Eligible},
		{"eligible_rate", s.EligibleRate},
		{"mean_quality", s.MeanQuality},
		{"mean_risk", s.MeanRisk},
		{"caps_applied", s.CapsApplied},
		{"total_reward", s.TotalReward},
		{"total_commission", s.TotalCommission},
		{"total_business_cost", s.TotalCost},
	}
	rows = appendCounts(rows, "tier", s.ByTier)
	rows = appendCounts(rows, "recommendation", s.ByRecommendation)
	rows = appendCounts(rows, "reason", s.ByReason)
	rows = appendCounts(rows, "degraded", s.DegradedSignals)
	return rows
}

func appendCounts[K ~string](rows [][]interface{}, prefix string, counts map[K]int) [][]interface{} {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []interface{}{prefix + ":" + k, counts[K(k)]})
	}
	return rows
}
