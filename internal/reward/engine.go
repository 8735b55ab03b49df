package reward

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"voice-rewards-go/internal/types"
)

var hundred = decimal.NewFromInt(100)

// Input is everything the calculation depends on. Identical inputs always give
// identical results.
type Input struct {
	QualityScore    int
	PurchaseAmount  int64
	PurchasedAt     time.Time
	FeedbackAt      time.Time
	BusinessTier    types.BusinessTier
	FraudRiskScore  *float64
	FraudSeverities []types.Severity
	Categories      []string
	Duration        time.Duration
}

// InputFor builds the calculation input for a session and its assessments.
func InputFor(s types.FeedbackSession, q types.QualityScore, fa *types.FraudAssessment) Input {
	in := Input{
		QualityScore:   q.Total,
		PurchaseAmount: s.Purchase.Amount,
		PurchasedAt:    s.Purchase.PurchasedAt,
		FeedbackAt:     s.FeedbackAt,
		BusinessTier:   s.Tier,
		Categories:     s.Categories,
		Duration:       s.Duration,
	}
	if fa != nil {
		risk := fa.OverallRiskScore
		in.FraudRiskScore = &risk
		in.FraudSeverities = fa.Severities()
	}
	return in
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Calculate never fails: ineligibility is reported in the result, and any
// internal error yields an ineligible result with ReasonInternalError.
func (e *Engine) Calculate(in Input) (res types.RewardResult) {
	defer func() {
		if r := recover(); r != nil {
			res = ineligible(types.ReasonInternalError)
		}
	}()
	if reason, ok := e.eligibility(in); !ok {
		return ineligible(reason)
	}

	score := clampQuality(in.QualityScore)
	tier := e.tierFor(score)
	pct, err := e.percentage(tier, score)
	if err != nil {
		return ineligible(types.ReasonInternalError)
	}

	base := decimal.NewFromInt(in.PurchaseAmount).Mul(pct).Div(hundred).Floor().IntPart()
	var bonus int64
	if base > 0 {
		if distinctCategories(in.Categories) >= e.cfg.CategoryMinimum {
			bonus += e.cfg.CategoryBonus
		}
		if in.Duration >= e.cfg.EngagementAfter {
			bonus += e.cfg.EngagementBonus
		}
	}

	gross := base + bonus
	adjustment := e.fraudAdjustment(gross, in.FraudRiskScore, in.FraudSeverities)
	amount := gross - adjustment

	var caps []types.AppliedCap
	if amount > e.cfg.JurisdictionCap {
		caps = append(caps, types.AppliedCap{
			Type:          types.CapJurisdiction,
			Limit:         e.cfg.JurisdictionCap,
			AmountRemoved: amount - e.cfg.JurisdictionCap,
			Reason:        "reward exceeds the jurisdiction single-transaction ceiling",
		})
		amount = e.cfg.JurisdictionCap
	}
	limit, ok := e.cfg.TierCaps[in.BusinessTier]
	if !ok {
		return ineligible(types.ReasonInternalError)
	}
	if amount > limit {
		caps = append(caps, types.AppliedCap{
			Type:          types.CapBusinessTier,
			Limit:         limit,
			AmountRemoved: amount - limit,
			Reason:        fmt.Sprintf("reward exceeds the business tier %d single-transaction ceiling", in.BusinessTier),
		})
		amount = limit
	}

	floored := false
	if amount > 0 && amount < e.cfg.MinReward {
		amount = e.cfg.MinReward
		floored = true
	}

	commission, err := e.commission(amount, in.BusinessTier)
	if err != nil {
		return ineligible(types.ReasonInternalError)
	}

	return types.RewardResult{
		Eligible:         true,
		RejectionReasons: []types.RejectionReason{},
		Tier:             tier,
		BaseReward:       base,
		QualityBonus:     bonus,
		FraudAdjustment:  adjustment,
		AppliedCaps:      nonNilCaps(caps),
		FloorApplied:     floored,
		RewardAmount:     amount,
		RewardPercentage: pct.Round(4).InexactFloat64(),
		Commission:       commission,
		BusinessCost:     amount + commission,
	}
}

// eligibility is fail-fast: the first failing check is the only reason reported.
func (e *Engine) eligibility(in Input) (types.RejectionReason, bool) {
	switch {
	case in.FeedbackAt.Before(in.PurchasedAt):
		return types.ReasonFeedbackBeforePurchase, false
	case in.FeedbackAt.Sub(in.PurchasedAt) > e.cfg.FeedbackWindow:
		return types.ReasonFeedbackTooLate, false
	case in.PurchaseAmount < e.cfg.MinPurchase:
		return types.ReasonPurchaseBelowMinimum, false
	case in.PurchaseAmount > e.cfg.MaxPurchase:
		return types.ReasonPurchaseAboveMaximum, false
	case !in.BusinessTier.Valid():
		return types.ReasonInvalidBusinessTier, false
	case in.FraudRiskScore != nil && *in.FraudRiskScore >= e.cfg.FraudReject:
		return types.ReasonFraudRiskTooHigh, false
	case in.QualityScore < e.cfg.QualityFloor:
		return types.ReasonQualityBelowThreshold, false
	}
	return "", true
}

func (e *Engine) tierFor(score int) types.RewardTier {
	switch {
	case score >= e.cfg.Bands.Exceptional.MinScore:
		return types.TierExceptional
	case score >= e.cfg.Bands.VeryGood.MinScore:
		return types.TierVeryGood
	case score >= e.cfg.Bands.Acceptable.MinScore:
		return types.TierAcceptable
	default:
		return types.TierInsufficient
	}
}

// percentage interpolates linearly by the score's position inside the tier's band.
func (e *Engine) percentage(tier types.RewardTier, score int) (decimal.Decimal, error) {
	var b Band
	switch tier {
	case types.TierExceptional:
		b = e.cfg.Bands.Exceptional
	case types.TierVeryGood:
		b = e.cfg.Bands.VeryGood
	case types.TierAcceptable:
		b = e.cfg.Bands.Acceptable
	case types.TierInsufficient:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("unknown reward tier %q", tier)
	}
	lo := decimal.NewFromFloat(b.MinPercent)
	hi := decimal.NewFromFloat(b.MaxPercent)
	if b.MaxScore <= b.MinScore {
		return lo, nil
	}
	if score > b.MaxScore {
		score = b.MaxScore
	}
	pos := decimal.NewFromInt(int64(score - b.MinScore)).Div(decimal.NewFromInt(int64(b.MaxScore - b.MinScore)))
	return lo.Add(hi.Sub(lo).Mul(pos)), nil
}

// fraudAdjustment is the proportional penalty, rounded up, plus a flat amount per
// fired signal severity. It never exceeds gross.
func (e *Engine) fraudAdjustment(gross int64, risk *float64, severities []types.Severity) int64 {
	if gross <= 0 {
		return 0
	}
	var adj int64
	if risk != nil && *risk > 0 {
		adj = decimal.NewFromInt(gross).
			Mul(decimal.NewFromFloat(*risk)).
			Mul(decimal.NewFromFloat(e.cfg.FraudRate)).
			Ceil().IntPart()
	}
	for _, s := range severities {
		switch s {
		case types.SeverityHigh:
			adj += e.cfg.SeverityPenalties.High
		case types.SeverityMedium:
			adj += e.cfg.SeverityPenalties.Medium
		case types.SeverityLow:
			adj += e.cfg.SeverityPenalties.Low
		}
	}
	if adj > gross {
		adj = gross
	}
	return adj
}

// commission is rounded half-up.
func (e *Engine) commission(amount int64, tier types.BusinessTier) (int64, error) {
	rate, ok := e.cfg.CommissionRates[tier]
	if !ok {
		return 0, fmt.Errorf("no commission rate for business tier %d", tier)
	}
	return decimal.NewFromInt(amount).Mul(decimal.NewFromFloat(rate)).Round(0).IntPart(), nil
}

func ineligible(reason types.RejectionReason) types.RewardResult {
	return types.RewardResult{
		Eligible:         false,
		RejectionReasons: []types.RejectionReason{reason},
		Tier:             types.TierInsufficient,
		AppliedCaps:      []types.AppliedCap{},
	}
}

func distinctCategories(categories []string) int {
	seen := map[string]struct{}{}
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			seen[c] = struct{}{}
		}
	}
	return len(seen)
}

func clampQuality(q int) int {
	if q < 0 {
		return 0
	}
	if q > 100 {
		return 100
	}
	return q
}

func nonNilCaps(caps []types.AppliedCap) []types.AppliedCap {
	if caps == nil {
		return []types.AppliedCap{}
	}
	return caps
}
