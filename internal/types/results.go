// internal/types/results.go
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// --------------------------------------------
// Quality
// --------------------------------------------
type QualityScore struct {
	Authenticity int     `json:"authenticity"` // 0–100
	Concreteness int     `json:"concreteness"` // 0–100
	Depth        int     `json:"depth"`        // 0–100
	Total        int     `json:"total"`        // 0–100, weighted 40/30/30
	Confidence   float64 `json:"confidence"`   // 0–1
}

// --------------------------------------------
// Fraud
// --------------------------------------------

// SignalKind is the closed set of fraud signal variants.
type SignalKind string

const (
	KindContentDuplicate SignalKind = "content_duplicate"
	KindDeviceAbuse      SignalKind = "device_abuse"
	KindTemporalPattern  SignalKind = "temporal_pattern"
	KindContextMismatch  SignalKind = "context_mismatch"
)

// SignalKinds lists every kind in aggregation order.
var SignalKinds = []SignalKind{KindContentDuplicate, KindDeviceAbuse, KindTemporalPattern, KindContextMismatch}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityFor maps a 0–1 score onto a severity band.
func SeverityFor(score float64) Severity {
	switch {
	case score >= 0.8:
		return SeverityHigh
	case score >= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

type Recommendation string

const (
	RecommendAccept Recommendation = "accept"
	RecommendReview Recommendation = "review"
	RecommendReject Recommendation = "reject"
)

// Evidence is implemented only by the evidence types in this package.
type Evidence interface {
	signalKind() SignalKind
}

type DuplicateEvidence struct {
	ExactMatch         bool    `json:"exact_match"`
	FuzzySimilarity    float64 `json:"fuzzy_similarity"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
	MatchedSessionID   string  `json:"matched_session_id,omitempty"`
	TemplateMatches    int     `json:"template_matches"`
	Compared           int     `json:"compared"`
}

type DeviceEvidence struct {
	Missing           bool     `json:"missing"`
	AutomationMarkers []string `json:"automation_markers,omitempty"`
	CookiesDisabled   bool     `json:"cookies_disabled"`
}

type TemporalEvidence struct {
	SubmissionsInWindow int           `json:"submissions_in_window"`
	Window              time.Duration `json:"window"`
	SinceLast           time.Duration `json:"since_last,omitempty"`
}

type ContextEvidence struct {
	GenericPhrases     []string `json:"generic_phrases,omitempty"`
	SpecificReferences []string `json:"specific_references,omitempty"`
}

// DegradedEvidence replaces a producer's evidence when it failed.
type DegradedEvidence struct {
	Kind  SignalKind `json:"kind"`
	Error string     `json:"error"`
}

func (DuplicateEvidence) signalKind() SignalKind { return KindContentDuplicate }
func (DeviceEvidence) signalKind() SignalKind    { return KindDeviceAbuse }
func (TemporalEvidence) signalKind() SignalKind  { return KindTemporalPattern }
func (ContextEvidence) signalKind() SignalKind   { return KindContextMismatch }
func (e DegradedEvidence) signalKind() SignalKind {
	return e.Kind
}

type FraudSignal struct {
	Kind       SignalKind `json:"kind"`
	Score      float64    `json:"score"`
	Confidence float64    `json:"confidence"`
	Severity   Severity   `json:"severity"`
	Degraded   bool       `json:"degraded,omitempty"`
	Evidence   Evidence   `json:"evidence"`
}

// UnmarshalJSON decodes Evidence into the concrete type for the signal kind.
func (s *FraudSignal) UnmarshalJSON(data []byte) error {
	type alias FraudSignal
	var raw struct {
		alias
		Evidence json.RawMessage `json:"evidence"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = FraudSignal(raw.alias)
	if len(raw.Evidence) == 0 || string(raw.Evidence) == "null" {
		return nil
	}
	if s.Degraded {
		var ev DegradedEvidence
		if err := json.Unmarshal(raw.Evidence, &ev); err != nil {
			return fmt.Errorf("decode degraded evidence: %w", err)
		}
		s.Evidence = ev
		return nil
	}
	var err error
	switch s.Kind {
	case KindContentDuplicate:
		var ev DuplicateEvidence
		err = json.Unmarshal(raw.Evidence, &ev)
		s.Evidence = ev
	case KindDeviceAbuse:
		var ev DeviceEvidence
		err = json.Unmarshal(raw.Evidence, &ev)
		s.Evidence = ev
	case KindTemporalPattern:
		var ev TemporalEvidence
		err = json.Unmarshal(raw.Evidence, &ev)
		s.Evidence = ev
	case KindContextMismatch:
		var ev ContextEvidence
		err = json.Unmarshal(raw.Evidence, &ev)
		s.Evidence = ev
	default:
		return fmt.Errorf("unknown signal kind %q", s.Kind)
	}
	if err != nil {
		return fmt.Errorf("decode %s evidence: %w", s.Kind, err)
	}
	return nil
}

type FraudAssessment struct {
	OverallRiskScore float64        `json:"overall_risk_score"` // 0–1
	Signals          []FraudSignal  `json:"signals"`
	Recommendation   Recommendation `json:"recommendation"`
	Confidence       float64        `json:"confidence"`
	ConservativeMode bool           `json:"conservative_mode"`
}

// Severities returns the severity of every signal that fired.
func (a FraudAssessment) Severities() []Severity {
	var out []Severity
	for _, s := range a.Signals {
		if s.Score > 0 {
			out = append(out, s.Severity)
		}
	}
	return out
}

// --------------------------------------------
// Reward
// --------------------------------------------

// RewardTier is the closed set of quality tiers.
type RewardTier string

const (
	TierExceptional  RewardTier = "exceptional"
	TierVeryGood     RewardTier = "very_good"
	TierAcceptable   RewardTier = "acceptable"
	TierInsufficient RewardTier = "insufficient"
)

type RejectionReason string

const (
	ReasonFeedbackTooLate        RejectionReason = "feedback_too_late"
	ReasonFeedbackBeforePurchase RejectionReason = "feedback_before_purchase"
	ReasonPurchaseBelowMinimum   RejectionReason = "purchase_below_minimum"
	ReasonPurchaseAboveMaximum   RejectionReason = "purchase_above_maximum"
	ReasonInvalidBusinessTier    RejectionReason = "invalid_business_tier"
	ReasonFraudRiskTooHigh       RejectionReason = "fraud_risk_too_high"
	ReasonQualityBelowThreshold  RejectionReason = "quality_below_threshold"
	ReasonInternalError          RejectionReason = "internal_error"
)

type CapType string

const (
	CapJurisdiction CapType = "jurisdiction_single_transaction"
	CapBusinessTier CapType = "business_tier_single_transaction"
)

type AppliedCap struct {
	Type          CapType `json:"type"`
	Limit         int64   `json:"limit"`
	AmountRemoved int64   `json:"amount_removed"`
	Reason        string  `json:"reason"`
}

// ManualOverride marks a result produced by an admin correction.
type ManualOverride struct {
	Actor          string `json:"actor"`
	Reason         string `json:"reason"`
	OriginalAmount int64  `json:"original_amount"`
}

// RewardResult: all monetary fields are non-negative minor units.
type RewardResult struct {
	Eligible         bool              `json:"eligible"`
	RejectionReasons []RejectionReason `json:"rejection_reasons"`
	Tier             RewardTier        `json:"reward_tier"`
	BaseReward       int64             `json:"base_reward"`
	QualityBonus     int64             `json:"quality_bonus"`
	FraudAdjustment  int64             `json:"fraud_adjustment"`
	AppliedCaps      []AppliedCap      `json:"applied_caps"`
	FloorApplied     bool              `json:"floor_applied,omitempty"`
	RewardAmount     int64             `json:"reward_amount"`
	RewardPercentage float64           `json:"reward_percentage"`
	Commission       int64             `json:"platform_commission"`
	BusinessCost     int64             `json:"total_business_cost"`
	Override         *ManualOverride   `json:"manual_override,omitempty"`
}

// --------------------------------------------
// Evaluation envelope
// --------------------------------------------
type Evaluation struct {
	SessionID  string          `json:"session_id"`
	BusinessID string          `json:"business_id"`
	Quality    QualityScore    `json:"quality"`
	Fraud      FraudAssessment `json:"fraud"`
	Reward     RewardResult    `json:"reward"`
	DurationMs int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
}
