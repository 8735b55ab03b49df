package types

import (
	"strings"
	"time"
)

// BusinessTier is the subscription/size class of a business (1–3).
type BusinessTier int

const (
	TierStarter  BusinessTier = 1
	TierStandard BusinessTier = 2
	TierPremium  BusinessTier = 3
)

func (t BusinessTier) Valid() bool {
	return t >= TierStarter && t <= TierPremium
}

// DeviceFingerprint is the client-captured signature. Opaque beyond pattern checks.
type DeviceFingerprint struct {
	UserAgent       string `json:"user_agent"`
	ScreenSignature string `json:"screen_signature"`
	CookiesEnabled  bool   `json:"cookies_enabled"`
}

// Empty reports whether nothing useful was captured.
func (d *DeviceFingerprint) Empty() bool {
	return d == nil || (strings.TrimSpace(d.UserAgent) == "" && strings.TrimSpace(d.ScreenSignature) == "")
}

type PurchaseRecord struct {
	Amount      int64     `json:"amount"` // minor units
	PurchasedAt time.Time `json:"purchased_at"`
	Items       []string  `json:"items,omitempty"`
}

// FeedbackSession is one customer's feedback event. Immutable once the voice
// interaction ends; CustomerHash is never raw PII.
type FeedbackSession struct {
	SessionID    string             `json:"session_id"`
	BusinessID   string             `json:"business_id"`
	CustomerHash string             `json:"customer_hash"`
	Transcript   string             `json:"transcript"`
	Purchase     PurchaseRecord     `json:"purchase"`
	FeedbackAt   time.Time          `json:"feedback_at"`
	Duration     time.Duration      `json:"duration"`
	Device       *DeviceFingerprint `json:"device,omitempty"`
	Categories   []string           `json:"categories,omitempty"`
	Tier         BusinessTier       `json:"business_tier"`
}

// BusinessContext is supplied per business by the profile service and never mutated here.
type BusinessContext struct {
	BusinessType string   `json:"business_type"`
	Departments  []string `json:"departments,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	KnownIssues  []string `json:"known_issues,omitempty"`
	StaffNames   []string `json:"staff_names,omitempty"`
}
