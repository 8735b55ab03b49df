// Package reward turns a quality score, a purchase and a fraud assessment into
// a capped, commission-bearing reward in minor currency units.
package reward

import (
	"errors"
	"fmt"
	"time"

	"voice-rewards-go/internal/types"
)

var (
	ErrInvalidConfig   = errors.New("invalid reward config")
	ErrInvalidOverride = errors.New("invalid manual override")
)

// Band maps a quality score range onto a reward percentage range.
type Band struct {
	MinScore   int     `yaml:"min_score"`
	MaxScore   int     `yaml:"max_score"`
	MinPercent float64 `yaml:"min_percent"`
	MaxPercent float64 `yaml:"max_percent"`
}

type Bands struct {
	Exceptional Band `yaml:"exceptional"`
	VeryGood    Band `yaml:"very_good"`
	Acceptable  Band `yaml:"acceptable"`
}

type SeverityPenalties struct {
	High   int64 `yaml:"high"`
	Medium int64 `yaml:"medium"`
	Low    int64 `yaml:"low"`
}

// Config amounts are minor units. FraudRate scales the proportional fraud
// penalty: (base+bonus) × risk × FraudRate.
type Config struct {
	FeedbackWindow    time.Duration                  `yaml:"feedback_window"`
	MinPurchase       int64                          `yaml:"min_purchase"`
	MaxPurchase       int64                          `yaml:"max_purchase"`
	FraudReject       float64                        `yaml:"fraud_reject_threshold"`
	QualityFloor      int                            `yaml:"quality_floor"`
	Bands             Bands                          `yaml:"bands"`
	CategoryBonus     int64                          `yaml:"category_bonus"`
	CategoryMinimum   int                            `yaml:"category_minimum"`
	EngagementBonus   int64                          `yaml:"engagement_bonus"`
	EngagementAfter   time.Duration                  `yaml:"engagement_after"`
	FraudRate         float64                        `yaml:"fraud_rate"`
	SeverityPenalties SeverityPenalties              `yaml:"severity_penalties"`
	JurisdictionCap   int64                          `yaml:"jurisdiction_cap"`
	TierCaps          map[types.BusinessTier]int64   `yaml:"tier_caps"`
	MinReward         int64                          `yaml:"min_reward"`
	CommissionRates   map[types.BusinessTier]float64 `yaml:"commission_rates"`
}

// DefaultConfig is denominated in öre.
func DefaultConfig() Config {
	return Config{
		FeedbackWindow:  15 * time.Minute,
		MinPurchase:     5000,
		MaxPurchase:     10_000_000,
		FraudReject:     0.8,
		QualityFloor:    50,
		CategoryBonus:   200,
		CategoryMinimum: 3,
		EngagementBonus: 100,
		EngagementAfter: 60 * time.Second,
		Bands: Bands{
			Exceptional: Band{MinScore: 90, MaxScore: 100, MinPercent: 8, MaxPercent: 12},
			VeryGood:    Band{MinScore: 75, MaxScore: 89, MinPercent: 4, MaxPercent: 7},
			Acceptable:  Band{MinScore: 60, MaxScore: 74, MinPercent: 1, MaxPercent: 3},
		},
		FraudRate:         0.5,
		SeverityPenalties: SeverityPenalties{High: 500, Medium: 200, Low: 50},
		JurisdictionCap:   20000,
		TierCaps: map[types.BusinessTier]int64{
			types.TierStarter:  5000,
			types.TierStandard: 10000,
			types.TierPremium:  15000,
		},
		MinReward: 100,
		CommissionRates: map[types.BusinessTier]float64{
			types.TierStarter:  0.20,
			types.TierStandard: 0.18,
			types.TierPremium:  0.15,
		},
	}
}

func (c Config) Validate() error {
	switch {
	case c.FeedbackWindow <= 0:
		return fmt.Errorf("%w: feedback window must be positive", ErrInvalidConfig)
	case c.MinPurchase < 0 || c.MaxPurchase < c.MinPurchase:
		return fmt.Errorf("%w: purchase bounds %d..%d", ErrInvalidConfig, c.MinPurchase, c.MaxPurchase)
	case c.FraudReject <= 0 || c.FraudReject > 1:
		return fmt.Errorf("%w: fraud reject threshold %.2f", ErrInvalidConfig, c.FraudReject)
	case c.QualityFloor < 0 || c.QualityFloor > 100:
		return fmt.Errorf("%w: quality floor %d", ErrInvalidConfig, c.QualityFloor)
	case c.FraudRate < 0 || c.FraudRate > 1:
		return fmt.Errorf("%w: fraud rate %.2f", ErrInvalidConfig, c.FraudRate)
	case c.MinReward < 0 || c.CategoryBonus < 0 || c.EngagementBonus < 0:
		return fmt.Errorf("%w: negative amount", ErrInvalidConfig)
	case c.JurisdictionCap < c.MinReward:
		return fmt.Errorf("%w: jurisdiction cap below minimum reward", ErrInvalidConfig)
	}
	for _, b := range []Band{c.Bands.Acceptable, c.Bands.VeryGood, c.Bands.Exceptional} {
		if b.MinScore > b.MaxScore || b.MinPercent > b.MaxPercent || b.MinPercent < 0 {
			return fmt.Errorf("%w: band %+v", ErrInvalidConfig, b)
		}
	}
	if c.Bands.Acceptable.MaxScore >= c.Bands.VeryGood.MinScore || c.Bands.VeryGood.MaxScore >= c.Bands.Exceptional.MinScore {
		return fmt.Errorf("%w: overlapping bands", ErrInvalidConfig)
	}
	var prev int64
	for _, t := range []types.BusinessTier{types.TierStarter, types.TierStandard, types.TierPremium} {
		limit, ok := c.TierCaps[t]
		if !ok {
			return fmt.Errorf("%w: no cap for business tier %d", ErrInvalidConfig, t)
		}
		if limit < c.MinReward || limit < prev {
			return fmt.Errorf("%w: business tier %d cap %d", ErrInvalidConfig, t, limit)
		}
		prev = limit
		rate, ok := c.CommissionRates[t]
		if !ok || rate < 0 || rate > 1 {
			return fmt.Errorf("%w: commission rate for business tier %d", ErrInvalidConfig, t)
		}
	}
	return nil
}
