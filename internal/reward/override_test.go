package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-rewards-go/internal/types"
)

func TestOverrideProducesNewRecord(t *testing.T) {
	e := newEngine(t)
	original := e.Calculate(input(95, 10000, types.TierStandard))
	require.Equal(t, int64(1000), original.RewardAmount)

	out, err := e.Override(original, types.TierStandard, 500, "support@example.se", "goodwill after complaint")
	require.NoError(t, err)

	assert.Equal(t, int64(500), out.RewardAmount)
	assert.Equal(t, int64(90), out.Commission)
	assert.Equal(t, int64(590), out.BusinessCost)
	require.NotNil(t, out.Override)
	assert.Equal(t, int64(1000), out.Override.OriginalAmount)
	assert.Equal(t, "support@example.se", out.Override.Actor)

	assert.Nil(t, original.Override)
	assert.Equal(t, int64(1000), original.RewardAmount)
	assert.Equal(t, int64(180), original.Commission)
}

func TestOverrideMakesIneligibleResultPayable(t *testing.T) {
	e := newEngine(t)
	in := input(95, 10000, types.TierPremium)
	in.FraudRiskScore = risk(0.85)
	original := e.Calculate(in)
	require.False(t, original.Eligible)

	out, err := e.Override(original, types.TierPremium, 300, "ops", "verified by phone")
	require.NoError(t, err)

	assert.True(t, out.Eligible)
	assert.Empty(t, out.RejectionReasons)
	assert.Equal(t, []types.RejectionReason{types.ReasonFraudRiskTooHigh}, original.RejectionReasons)
	assert.Equal(t, int64(45), out.Commission)
}

func TestOverrideRejectsInvalidRequests(t *testing.T) {
	e := newEngine(t)
	original := e.Calculate(input(95, 10000, types.TierStandard))
	overridden, err := e.Override(original, types.TierStandard, 1, "ops", "typo")
	require.NoError(t, err)

	tests := []struct {
		name     string
		original types.RewardResult
		tier     types.BusinessTier
		amount   int64
		actor    string
		reason   string
	}{
		{"negative amount", original, types.TierStandard, -1, "ops", "x"},
		{"missing actor", original, types.TierStandard, 10, " ", "x"},
		{"missing reason", original, types.TierStandard, 10, "ops", ""},
		{"unknown tier", original, 7, 10, "ops", "x"},
		{"already overridden", overridden, types.TierStandard, 10, "ops", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Override(tt.original, tt.tier, tt.amount, tt.actor, tt.reason)
			assert.ErrorIs(t, err, ErrInvalidOverride)
		})
	}
}
