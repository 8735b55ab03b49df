package reward

import (
	"fmt"
	"strings"

	"voice-rewards-go/internal/types"
)

// Override returns a new result carrying a manual correction. The original is
// left untouched; commission is recomputed for the new amount, caps are not
// re-applied.
func (e *Engine) Override(original types.RewardResult, tier types.BusinessTier, amount int64, actor, reason string) (types.RewardResult, error) {
	actor, reason = strings.TrimSpace(actor), strings.TrimSpace(reason)
	switch {
	case amount < 0:
		return types.RewardResult{}, fmt.Errorf("%w: negative amount %d", ErrInvalidOverride, amount)
	case actor == "":
		return types.RewardResult{}, fmt.Errorf("%w: actor required", ErrInvalidOverride)
	case reason == "":
		return types.RewardResult{}, fmt.Errorf("%w: reason required", ErrInvalidOverride)
	case original.Override != nil:
		return types.RewardResult{}, fmt.Errorf("%w: result is already an override", ErrInvalidOverride)
	}
	commission, err := e.commission(amount, tier)
	if err != nil {
		return types.RewardResult{}, fmt.Errorf("%w: %v", ErrInvalidOverride, err)
	}

	out := original
	out.AppliedCaps = append([]types.AppliedCap{}, original.AppliedCaps...)
	out.RejectionReasons = append([]types.RejectionReason{}, original.RejectionReasons...)
	if amount > 0 {
		out.Eligible = true
		out.RejectionReasons = []types.RejectionReason{}
	}
	out.RewardAmount = amount
	out.FloorApplied = false
	out.Commission = commission
	out.BusinessCost = amount + commission
	out.Override = &types.ManualOverride{
		Actor:          actor,
		Reason:         reason,
		OriginalAmount: original.RewardAmount,
	}
	return out, nil
}
