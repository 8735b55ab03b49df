package fraud

import (
	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/textnorm"
	"voice-rewards-go/internal/types"
)

// ContextChecker compares transcript wording with what is known about the
// business. Specific references count against the risk, generic phrases for it.
type ContextChecker struct {
	pack *locale.Pack
}

func NewContextChecker(pack *locale.Pack) *ContextChecker {
	return &ContextChecker{pack: pack}
}

func (c *ContextChecker) Check(current textnorm.Result, biz *types.BusinessContext, items []string) (types.FraudSignal, error) {
	if biz == nil {
		return types.FraudSignal{}, ErrMissingContext
	}
	generic := c.pack.GenericPhrases.Matched(current.Words)
	specific := SpecificReferences(current.Words, biz, items)

	var score float64
	switch {
	case len(generic) >= 2:
		score = 0.5
	case len(generic) == 1:
		score = 0.2
	}
	score = clamp01(score - 0.15*float64(len(specific)))

	evidence := len(generic) + len(specific)
	if evidence > 4 {
		evidence = 4
	}
	return types.FraudSignal{
		Kind:       types.KindContextMismatch,
		Score:      score,
		Confidence: 0.5 + 0.1*float64(evidence),
		Severity:   types.SeverityFor(score),
		Evidence: types.ContextEvidence{
			GenericPhrases:     generic,
			SpecificReferences: specific,
		},
	}, nil
}

// SpecificReferences lists staff names, departments and purchased items found
// in the folded words.
func SpecificReferences(words []string, biz *types.BusinessContext, items []string) []string {
	var out []string
	if biz != nil {
		out = append(out, textnorm.MatchAnchors(words, biz.StaffNames)...)
		out = append(out, textnorm.MatchAnchors(words, biz.Departments)...)
	}
	out = append(out, textnorm.MatchAnchors(words, items)...)
	return out
}
