package fraud

import "voice-rewards-go/internal/locale"

// PatternMatcher checks folded text against the pack's templated-phrase shapes.
type PatternMatcher struct {
	patterns []locale.TemplatePattern
}

func NewPatternMatcher(pack *locale.Pack) *PatternMatcher {
	return &PatternMatcher{patterns: pack.TemplatePatterns}
}

// Count returns how many distinct patterns match.
func (m *PatternMatcher) Count(folded string) int {
	return len(m.Matched(folded))
}

func (m *PatternMatcher) Matched(folded string) []string {
	if folded == "" {
		return nil
	}
	var names []string
	for i := range m.patterns {
		if m.patterns[i].Match(folded) {
			names = append(names, m.patterns[i].Name)
		}
	}
	return names
}
