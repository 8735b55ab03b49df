package fraud

import (
	"voice-rewards-go/internal/textnorm"
	"voice-rewards-go/internal/types"
	"voice-rewards-go/internal/window"
)

// Risk contributions per duplicate tier. Tiers are not summed; the highest wins.
const (
	exactDuplicateRisk    = 0.95
	fuzzyDuplicateRisk    = 0.7
	semanticDuplicateRisk = 0.6
)

type DuplicateDetector struct {
	cfg Config
}

func NewDuplicateDetector(cfg Config) *DuplicateDetector {
	return &DuplicateDetector{cfg: cfg}
}

type comparison struct {
	entry    window.ContentEntry
	exact    bool
	fuzzy    float64
	semantic float64
	tier     float64
	agreed   int
}

// Detect compares the current content with a window snapshot. It never writes
// to the window; appending is the caller's job once scoring is done.
func (d *DuplicateDetector) Detect(current textnorm.Result, recent []window.ContentEntry, templateMatches int) types.FraudSignal {
	ev := types.DuplicateEvidence{TemplateMatches: templateMatches}
	if current.Empty() {
		return types.FraudSignal{
			Kind:       types.KindContentDuplicate,
			Confidence: 0.5,
			Severity:   types.SeverityLow,
			Evidence:   ev,
		}
	}

	var best comparison
	for _, e := range recent {
		if e.Text == "" {
			continue
		}
		c := d.compare(current, e)
		ev.Compared++
		if c.tier > best.tier || (c.tier == best.tier && c.fuzzy > best.fuzzy) {
			best = c
		}
	}

	ev.ExactMatch = best.exact
	ev.FuzzySimilarity = round3(best.fuzzy)
	ev.SemanticSimilarity = round3(best.semantic)
	if best.tier > 0 {
		ev.MatchedSessionID = best.entry.SessionID
	}

	score := best.tier + d.cfg.TemplatePenalty*float64(templateMatches)
	score = d.cfg.conservative(score)

	return types.FraudSignal{
		Kind:       types.KindContentDuplicate,
		Score:      score,
		Confidence: 0.5 + 0.15*float64(best.agreed),
		Severity:   types.SeverityFor(score),
		Evidence:   ev,
	}
}

func (d *DuplicateDetector) compare(current textnorm.Result, e window.ContentEntry) comparison {
	c := comparison{entry: e}
	c.exact = current.Text == e.Text
	if c.exact {
		c.fuzzy = 1
	} else {
		c.fuzzy = d.fuzzyRatio(current.Text, e.Text)
	}
	c.semantic = Jaccard(current.Keywords, e.Keywords)

	if c.exact {
		c.agreed++
		c.tier = exactDuplicateRisk
	}
	if c.fuzzy > d.cfg.FuzzyThreshold {
		c.agreed++
		if c.tier < fuzzyDuplicateRisk {
			c.tier = fuzzyDuplicateRisk
		}
	}
	if c.semantic > d.cfg.SemanticThreshold {
		c.agreed++
		if c.tier < semanticDuplicateRisk {
			c.tier = semanticDuplicateRisk
		}
	}
	return c
}

// fuzzyRatio skips the edit distance, and reports 0, when the length
// difference alone rules out reaching the threshold.
func (d *DuplicateDetector) fuzzyRatio(a, b string) float64 {
	ra, rb := truncateRunes(a, d.cfg.MaxCompareRunes), truncateRunes(b, d.cfg.MaxCompareRunes)
	la, lb := len([]rune(ra)), len([]rune(rb))
	short, long := la, lb
	if short > long {
		short, long = long, short
	}
	if long == 0 {
		return 0
	}
	if float64(short)/float64(long) < d.cfg.FuzzyThreshold {
		return 0
	}
	return textnorm.Similarity(ra, rb)
}

// Jaccard is |A∩B| / |A∪B| over keyword sets; two empty sets score 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, k := range a {
		set[k] = struct{}{}
	}
	inter := 0
	union := len(set)
	seen := make(map[string]struct{}, len(b))
	for _, k := range b {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
