// Package quality scores a transcript on authenticity, concreteness and depth.
// Scoring is independent of the fraud assessment and never fails.
package quality

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/textnorm"
	"voice-rewards-go/internal/types"
)

// Anchor weights for authenticity, per distinct anchor matched.
const (
	staffAnchorPoints      = 25
	departmentAnchorPoints = 20
	itemAnchorPoints       = 20
	themeAnchorPoints      = 10
	authenticityBaseline   = 10
	baselineMinWords       = 10
)

// Concreteness constants.
const (
	concretenessBase = 10
	quantityPoints   = 8
	quantityCap      = 24
	namedItemPoints  = 10
	namedItemCap     = 30
)

const (
	depthBaseCap        = 40
	depthWordsPerPoint  = 2.5
	confidenceFloor     = 0.3
	confidencePerWord   = 1.0 / 200
	confidencePerSignal = 0.03
)

// Weights of the three dimensions in the total. They must sum to 1.
type Weights struct {
	Authenticity float64 `yaml:"authenticity"`
	Concreteness float64 `yaml:"concreteness"`
	Depth        float64 `yaml:"depth"`
}

func DefaultWeights() Weights {
	return Weights{Authenticity: 0.40, Concreteness: 0.30, Depth: 0.30}
}

var ErrInvalidWeights = errors.New("invalid quality weights")

func (w Weights) Validate() error {
	if w.Authenticity < 0 || w.Concreteness < 0 || w.Depth < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidWeights)
	}
	if sum := w.Authenticity + w.Concreteness + w.Depth; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: weights sum to %.3f", ErrInvalidWeights, sum)
	}
	return nil
}

type Input struct {
	Current  textnorm.Result
	Business *types.BusinessContext
	Items    []string
}

// Breakdown keeps what each dimension matched, for explanations and debugging.
type Breakdown struct {
	Anchors     []string       `json:"anchors,omitempty"`
	Quantities  int            `json:"quantities"`
	Concrete    map[string]int `json:"concrete,omitempty"`
	Vague       int            `json:"vague"`
	DepthHits   map[string]int `json:"depth,omitempty"`
	Superficial int            `json:"superficial"`
	AvgSentence float64        `json:"avg_sentence_words"`
	SignalHits  int            `json:"signal_hits"`
}

type Scorer struct {
	pack    *locale.Pack
	weights Weights
}

func NewScorer(pack *locale.Pack, weights Weights) *Scorer {
	return &Scorer{pack: pack, weights: weights}
}

// Score returns the quality score for one transcript.
func (s *Scorer) Score(in Input) types.QualityScore {
	q, _ := s.ScoreWithBreakdown(in)
	return q
}

func (s *Scorer) ScoreWithBreakdown(in Input) (types.QualityScore, Breakdown) {
	var b Breakdown
	if in.Current.Empty() {
		return types.QualityScore{Confidence: confidenceFloor}, b
	}
	words := in.Current.Words

	auth := s.authenticity(words, in.Business, in.Items, &b)
	conc := s.concreteness(words, in.Items, &b)
	depth := s.depth(in.Current, &b)

	total := s.weights.Authenticity*float64(auth) +
		s.weights.Concreteness*float64(conc) +
		s.weights.Depth*float64(depth)

	conf := confidenceFloor + float64(len(words))*confidencePerWord + float64(b.SignalHits)*confidencePerSignal
	conf = math.Min(1, math.Max(confidenceFloor, conf))

	return types.QualityScore{
		Authenticity: auth,
		Concreteness: conc,
		Depth:        depth,
		Total:        clampScore(math.Round(total)),
		Confidence:   math.Round(conf*100) / 100,
	}, b
}

func (s *Scorer) authenticity(words []string, biz *types.BusinessContext, items []string, b *Breakdown) int {
	score := 0
	if len(words) >= baselineMinWords {
		score += authenticityBaseline
	}
	add := func(anchors []string, points int) {
		matched := textnorm.MatchAnchors(words, anchors)
		b.Anchors = append(b.Anchors, matched...)
		b.SignalHits += len(matched)
		score += points * len(matched)
	}
	if biz != nil {
		add(biz.StaffNames, staffAnchorPoints)
		add(biz.Departments, departmentAnchorPoints)
		add(biz.Strengths, themeAnchorPoints)
		add(biz.KnownIssues, themeAnchorPoints)
	}
	add(items, itemAnchorPoints)
	return clampScore(float64(score))
}

func (s *Scorer) concreteness(words []string, items []string, b *Breakdown) int {
	score := float64(concretenessBase)

	for _, w := range words {
		if s.pack.IsNumber(w) {
			b.Quantities++
		}
	}
	score += math.Min(float64(b.Quantities*quantityPoints), quantityCap)
	b.SignalHits += b.Quantities

	for i := range s.pack.Concreteness.Categories {
		c := &s.pack.Concreteness.Categories[i]
		hits := c.Hits(words)
		if hits == 0 {
			continue
		}
		if b.Concrete == nil {
			b.Concrete = map[string]int{}
		}
		b.Concrete[c.Name] = hits
		b.SignalHits += hits
		score += c.Score(words)
	}

	named := len(textnorm.MatchAnchors(words, items))
	score += math.Min(float64(named*namedItemPoints), namedItemCap)

	b.Vague = s.pack.Concreteness.Vague.Hits(words)
	score -= s.pack.Concreteness.Vague.Score(words)
	return clampScore(score)
}

func (s *Scorer) depth(current textnorm.Result, b *Breakdown) int {
	b.AvgSentence = averageSentenceWords(current.Sentences)
	score := math.Min(depthBaseCap, b.AvgSentence*depthWordsPerPoint)

	words := current.Words
	for i := range s.pack.Depth.Categories {
		c := &s.pack.Depth.Categories[i]
		hits := c.Hits(words)
		if hits == 0 {
			continue
		}
		if b.DepthHits == nil {
			b.DepthHits = map[string]int{}
		}
		b.DepthHits[c.Name] = hits
		b.SignalHits += hits
		score += c.Score(words)
	}

	b.Superficial = s.pack.Depth.Superficial.Hits(words)
	score -= s.pack.Depth.Superficial.Score(words)
	return clampScore(score)
}

func averageSentenceWords(sentences []string) float64 {
	if len(sentences) == 0 {
		return 0
	}
	total := 0
	for _, sen := range sentences {
		total += len(strings.Fields(textnorm.Fold(sen)))
	}
	return float64(total) / float64(len(sentences))
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}
