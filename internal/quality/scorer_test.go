package quality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/types"
)

const richTranscript = "Lisa at the bakery helped me choose a sourdough bread. " +
	"I waited about five minutes in the queue because the cashier was new, which meant the line grew. " +
	"I think you should open a second till at lunch."

var bakeryContext = &types.BusinessContext{
	BusinessType: "grocery",
	Departments:  []string{"Bakery", "Deli"},
	StaffNames:   []string{"Lisa", "Ahmed"},
	Strengths:    []string{"fresh bread"},
}

func score(t *testing.T, pack *locale.Pack, transcript string, biz *types.BusinessContext, items []string) (types.QualityScore, Breakdown) {
	t.Helper()
	s := NewScorer(pack, DefaultWeights())
	return s.ScoreWithBreakdown(Input{
		Current:  pack.Normalizer().Normalize(transcript),
		Business: biz,
		Items:    items,
	})
}

func TestScoreEmptyTranscript(t *testing.T) {
	q, _ := score(t, locale.MustLoad("en"), "   ", bakeryContext, nil)

	assert.Equal(t, types.QualityScore{Confidence: 0.3}, q)
}

func TestScoreGenericTranscript(t *testing.T) {
	q, b := score(t, locale.MustLoad("en"), "Everything was good.", bakeryContext, nil)

	assert.Zero(t, q.Authenticity)
	assert.Equal(t, 7, q.Concreteness)
	assert.Equal(t, 1, b.Vague)
	assert.Equal(t, 1, b.Superficial)
	assert.Less(t, q.Total, 10)
	assert.GreaterOrEqual(t, q.Confidence, 0.3)
	assert.Less(t, q.Confidence, 0.4)
}

func TestScoreRichTranscript(t *testing.T) {
	pack := locale.MustLoad("en")
	rich, b := score(t, pack, richTranscript, bakeryContext, []string{"sourdough bread"})
	generic, _ := score(t, pack, "Everything was good. Nice staff.", bakeryContext, []string{"sourdough bread"})

	assert.ElementsMatch(t, []string{"Lisa", "Bakery", "sourdough bread"}, b.Anchors)
	assert.GreaterOrEqual(t, rich.Authenticity, 10+25+20+20)
	assert.Equal(t, 1, b.Quantities)
	assert.Contains(t, b.Concrete, "measurement")
	assert.Contains(t, b.Concrete, "time")
	assert.Contains(t, b.Concrete, "suggestion")
	assert.Contains(t, b.DepthHits, "causal")
	assert.Contains(t, b.DepthHits, "consequence")
	assert.Contains(t, b.DepthHits, "reflective")

	assert.Greater(t, rich.Authenticity, generic.Authenticity)
	assert.Greater(t, rich.Concreteness, generic.Concreteness)
	assert.Greater(t, rich.Depth, generic.Depth)
	assert.Greater(t, rich.Total, generic.Total)
	assert.Greater(t, rich.Confidence, generic.Confidence)
}

func TestScoreNearVerbatimAnchor(t *testing.T) {
	pack := locale.MustLoad("sv")
	_, b := score(t, pack, "Kaffet var varmt och Åsa i kassan var snabb.", &types.BusinessContext{
		StaffNames:  []string{"Åsa"},
		Departments: []string{"Kassa"},
	}, []string{"kaffe"})

	assert.ElementsMatch(t, []string{"Åsa", "Kassa", "kaffe"}, b.Anchors)
}

func TestScoreWithoutBusinessContext(t *testing.T) {
	q, b := score(t, locale.MustLoad("en"), richTranscript, nil, nil)

	assert.Empty(t, b.Anchors)
	assert.Equal(t, 10, q.Authenticity)
}

func TestScoreTotalIsClampedWeightedSum(t *testing.T) {
	transcripts := []string{
		"ok",
		"Everything was good.",
		richTranscript,
		richTranscript + " " + richTranscript + " Ahmed in the deli was also kind, compared to last time it was much better.",
		"good good good good good good good good good good good good okay okay fine fine nice nice",
		"12 34 56 78 90 minutes hours percent because because because therefore",
	}
	for _, pack := range []*locale.Pack{locale.MustLoad("en"), locale.MustLoad("sv")} {
		for _, tr := range transcripts {
			q, _ := score(t, pack, tr, bakeryContext, []string{"sourdough bread"})

			for _, sub := range []int{q.Authenticity, q.Concreteness, q.Depth, q.Total} {
				assert.GreaterOrEqual(t, sub, 0)
				assert.LessOrEqual(t, sub, 100)
			}
			want := int(math.Round(0.4*float64(q.Authenticity) + 0.3*float64(q.Concreteness) + 0.3*float64(q.Depth)))
			assert.Equal(t, want, q.Total, "%s: %q", pack.Locale, tr)
			assert.GreaterOrEqual(t, q.Confidence, 0.3)
			assert.LessOrEqual(t, q.Confidence, 1.0)
		}
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	pack := locale.MustLoad("en")
	a, _ := score(t, pack, richTranscript, bakeryContext, []string{"sourdough bread"})
	b, _ := score(t, pack, richTranscript, bakeryContext, []string{"sourdough bread"})
	assert.Equal(t, a, b)
}

func TestWeightsValidate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())
	assert.ErrorIs(t, Weights{Authenticity: 0.5, Concreteness: 0.5, Depth: 0.5}.Validate(), ErrInvalidWeights)
	assert.ErrorIs(t, Weights{Authenticity: 1.2, Concreteness: -0.1, Depth: -0.1}.Validate(), ErrInvalidWeights)
}
