package fraud

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/textnorm"
	"voice-rewards-go/internal/types"
	"voice-rewards-go/internal/window"
)

const honest = "Lisa at the bakery helped me pick a sourdough loaf, but I waited ten minutes at the till."

var (
	en  = locale.MustLoad("en")
	now = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	biz = &types.BusinessContext{
		BusinessType: "grocery",
		Departments:  []string{"Bakery"},
		StaffNames:   []string{"Lisa"},
	}
	browser = &types.DeviceFingerprint{
		UserAgent:       "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Safari/604.1",
		ScreenSignature: "390x844@3",
		CookiesEnabled:  true,
	}
)

func normalize(s string) textnorm.Result {
	return en.Normalizer().Normalize(s)
}

func entryFor(id, s string) window.ContentEntry {
	r := normalize(s)
	return window.ContentEntry{SessionID: id, Text: r.Text, Keywords: r.Keywords, RecordedAt: now.Add(-time.Hour)}
}

func TestDuplicateExactMatch(t *testing.T) {
	d := NewDuplicateDetector(DefaultConfig())

	sig := d.Detect(normalize(honest), []window.ContentEntry{entryFor("s-1", honest)}, 0)

	assert.GreaterOrEqual(t, sig.Score, 0.95)
	assert.Equal(t, types.SeverityHigh, sig.Severity)
	assert.InDelta(t, 0.95, sig.Confidence, 1e-9)
	ev := sig.Evidence.(types.DuplicateEvidence)
	assert.True(t, ev.ExactMatch)
	assert.Equal(t, "s-1", ev.MatchedSessionID)
	assert.Equal(t, 1, ev.Compared)
}

func TestDuplicateIgnoresCaseAndDiacritics(t *testing.T) {
	d := NewDuplicateDetector(DefaultConfig())

	sig := d.Detect(normalize("CAFÉ was great!!"), []window.ContentEntry{entryFor("s-1", "cafe was great")}, 0)

	assert.True(t, sig.Evidence.(types.DuplicateEvidence).ExactMatch)
}

func TestDuplicateFuzzyMatch(t *testing.T) {
	d := NewDuplicateDetector(DefaultConfig())
	edited := "Lisa at the bakery helped me pick a sourdough loaf, but I waited nine minutes at the till."

	sig := d.Detect(normalize(edited), []window.ContentEntry{entryFor("s-1", honest)}, 0)

	ev := sig.Evidence.(types.DuplicateEvidence)
	assert.False(t, ev.ExactMatch)
	assert.GreaterOrEqual(t, ev.FuzzySimilarity, 0.85)
	assert.GreaterOrEqual(t, sig.Score, 0.7)
	assert.Less(t, sig.Score, 0.95)
}

func TestDuplicateTiersAreNotSummed(t *testing.T) {
	d := NewDuplicateDetector(DefaultConfig())
	recent := []window.ContentEntry{entryFor("s-1", honest), entryFor("s-2", honest)}

	sig := d.Detect(normalize(honest), recent, 0)

	assert.InDelta(t, 0.95, sig.Score, 1e-9)
	assert.Equal(t, 2, sig.Evidence.(types.DuplicateEvidence).Compared)
}

func TestDuplicateThresholdsAreExclusive(t *testing.T) {
	current := textnorm.Result{Text: "short note", Keywords: []string{"alpha", "beta"}}
	recent := []window.ContentEntry{{
		SessionID: "s-1",
		Text:      "a considerably longer and unrelated piece of feedback text",
		Keywords:  []string{"alpha", "beta", "gamma", "delta"},
	}}

	tests := []struct {
		threshold float64
		score     float64
	}{
		{0.5, 0},
		{0.49, 0.6},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.SemanticThreshold = tt.threshold

		sig := NewDuplicateDetector(cfg).Detect(current, recent, 0)

		assert.InDelta(t, 0.5, sig.Evidence.(types.DuplicateEvidence).SemanticSimilarity, 1e-9)
		assert.InDelta(t, tt.score, sig.Score, 1e-9, "threshold %.2f", tt.threshold)
	}
}

func TestDuplicateTemplatePenalty(t *testing.T) {
	d := NewDuplicateDetector(DefaultConfig())
	current := normalize("Everything was great")
	templates := NewPatternMatcher(en).Count(current.Text)
	require.Equal(t, 1, templates)

	sig := d.Detect(current, nil, templates)

	assert.InDelta(t, 0.2, sig.Score, 1e-9)
	assert.Equal(t, 1, sig.Evidence.(types.DuplicateEvidence).TemplateMatches)
}

func TestDuplicateEmptyTranscript(t *testing.T) {
	d := NewDuplicateDetector(DefaultConfig())

	sig := d.Detect(normalize(" ... "), []window.ContentEntry{{SessionID: "s-1"}}, 0)

	assert.Zero(t, sig.Score)
	assert.Zero(t, sig.Evidence.(types.DuplicateEvidence).Compared)
}

func TestDuplicateConservativeMode(t *testing.T) {
	cfg := DefaultConfig()
	current := normalize("Everything was great")
	plain := NewDuplicateDetector(cfg).Detect(current, nil, 2)

	cfg.ConservativeMode = true
	strict := NewDuplicateDetector(cfg).Detect(current, nil, 2)

	assert.InDelta(t, 0.4, plain.Score, 1e-9)
	assert.InDelta(t, 0.52, strict.Score, 1e-9)
}

func TestJaccard(t *testing.T) {
	assert.Zero(t, Jaccard(nil, []string{"a"}))
	assert.Equal(t, 1.0, Jaccard([]string{"a", "b"}, []string{"b", "a"}))
	assert.InDelta(t, 1.0/3, Jaccard([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
}

func TestPatternMatcher(t *testing.T) {
	m := NewPatternMatcher(en)

	assert.Equal(t, []string{"star_rating"}, m.Matched(textnorm.Fold("Five out of five, honestly!")))
	assert.Empty(t, m.Matched(textnorm.Fold(honest)))
	assert.Zero(t, m.Count(""))
}

func TestDeviceAnalyzer(t *testing.T) {
	a := NewDeviceAnalyzer(DefaultConfig())

	tests := []struct {
		name     string
		fp       *types.DeviceFingerprint
		score    float64
		severity types.Severity
	}{
		{"missing", nil, 0.2, types.SeverityLow},
		{"empty", &types.DeviceFingerprint{}, 0.2, types.SeverityLow},
		{"browser", browser, 0, types.SeverityLow},
		{"headless chrome", &types.DeviceFingerprint{UserAgent: "Mozilla/5.0 HeadlessChrome/120.0", CookiesEnabled: true}, 0.8, types.SeverityHigh},
		{"scripted client", &types.DeviceFingerprint{UserAgent: "python-requests/2.31", CookiesEnabled: true}, 0.8, types.SeverityHigh},
		{"zero viewport", &types.DeviceFingerprint{UserAgent: "Mozilla/5.0", ScreenSignature: "0x0", CookiesEnabled: true}, 0.8, types.SeverityHigh},
		{"cookies disabled", &types.DeviceFingerprint{UserAgent: "Mozilla/5.0", ScreenSignature: "1920x1080"}, 0.15, types.SeverityLow},
		{"cubot handset", &types.DeviceFingerprint{UserAgent: "Mozilla/5.0 (Linux; Android 10; CUBOT P40) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36", ScreenSignature: "720x1560", CookiesEnabled: true}, 0, types.SeverityLow},
		{"googlebot", &types.DeviceFingerprint{UserAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", CookiesEnabled: true}, 0.8, types.SeverityHigh},
		{"bare bot token", &types.DeviceFingerprint{UserAgent: "feedback-bot 1.0", CookiesEnabled: true}, 0.8, types.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := a.Analyze(tt.fp)
			assert.Equal(t, types.KindDeviceAbuse, sig.Kind)
			assert.InDelta(t, tt.score, sig.Score, 1e-9)
			assert.Equal(t, tt.severity, sig.Severity)
		})
	}
}

func TestTemporalAnalyzer(t *testing.T) {
	a := NewTemporalAnalyzer(DefaultConfig())

	tests := []struct {
		name    string
		history []time.Time
		score   float64
	}{
		{"first submission", nil, 0},
		{"one a day ago", []time.Time{now.Add(-24 * time.Hour)}, 0},
		{"one a minute ago", []time.Time{now.Add(-time.Minute)}, 0.5},
		{"three spread over the hour", []time.Time{now.Add(-50 * time.Minute), now.Add(-30 * time.Minute), now.Add(-10 * time.Minute)}, 0.6},
		{"three with the last a minute ago", []time.Time{now.Add(-50 * time.Minute), now.Add(-30 * time.Minute), now.Add(-time.Minute)}, 0.7},
		{"future entries ignored", []time.Time{now, now.Add(time.Minute)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := a.Analyze(tt.history, now)
			assert.InDelta(t, tt.score, sig.Score, 1e-9)
			assert.LessOrEqual(t, sig.Score, 0.7)
		})
	}
}

func TestContextChecker(t *testing.T) {
	c := NewContextChecker(en)

	generic, err := c.Check(normalize("Friendly staff and good service, highly recommend."), biz, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, generic.Score, 1e-9)
	assert.Len(t, generic.Evidence.(types.ContextEvidence).GenericPhrases, 3)

	mixed, err := c.Check(normalize("Friendly staff and good service, Lisa in the bakery knew her stuff."), biz, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, mixed.Score, 1e-9)

	specific, err := c.Check(normalize(honest), biz, []string{"sourdough loaf"})
	require.NoError(t, err)
	assert.Zero(t, specific.Score)
	assert.ElementsMatch(t, []string{"Lisa", "Bakery", "sourdough loaf"}, specific.Evidence.(types.ContextEvidence).SpecificReferences)

	_, err = c.Check(normalize(honest), nil, nil)
	assert.ErrorIs(t, err, ErrMissingContext)
}

func cleanInput() Input {
	return Input{
		Current:     normalize(honest),
		Device:      browser,
		SubmittedAt: now,
		Business:    biz,
	}
}

func TestAssessCleanSessionIsAccepted(t *testing.T) {
	a := NewAggregator(DefaultConfig(), en, nil)

	fa := a.Assess(cleanInput())

	assert.Zero(t, fa.OverallRiskScore)
	assert.Equal(t, types.RecommendAccept, fa.Recommendation)
	assert.Len(t, fa.Signals, len(types.SignalKinds))
	for i, k := range types.SignalKinds {
		assert.Equal(t, k, fa.Signals[i].Kind)
	}
}

func TestAssessAutomationEscalatesToReview(t *testing.T) {
	a := NewAggregator(DefaultConfig(), en, nil)
	in := cleanInput()
	in.Device = &types.DeviceFingerprint{UserAgent: "Mozilla/5.0 (X11; Linux) HeadlessChrome/121.0", CookiesEnabled: true}

	fa := a.Assess(in)

	assert.GreaterOrEqual(t, fa.Signals[1].Score, 0.8)
	assert.Contains(t, []types.Recommendation{types.RecommendReview, types.RecommendReject}, fa.Recommendation)
}

func TestAssessExactDuplicateOnSecondSubmission(t *testing.T) {
	a := NewAggregator(DefaultConfig(), en, nil)
	in := cleanInput()
	in.Window = []window.ContentEntry{entryFor("s-1", honest)}

	fa := a.Assess(in)

	assert.GreaterOrEqual(t, fa.Signals[0].Score, 0.95)
	assert.Equal(t, types.RecommendReject, fa.Recommendation)
}

func TestAssessStoreFailureDegradesToReview(t *testing.T) {
	a := NewAggregator(DefaultConfig(), en, nil)
	in := cleanInput()
	in.WindowErr = errors.New("connection refused")

	fa := a.Assess(in)

	dup := fa.Signals[0]
	assert.True(t, dup.Degraded)
	assert.Equal(t, types.KindContentDuplicate, dup.Evidence.(types.DegradedEvidence).Kind)
	assert.Contains(t, dup.Evidence.(types.DegradedEvidence).Error, "connection refused")
	assert.Equal(t, types.RecommendReview, fa.Recommendation)
	assert.LessOrEqual(t, fa.Confidence, 0.5)
}

func TestAssessMissingContextDegrades(t *testing.T) {
	a := NewAggregator(DefaultConfig(), en, nil)
	in := cleanInput()
	in.Business = nil

	fa := a.Assess(in)

	assert.True(t, fa.Signals[3].Degraded)
	assert.NotEqual(t, types.RecommendAccept, fa.Recommendation)
}

func TestRunRecoversPanics(t *testing.T) {
	a := NewAggregator(DefaultConfig(), en, nil)

	sig := a.run(types.KindTemporalPattern, func() (types.FraudSignal, error) {
		var history []time.Time
		_ = history[3]
		return types.FraudSignal{}, nil
	})

	assert.True(t, sig.Degraded)
	assert.Equal(t, types.KindTemporalPattern, sig.Kind)
}

func TestCombineWithoutSignalsDefaultsToReview(t *testing.T) {
	a := NewAggregator(DefaultConfig(), en, nil)

	fa := a.Combine(nil)

	assert.Equal(t, types.RecommendReview, fa.Recommendation)
	assert.NotEmpty(t, fa.Signals)

	fa = a.Combine([]types.FraudSignal{{Kind: "made_up", Score: 0.1}})
	assert.Equal(t, types.RecommendReview, fa.Recommendation)
}

func TestAggregateConservativeIsNeverLower(t *testing.T) {
	sets := [][]types.FraudSignal{
		{{Kind: types.KindContentDuplicate, Score: 0.7, Confidence: 0.8}},
		{{Kind: types.KindDeviceAbuse, Score: 0.8, Confidence: 0.9}, {Kind: types.KindTemporalPattern, Score: 0.5, Confidence: 0.6}},
		{{Kind: types.KindContextMismatch, Score: 0.2, Confidence: 0.6}, {Kind: types.KindDeviceAbuse, Score: 0, Confidence: 0.8}},
		{{Kind: types.KindContentDuplicate, Score: 1, Confidence: 1}},
	}
	plain := DefaultConfig()
	strict := DefaultConfig()
	strict.ConservativeMode = true
	for _, signals := range sets {
		p, _, err := Aggregate(signals, plain)
		require.NoError(t, err)
		s, _, err := Aggregate(signals, strict)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, s, p)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestAggregateWeightsFiredSignals(t *testing.T) {
	signals := []types.FraudSignal{
		{Kind: types.KindDeviceAbuse, Score: 0.8, Confidence: 1},
		{Kind: types.KindContextMismatch, Score: 0.5, Confidence: 1},
		{Kind: types.KindTemporalPattern, Score: 0, Confidence: 0.6},
	}

	score, confidence, err := Aggregate(signals, DefaultConfig())

	require.NoError(t, err)
	assert.InDelta(t, (0.7*0.8+0.4*0.5)/(0.7+0.4), score, 1e-9)
	assert.InDelta(t, 1.0, confidence, 1e-9)
}

func TestWeightUnknownKind(t *testing.T) {
	_, err := Weight("made_up")
	assert.ErrorIs(t, err, ErrUnknownSignal)
	for _, k := range types.SignalKinds {
		w, err := Weight(k)
		require.NoError(t, err)
		assert.Positive(t, w)
	}
}

func TestRecommend(t *testing.T) {
	cfg := DefaultConfig()
	high := types.FraudSignal{Kind: types.KindDeviceAbuse, Score: 0.8, Severity: types.SeverityHigh}

	assert.Equal(t, types.RecommendReject, Recommend(0.85, nil, cfg))
	assert.Equal(t, types.RecommendReview, Recommend(0.5, nil, cfg))
	assert.Equal(t, types.RecommendAccept, Recommend(0.49, nil, cfg))
	assert.Equal(t, types.RecommendReview, Recommend(0.3, []types.FraudSignal{high}, cfg))
}
