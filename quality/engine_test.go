package quality

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgate/store"
)

const (
	genericContent = "Generally speaking, you might want to consider optimizing."
	numericContent = "GPU memory reduced from 24GB to 16GB (33%)"
)

func TestValidateContent_RejectsGenericFiller(t *testing.T) {
	e := NewEngine()

	res := e.ValidateContent(context.Background(), genericContent, ContentTypeGeneral)

	assert.False(t, res.Passed)
	assert.Equal(t, 2, res.Metrics.GenericPhraseCount)
	assert.Less(t, res.Metrics.OverallScore, 0.3)

	found := false
	for _, issue := range res.Metrics.Issues {
		if strings.Contains(issue, "Generic phrasing") {
			found = true
		}
	}
	assert.True(t, found, "expected a generic phrasing issue, got %v", res.Metrics.Issues)
}

func TestValidateContent_AcceptsQuantifiedContent(t *testing.T) {
	e := NewEngine()

	for _, ct := range []ContentType{ContentTypeGeneral, ContentTypeOptimization} {
		res := e.ValidateContent(context.Background(), numericContent, ct)
		assert.True(t, res.Passed, "content type %s", ct)
		assert.GreaterOrEqual(t, res.Metrics.OverallScore, 0.5, "content type %s", ct)
		assert.Equal(t, 3, res.Metrics.NumericTermCount)
	}
}

func TestValidateContent_UnknownTypeFallsBackToGeneral(t *testing.T) {
	e := NewEngine()

	res := e.ValidateContent(context.Background(), numericContent, ContentType("SOMETHING_ELSE"))
	general := e.ValidateContent(context.Background(), numericContent, ContentTypeGeneral)
	assert.InDelta(t, general.Metrics.OverallScore, res.Metrics.OverallScore, 1e-9)
}

func TestValidateContent_CacheIsIdempotentAndFast(t *testing.T) {
	e := NewEngine()
	content := strings.Repeat("Batch size raised from 32 to 64, cutting epoch time by 18%. ", 2000)

	start := time.Now()
	cold := e.ValidateContent(context.Background(), content, ContentTypeOptimization)
	coldDur := time.Since(start)

	start = time.Now()
	warm := e.ValidateContent(context.Background(), content, ContentTypeOptimization)
	warmDur := time.Since(start)

	assert.Equal(t, cold, warm)
	assert.LessOrEqual(t, warmDur*2, coldDur, "cached validation should be at least twice as fast")
}

func TestValidateContent_StrictNeverRaisesScore(t *testing.T) {
	e := NewEngine()
	samples := []string{
		genericContent,
		numericContent,
		"Improve the service.",
		"Cache hit rate climbed from 61% to 88% after the TTL was set to 300s.",
	}

	for _, content := range samples {
		relaxed := e.ValidateContent(context.Background(), content, ContentTypeGeneral)
		strict := e.ValidateContent(context.Background(), content, ContentTypeGeneral, func(o *ValidateOptions) {
			o.Strict = true
		})
		if strict.Passed {
			assert.True(t, relaxed.Passed, "strict pass implies relaxed pass for %q", content)
		}
	}
}

func TestValidateContent_StrictRejectsAnyGenericPhrase(t *testing.T) {
	e := NewEngine()
	content := "It is important to note that latency dropped from 120ms to 45ms after we reduced the connection cache to 32."

	relaxed := e.ValidateContent(context.Background(), content, ContentTypeOptimization)
	strict := e.ValidateContent(context.Background(), content, ContentTypeOptimization, func(o *ValidateOptions) {
		o.Strict = true
	})

	require.True(t, relaxed.Passed)
	assert.False(t, strict.Passed)
}

func TestValidateContent_RetryGuidance(t *testing.T) {
	e := NewEngine()

	// Mid-range failure: worth retrying with adjusted prompting.
	mid := e.ValidateContent(context.Background(), "Improve the service.", ContentTypeGeneral)
	require.False(t, mid.Passed)
	assert.True(t, mid.RetrySuggested)
	assert.NotEmpty(t, mid.RetryAdjustments)
	assert.Empty(t, mid.Fallback)

	// Hopeless content: fall back instead of retrying.
	low := e.ValidateContent(context.Background(), genericContent, ContentTypeGeneral)
	require.False(t, low.Passed)
	assert.False(t, low.RetrySuggested)
	assert.NotEmpty(t, low.Fallback)
}

func TestValidateBatch_PreservesOrder(t *testing.T) {
	e := NewEngine()
	items := make([]BatchItem, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, BatchItem{
			Content:     fmt.Sprintf("Reduced disk usage from %dGB to %dGB by enabling log rotation.", 100+i, 40+i),
			ContentType: ContentTypeOptimization,
		})
	}

	results := e.ValidateBatch(context.Background(), items)
	require.Len(t, results, len(items))
	for i, res := range results {
		assert.True(t, res.Passed, "item %d", i)
	}
}

func TestHistory_EvictsOldestBeyondLimit(t *testing.T) {
	e := NewEngine(func(o *EngineOptions) {
		o.HistoryLimit = 5
	})

	for i := 0; i < 8; i++ {
		content := fmt.Sprintf("Throughput rose from %d to %d requests per second.", 100+i, 200+i)
		e.ValidateContent(context.Background(), content, ContentTypeDataAnalysis)
	}

	assert.Equal(t, 5, e.HistoryLen(ContentTypeDataAnalysis))
}

func TestStats_AggregatesRecentHistory(t *testing.T) {
	e := NewEngine()

	e.ValidateContent(context.Background(), genericContent, ContentTypeGeneral)
	e.ValidateContent(context.Background(), numericContent, ContentTypeGeneral)
	e.ValidateContent(context.Background(), numericContent, ContentTypeOptimization)

	st := e.Stats(ContentTypeGeneral)
	assert.Equal(t, 2, st.Count)
	assert.Less(t, st.MinScore, 0.3)
	assert.GreaterOrEqual(t, st.MaxScore, 0.5)

	all := e.Stats("")
	assert.Equal(t, 3, all.Count)

	empty := e.Stats(ContentTypeReport)
	assert.Equal(t, 0, empty.Count)
}

func TestValidateContent_ScorerPanicMarksFailed(t *testing.T) {
	e := NewEngine()
	e.RegisterScorer(DimClarity, func(ContentType, string, *TextStats) (float64, error) {
		panic("boom")
	})

	res := e.ValidateContent(context.Background(), numericContent, ContentTypeGeneral)

	assert.False(t, res.Passed)
	require.NotEmpty(t, res.Metrics.Issues)
	assert.Contains(t, res.Metrics.Issues[0], "Validation error in clarity")
}

func TestValidateContent_PersistsMetricsToStore(t *testing.T) {
	ms := store.NewMemoryStore()
	e := NewEngine(func(o *EngineOptions) {
		o.Store = ms
	})

	e.ValidateContent(context.Background(), numericContent, ContentTypeOptimization)

	doc, err := ms.GetMetrics(context.Background(), "quality_metrics:OPTIMIZATION")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Contains(t, doc, "overall_score")
	assert.Contains(t, doc, "quality_level")

	entries, err := ms.GetList(context.Background(), "quality_history:OPTIMIZATION")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLevelForScore_Boundaries(t *testing.T) {
	assert.Equal(t, LevelExcellent, LevelForScore(0.95))
	assert.Equal(t, LevelGood, LevelForScore(0.7))
	assert.Equal(t, LevelAcceptable, LevelForScore(0.5))
	assert.Equal(t, LevelPoor, LevelForScore(0.3))
	assert.Equal(t, LevelUnacceptable, LevelForScore(0.1))
}
