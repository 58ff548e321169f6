package quality

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hupe1980/agentgate/logging"
	"github.com/hupe1980/agentgate/store"
)

// EngineOptions configures a validation engine.
type EngineOptions struct {
	// Threshold is the minimum overall score a content must reach to pass.
	Threshold float64
	// CacheSize bounds the number of cached validation results.
	CacheSize int
	// HistoryLimit bounds the retained history per content type.
	HistoryLimit int
	// StatsWindow is how many recent entries Stats aggregates over.
	StatsWindow int
	// PersistTTL is the lifetime of metrics written to the store.
	PersistTTL time.Duration
	// Store receives validation metrics for later inspection. Optional.
	Store store.Store
	// Logger receives engine diagnostics.
	Logger logging.Logger
}

// Engine validates content against per-type quality dimensions. It caches
// results by content hash, keeps a bounded validation history per content
// type and optionally persists metrics to a store. Safe for concurrent use.
type Engine struct {
	opts    EngineOptions
	scorers map[Dimension]Scorer
	weights map[ContentType]Weights

	mu        sync.Mutex
	cache     map[string]Metrics
	cacheKeys []string
	history   map[ContentType][]Metrics
}

// NewEngine creates a validation engine with the default scorers and
// weights.
func NewEngine(optFns ...func(o *EngineOptions)) *Engine {
	opts := EngineOptions{
		Threshold:    0.5,
		CacheSize:    1024,
		HistoryLimit: 1000,
		StatsWindow:  100,
		PersistTTL:   24 * time.Hour,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 1000
	}
	if opts.StatsWindow <= 0 {
		opts.StatsWindow = 100
	}
	return &Engine{
		opts:    opts,
		scorers: defaultScorers(),
		weights: defaultWeights(),
		cache:   make(map[string]Metrics),
		history: make(map[ContentType][]Metrics),
	}
}

// RegisterScorer replaces the scorer for a dimension. Intended for tests and
// for domain-specific tuning.
func (e *Engine) RegisterScorer(d Dimension, s Scorer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scorers[d] = s
}

// ValidateOptions tunes a single validation call.
type ValidateOptions struct {
	// Strict lowers the effective score by 10% and rejects any content
	// containing generic filler, regardless of score.
	Strict bool
}

// ValidateContent scores content for the given type and returns the gate
// verdict. Scoring failures never propagate as errors: the result is marked
// failed with the failure recorded as an issue.
func (e *Engine) ValidateContent(ctx context.Context, content string, contentType ContentType, optFns ...func(o *ValidateOptions)) ValidationResult {
	var vo ValidateOptions
	for _, fn := range optFns {
		fn(&vo)
	}
	if contentType == "" {
		contentType = ContentTypeGeneral
	}

	key := cacheKey(content, contentType, vo.Strict)
	if m, ok := e.cachedMetrics(key); ok {
		return e.verdict(m, vo.Strict)
	}

	m, err := scoreContent(contentType, content, e.scorersSnapshot(), e.weightsFor(contentType))
	if err != nil {
		e.opts.Logger.Warn("quality scoring failed: %v", err)
		m.OverallScore = 0
		m.QualityLevel = LevelUnacceptable
		m.Issues = append(m.Issues, err.Error())
		res := ValidationResult{Passed: false, Metrics: m}
		return res
	}
	e.annotate(&m)

	e.remember(key, contentType, m)
	e.persist(ctx, contentType, m)

	return e.verdict(m, vo.Strict)
}

// BatchItem is one unit of work for ValidateBatch.
type BatchItem struct {
	Content     string
	ContentType ContentType
}

// ValidateBatch validates all items concurrently and returns results in the
// order the items were given.
func (e *Engine) ValidateBatch(ctx context.Context, items []BatchItem, optFns ...func(o *ValidateOptions)) []ValidationResult {
	results := make([]ValidationResult, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item BatchItem) {
			defer wg.Done()
			results[i] = e.ValidateContent(ctx, item.Content, item.ContentType, optFns...)
		}(i, item)
	}
	wg.Wait()
	return results
}

// Stats aggregates the most recent validation history for a content type.
// An empty content type aggregates across all types.
func (e *Engine) Stats(contentType ContentType) Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var entries []Metrics
	if contentType == "" {
		for _, hs := range e.history {
			entries = append(entries, hs...)
		}
	} else {
		entries = e.history[contentType]
	}
	if len(entries) > e.opts.StatsWindow {
		entries = entries[len(entries)-e.opts.StatsWindow:]
	}

	st := Stats{Levels: make(map[Level]int)}
	for _, m := range entries {
		if st.Count == 0 || m.OverallScore < st.MinScore {
			st.MinScore = m.OverallScore
		}
		if m.OverallScore > st.MaxScore {
			st.MaxScore = m.OverallScore
		}
		st.Levels[m.QualityLevel]++
		st.Count++
	}
	return st
}

// HistoryLen reports the retained history length for a content type.
func (e *Engine) HistoryLen(contentType ContentType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history[contentType])
}

func (e *Engine) cachedMetrics(key string) (Metrics, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.cache[key]
	return m, ok
}

func (e *Engine) scorersSnapshot() map[Dimension]Scorer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[Dimension]Scorer, len(e.scorers))
	for d, s := range e.scorers {
		out[d] = s
	}
	return out
}

// weightsFor returns the weighting for a content type, falling back to the
// general weighting for unknown types. The weights map is immutable after
// construction.
func (e *Engine) weightsFor(ct ContentType) Weights {
	if w, ok := e.weights[ct]; ok {
		return w
	}
	return e.weights[ContentTypeGeneral]
}

// remember stores the metrics in the result cache and appends them to the
// per-type history, evicting oldest entries past the configured bounds.
func (e *Engine) remember(key string, ct ContentType, m Metrics) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.cache[key]; !ok {
		if len(e.cacheKeys) >= e.opts.CacheSize {
			oldest := e.cacheKeys[0]
			e.cacheKeys = e.cacheKeys[1:]
			delete(e.cache, oldest)
		}
		e.cacheKeys = append(e.cacheKeys, key)
	}
	e.cache[key] = m

	hs := append(e.history[ct], m)
	if len(hs) > e.opts.HistoryLimit {
		hs = hs[len(hs)-e.opts.HistoryLimit:]
	}
	e.history[ct] = hs
}

// persist writes the metrics to the configured store. Store failures are
// logged and otherwise ignored so a flaky store never blocks validation.
func (e *Engine) persist(ctx context.Context, ct ContentType, m Metrics) {
	if e.opts.Store == nil {
		return
	}
	doc := map[string]any{
		"overall_score":  m.OverallScore,
		"quality_level":  string(m.QualityLevel),
		"specificity":    m.Specificity,
		"actionability":  m.Actionability,
		"quantification": m.Quantification,
		"relevance":      m.Relevance,
		"completeness":   m.Completeness,
		"novelty":        m.Novelty,
		"clarity":        m.Clarity,
		"word_count":     m.WordCount,
	}
	key := "quality_metrics:" + string(ct)
	if err := e.opts.Store.StoreMetrics(ctx, key, doc, e.opts.PersistTTL); err != nil {
		e.opts.Logger.Warn("failed to persist quality metrics for %s: %v", ct, err)
	}
	entry := map[string]any{
		"overall_score": m.OverallScore,
		"quality_level": string(m.QualityLevel),
	}
	if err := e.opts.Store.AddToList(ctx, "quality_history:"+string(ct), entry); err != nil {
		e.opts.Logger.Warn("failed to append quality history for %s: %v", ct, err)
	}
}

// annotate fills issues, suggestions and level from the finished scores.
func (e *Engine) annotate(m *Metrics) {
	if m.GenericPhraseCount > 0 {
		m.Issues = append(m.Issues, fmt.Sprintf("Generic phrasing detected (%d occurrences)", m.GenericPhraseCount))
		m.Suggestions = append(m.Suggestions, "Remove generic filler phrases and state concrete facts")
	}
	if m.Quantification < 0.3 {
		m.Issues = append(m.Issues, "Little or no quantified evidence")
		m.Suggestions = append(m.Suggestions, "Include concrete numbers and measured deltas")
	}
	if m.Specificity < 0.4 {
		m.Suggestions = append(m.Suggestions, "Name the exact resources, components or settings involved")
	}
	if m.Actionability < 0.4 {
		m.Suggestions = append(m.Suggestions, "State the concrete action to take, not a possibility")
	}
	if m.CircularReasoning {
		m.Issues = append(m.Issues, "Conclusion restates the opening without new information")
	}
	if m.RedundancyRatio > 0.3 {
		m.Issues = append(m.Issues, "High redundancy across sentences")
	}
	if m.HallucinationRisk > 0.4 {
		m.Issues = append(m.Issues, "Overstated certainty claims present")
		m.Suggestions = append(m.Suggestions, "Qualify claims with measured evidence")
	}
}

// verdict derives the final gate decision from the metrics. Strict mode
// lowers the effective score by 10% and never accepts generic filler.
func (e *Engine) verdict(m Metrics, strict bool) ValidationResult {
	effective := m.OverallScore
	if strict {
		effective *= 0.9
	}
	passed := effective >= e.opts.Threshold
	if strict && m.GenericPhraseCount > 0 {
		passed = false
	}

	res := ValidationResult{
		Passed:  passed,
		Metrics: m,
	}
	if !passed {
		res.RetrySuggested = m.OverallScore >= 0.2
		res.RetryAdjustments = append(res.RetryAdjustments, m.Suggestions...)
		if m.OverallScore < 0.2 {
			res.Fallback = "Unable to produce a sufficiently specific answer for this request. Please add more detail about the workload, constraints and observed metrics."
		}
	}
	return res
}

func cacheKey(content string, ct ContentType, strict bool) string {
	h := sha256.New()
	h.Write([]byte(content))
	h.Write([]byte{0})
	h.Write([]byte(ct))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(strict)))
	return hex.EncodeToString(h.Sum(nil))
}
