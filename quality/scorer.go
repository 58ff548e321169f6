package quality

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/hupe1980/agentgate/core"
)

// TextStats holds the lexical features extracted once per content and shared
// by every dimension scorer.
type TextStats struct {
	Lower         string
	Words         []string
	WordCount     int
	Sentences     []string
	SentenceCount int
	NumericTerms  int
	HasUnits      bool
}

// Scorer computes one dimension score in [0, 1] for a piece of content.
// Scorers must not mutate the shared stats.
type Scorer func(contentType ContentType, content string, st *TextStats) (float64, error)

var (
	numericRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	unitRe     = regexp.MustCompile(`\d+(?:\.\d+)?\s?(?:GB|MB|KB|TB|ms|%)`)
	sentenceRe = regexp.MustCompile(`[.!?]+`)
	wordRe     = regexp.MustCompile(`\S+`)
)

// genericPhrases are filler constructions that carry no information. Each
// occurrence lowers novelty and adds a scoring penalty.
var genericPhrases = []string{
	"generally speaking",
	"you might want to consider",
	"it depends",
	"in general",
	"as you may know",
	"it is important to note",
	"at the end of the day",
	"it goes without saying",
	"best practices suggest",
	"various factors",
	"there are many ways",
}

// absoluteClaims are phrases that overstate certainty and raise the
// hallucination risk estimate.
var absoluteClaims = []string{
	"guaranteed",
	"always works",
	"never fails",
	"100% certain",
	"completely eliminate",
	"zero risk",
	"with absolute certainty",
}

var actionVerbs = []string{
	"reduce", "reduced", "reducing",
	"increase", "increased",
	"optimize", "optimized", "optimizing",
	"implement", "configure", "enable", "disable",
	"set", "adjust", "migrate", "cache", "batch",
	"upgrade", "remove", "replace", "limit", "tune",
	"split", "merge", "deploy", "rollback",
}

// typeKeywords drive the relevance score: each keyword found in the content
// adds to the 0.5 baseline.
var typeKeywords = map[ContentType][]string{
	ContentTypeOptimization: {"optimiz", "memory", "gpu", "cpu", "latency", "throughput", "cost", "performance", "reduce", "cache"},
	ContentTypeDataAnalysis: {"data", "metric", "trend", "average", "median", "distribution", "sample", "correlation", "percentile"},
	ContentTypeActionPlan:   {"step", "plan", "task", "deadline", "owner", "milestone", "priority", "first", "then"},
	ContentTypeReport:       {"summary", "report", "overview", "period", "result", "finding", "conclusion"},
	ContentTypeTriage:       {"category", "priority", "severity", "route", "urgent", "classif"},
	ContentTypeErrorMessage: {"error", "failed", "exception", "retry", "cause", "code"},
}

// AnalyzeText extracts the lexical features every scorer consumes.
func AnalyzeText(content string) *TextStats {
	lower := strings.ToLower(content)
	words := wordRe.FindAllString(content, -1)

	sentenceCount := 0
	var sentences []string
	for _, s := range sentenceRe.Split(content, -1) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, strings.TrimSpace(s))
			sentenceCount++
		}
	}
	if sentenceCount == 0 && len(words) > 0 {
		sentences = []string{strings.TrimSpace(content)}
		sentenceCount = 1
	}

	return &TextStats{
		Lower:         lower,
		Words:         words,
		WordCount:     len(words),
		Sentences:     sentences,
		SentenceCount: sentenceCount,
		NumericTerms:  len(numericRe.FindAllString(content, -1)),
		HasUnits:      unitRe.MatchString(content),
	}
}

func countGenericPhrases(lower string) int {
	n := 0
	for _, p := range genericPhrases {
		n += strings.Count(lower, p)
	}
	return n
}

func hallucinationRisk(lower string) float64 {
	n := 0
	for _, p := range absoluteClaims {
		n += strings.Count(lower, p)
	}
	return clamp01(float64(n) * 0.25)
}

// redundancyRatio is the fraction of sentences that repeat an earlier
// sentence verbatim after normalization.
func redundancyRatio(st *TextStats) float64 {
	if st.SentenceCount < 2 {
		return 0
	}
	seen := make(map[string]bool, st.SentenceCount)
	dup := 0
	for _, s := range st.Sentences {
		key := strings.ToLower(strings.Join(strings.Fields(s), " "))
		if seen[key] {
			dup++
		}
		seen[key] = true
	}
	return float64(dup) / float64(st.SentenceCount)
}

// circularReasoning flags content whose conclusion merely restates its
// opening sentence.
func circularReasoning(st *TextStats) bool {
	if st.SentenceCount < 2 {
		return false
	}
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return norm(st.Sentences[0]) == norm(st.Sentences[st.SentenceCount-1])
}

func scoreSpecificity(_ ContentType, _ string, st *TextStats) (float64, error) {
	score := 0.2 + 0.15*float64(minInt(st.NumericTerms, 5))
	if st.HasUnits {
		score += 0.1
	}
	return clamp01(score), nil
}

func scoreActionability(_ ContentType, _ string, st *TextStats) (float64, error) {
	n := 0
	for _, w := range st.Words {
		lw := strings.ToLower(strings.Trim(w, ".,;:()!?\"'"))
		for _, v := range actionVerbs {
			if lw == v {
				n++
				break
			}
		}
	}
	return clamp01(0.3 * float64(n)), nil
}

func scoreQuantification(_ ContentType, _ string, st *TextStats) (float64, error) {
	return clamp01(0.3 * float64(st.NumericTerms)), nil
}

func scoreRelevance(ct ContentType, _ string, st *TextStats) (float64, error) {
	score := 0.5
	for _, kw := range typeKeywords[ct] {
		if strings.Contains(st.Lower, kw) {
			score += 0.1
		}
	}
	return clamp01(score), nil
}

func scoreCompleteness(_ ContentType, _ string, st *TextStats) (float64, error) {
	score := math.Min(0.6, float64(st.WordCount)/50.0)
	score += math.Min(0.4, 0.1*float64(st.SentenceCount))
	return clamp01(score), nil
}

func scoreNovelty(_ ContentType, _ string, st *TextStats) (float64, error) {
	return clamp01(1.0 - 0.4*float64(countGenericPhrases(st.Lower))), nil
}

// scoreClarity rewards a readable average sentence length. The sweet spot is
// 5 to 25 words per sentence.
func scoreClarity(_ ContentType, _ string, st *TextStats) (float64, error) {
	if st.SentenceCount == 0 || st.WordCount == 0 {
		return 0.3, nil
	}
	avg := float64(st.WordCount) / float64(st.SentenceCount)
	switch {
	case avg >= 5 && avg <= 25:
		return 0.9, nil
	case avg >= 3 && avg <= 35:
		return 0.6, nil
	default:
		return 0.3, nil
	}
}

func defaultScorers() map[Dimension]Scorer {
	return map[Dimension]Scorer{
		DimSpecificity:    scoreSpecificity,
		DimActionability:  scoreActionability,
		DimQuantification: scoreQuantification,
		DimRelevance:      scoreRelevance,
		DimCompleteness:   scoreCompleteness,
		DimNovelty:        scoreNovelty,
		DimClarity:        scoreClarity,
	}
}

// Weights maps each dimension to its contribution for a content type. The
// values for a type sum to 1.
type Weights map[Dimension]float64

func defaultWeights() map[ContentType]Weights {
	equal := Weights{}
	for _, d := range Dimensions {
		equal[d] = 1.0 / float64(len(Dimensions))
	}
	return map[ContentType]Weights{
		ContentTypeGeneral: equal,
		ContentTypeOptimization: {
			DimSpecificity: 0.20, DimActionability: 0.20, DimQuantification: 0.20,
			DimRelevance: 0.15, DimCompleteness: 0.10, DimNovelty: 0.05, DimClarity: 0.10,
		},
		ContentTypeDataAnalysis: {
			DimQuantification: 0.25, DimSpecificity: 0.20, DimCompleteness: 0.15,
			DimRelevance: 0.15, DimClarity: 0.10, DimActionability: 0.10, DimNovelty: 0.05,
		},
		ContentTypeActionPlan: {
			DimActionability: 0.30, DimSpecificity: 0.20, DimCompleteness: 0.15,
			DimClarity: 0.15, DimRelevance: 0.10, DimQuantification: 0.05, DimNovelty: 0.05,
		},
		ContentTypeReport: {
			DimCompleteness: 0.25, DimClarity: 0.20, DimRelevance: 0.15,
			DimSpecificity: 0.15, DimQuantification: 0.10, DimActionability: 0.10, DimNovelty: 0.05,
		},
		ContentTypeTriage: {
			DimRelevance: 0.25, DimClarity: 0.20, DimActionability: 0.20,
			DimSpecificity: 0.15, DimCompleteness: 0.10, DimQuantification: 0.05, DimNovelty: 0.05,
		},
		ContentTypeErrorMessage: {
			DimClarity: 0.30, DimActionability: 0.25, DimSpecificity: 0.20,
			DimRelevance: 0.10, DimCompleteness: 0.05, DimQuantification: 0.05, DimNovelty: 0.05,
		},
	}
}

// scoreContent runs every dimension scorer, applies penalties and fills a
// complete Metrics record. A panicking or failing scorer marks the whole
// validation as failed rather than aborting the run.
func scoreContent(ct ContentType, content string, scorers map[Dimension]Scorer, weights Weights) (m Metrics, scoreErr error) {
	st := AnalyzeText(content)
	m.WordCount = st.WordCount
	m.SentenceCount = st.SentenceCount
	m.NumericTermCount = st.NumericTerms
	m.GenericPhraseCount = countGenericPhrases(st.Lower)
	m.HallucinationRisk = hallucinationRisk(st.Lower)
	m.RedundancyRatio = redundancyRatio(st)
	m.CircularReasoning = circularReasoning(st)

	for _, d := range Dimensions {
		v, err := runScorer(scorers[d], ct, content, st)
		if err != nil {
			return m, &core.ValidationComputationError{Dimension: string(d), Err: err}
		}
		m.setDimension(d, clamp01(v))
	}

	overall := 0.0
	for _, d := range Dimensions {
		overall += weights[d] * m.dimension(d)
	}
	overall -= math.Min(0.3, 0.1*float64(m.GenericPhraseCount))
	overall -= 0.2 * m.HallucinationRisk
	overall -= 0.2 * m.RedundancyRatio
	if m.CircularReasoning {
		overall -= 0.15
	}
	m.OverallScore = clamp01(overall)
	m.QualityLevel = LevelForScore(m.OverallScore)
	return m, nil
}

func runScorer(s Scorer, ct ContentType, content string, st *TextStats) (v float64, err error) {
	if s == nil {
		return 0, fmt.Errorf("no scorer registered")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scorer panic: %v", r)
		}
	}()
	return s(ct, content, st)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
