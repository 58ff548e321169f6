// Package quality implements the quality gate engine: multi-dimensional
// heuristic scoring of agent output, quality level classification, result
// caching, bounded validation history with statistics, and retry guidance
// for the supervisor's improvement loop.
package quality

// ContentType selects the dimension weighting used when scoring a piece of
// content. Each stage of the pipeline validates with its own type.
type ContentType string

const (
	// ContentTypeOptimization scores optimization recommendations.
	ContentTypeOptimization ContentType = "OPTIMIZATION"
	// ContentTypeDataAnalysis scores analytical summaries.
	ContentTypeDataAnalysis ContentType = "DATA_ANALYSIS"
	// ContentTypeActionPlan scores step-by-step plans.
	ContentTypeActionPlan ContentType = "ACTION_PLAN"
	// ContentTypeReport scores rendered reports.
	ContentTypeReport ContentType = "REPORT"
	// ContentTypeTriage scores request classifications.
	ContentTypeTriage ContentType = "TRIAGE"
	// ContentTypeErrorMessage scores user-facing error explanations.
	ContentTypeErrorMessage ContentType = "ERROR_MESSAGE"
	// ContentTypeGeneral is the fallback weighting.
	ContentTypeGeneral ContentType = "GENERAL"
)

// Level discretizes an overall score into a quality bucket.
type Level string

const (
	// LevelExcellent is an overall score of at least 0.9.
	LevelExcellent Level = "EXCELLENT"
	// LevelGood is an overall score of at least 0.7.
	LevelGood Level = "GOOD"
	// LevelAcceptable is an overall score of at least 0.5.
	LevelAcceptable Level = "ACCEPTABLE"
	// LevelPoor is an overall score of at least 0.3.
	LevelPoor Level = "POOR"
	// LevelUnacceptable is everything below 0.3.
	LevelUnacceptable Level = "UNACCEPTABLE"
)

// LevelForScore maps a continuous score to its quality level.
func LevelForScore(score float64) Level {
	switch {
	case score >= 0.9:
		return LevelExcellent
	case score >= 0.7:
		return LevelGood
	case score >= 0.5:
		return LevelAcceptable
	case score >= 0.3:
		return LevelPoor
	default:
		return LevelUnacceptable
	}
}

// Dimension names one of the seven scored quality dimensions.
type Dimension string

const (
	// DimSpecificity measures how concrete the content is.
	DimSpecificity Dimension = "specificity"
	// DimActionability measures whether the content states concrete actions.
	DimActionability Dimension = "actionability"
	// DimQuantification measures the density of quantified evidence.
	DimQuantification Dimension = "quantification"
	// DimRelevance measures topical fit for the content type.
	DimRelevance Dimension = "relevance"
	// DimCompleteness measures coverage relative to expected length.
	DimCompleteness Dimension = "completeness"
	// DimNovelty penalizes generic filler phrasing.
	DimNovelty Dimension = "novelty"
	// DimClarity measures readability of the sentence structure.
	DimClarity Dimension = "clarity"
)

// Dimensions lists all scored dimensions in a stable order.
var Dimensions = []Dimension{
	DimSpecificity,
	DimActionability,
	DimQuantification,
	DimRelevance,
	DimCompleteness,
	DimNovelty,
	DimClarity,
}

// Metrics is the full scoring record for one piece of content. Computed
// fresh per cold validation and cached by content hash afterwards.
type Metrics struct {
	Specificity    float64 `json:"specificity"`
	Actionability  float64 `json:"actionability"`
	Quantification float64 `json:"quantification"`
	Relevance      float64 `json:"relevance"`
	Completeness   float64 `json:"completeness"`
	Novelty        float64 `json:"novelty"`
	Clarity        float64 `json:"clarity"`

	GenericPhraseCount int     `json:"generic_phrase_count"`
	CircularReasoning  bool    `json:"circular_reasoning"`
	HallucinationRisk  float64 `json:"hallucination_risk"`
	RedundancyRatio    float64 `json:"redundancy_ratio"`

	WordCount        int `json:"word_count"`
	SentenceCount    int `json:"sentence_count"`
	NumericTermCount int `json:"numeric_term_count"`

	OverallScore float64 `json:"overall_score"`
	QualityLevel Level   `json:"quality_level"`

	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// dimension returns the stored sub-score for a dimension.
func (m Metrics) dimension(d Dimension) float64 {
	switch d {
	case DimSpecificity:
		return m.Specificity
	case DimActionability:
		return m.Actionability
	case DimQuantification:
		return m.Quantification
	case DimRelevance:
		return m.Relevance
	case DimCompleteness:
		return m.Completeness
	case DimNovelty:
		return m.Novelty
	case DimClarity:
		return m.Clarity
	default:
		return 0
	}
}

func (m *Metrics) setDimension(d Dimension, v float64) {
	switch d {
	case DimSpecificity:
		m.Specificity = v
	case DimActionability:
		m.Actionability = v
	case DimQuantification:
		m.Quantification = v
	case DimRelevance:
		m.Relevance = v
	case DimCompleteness:
		m.Completeness = v
	case DimNovelty:
		m.Novelty = v
	case DimClarity:
		m.Clarity = v
	}
}

// ValidationResult is the quality gate verdict handed back to the supervisor.
type ValidationResult struct {
	Passed           bool     `json:"passed"`
	Metrics          Metrics  `json:"metrics"`
	RetrySuggested   bool     `json:"retry_suggested"`
	RetryAdjustments []string `json:"retry_prompt_adjustments,omitempty"`
	Fallback         string   `json:"fallback_response,omitempty"`
}

// Stats summarizes recent validation history for a content type.
type Stats struct {
	Count    int           `json:"count"`
	MinScore float64       `json:"min_score"`
	MaxScore float64       `json:"max_score"`
	Levels   map[Level]int `json:"levels"`
}
