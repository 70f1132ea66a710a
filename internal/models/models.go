// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Sentiment classifies the tone of the text surrounding a brand mention.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ValidSentiment reports whether s is one of the known sentiment values.
func ValidSentiment(s Sentiment) bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// MentionContext classifies how a brand appears inside an answer.
type MentionContext string

const (
	ContextPrimaryRecommendation MentionContext = "primary_recommendation"
	ContextAlternativeListing    MentionContext = "alternative_listing"
	ContextCompetitorNegative    MentionContext = "competitor_negative"
	ContextCompetitorNeutral     MentionContext = "competitor_neutral"
	ContextPassingReference      MentionContext = "passing_reference"
)

// ValidMentionContext reports whether c is one of the known context values.
func ValidMentionContext(c MentionContext) bool {
	switch c {
	case ContextPrimaryRecommendation, ContextAlternativeListing,
		ContextCompetitorNegative, ContextCompetitorNeutral, ContextPassingReference:
		return true
	}
	return false
}

// ExtractionMethod records which extraction path produced a result.
type ExtractionMethod string

const (
	MethodRegex             ExtractionMethod = "regex"
	MethodLLM               ExtractionMethod = "llm"
	MethodHybridRegex       ExtractionMethod = "hybrid_regex"
	MethodHybridLLMFallback ExtractionMethod = "hybrid_llm_fallback"
)

// Mention is one detected brand occurrence in an answer. Repeated textual
// occurrences of the same brand collapse into a single Mention; RankPosition
// is the lowest ranked occurrence, or nil if the brand was never ranked.
type Mention struct {
	BrandName      string          `json:"brand_name"`
	NormalizedName string          `json:"normalized_name"`
	IsMine         bool            `json:"is_mine"`
	RankPosition   *int            `json:"rank_position"`
	ContextSnippet string          `json:"context_snippet"`
	Sentiment      *Sentiment      `json:"sentiment,omitempty"`
	MentionContext *MentionContext `json:"mention_context,omitempty"`

	// Byte offsets of every occurrence in the source text, in document
	// order. Only populated by the pattern-based detector; the rank parser
	// consumes them and the persistence layer ignores them.
	Offsets []int `json:"-"`
}

// FirstOffset returns the byte offset of the first occurrence, or -1 when
// the mention has no positional information (LLM-classified mentions).
func (m *Mention) FirstOffset() int {
	if len(m.Offsets) == 0 {
		return -1
	}
	return m.Offsets[0]
}

// ExtractionResult is the output of one extraction call: mentions ordered by
// first appearance in the text, plus metadata about the path taken.
type ExtractionResult struct {
	Mentions   []*Mention       `json:"mentions"`
	Method     ExtractionMethod `json:"method"`
	Confidence *float64         `json:"confidence,omitempty"`
	// Warning is set when a hybrid run degraded to the regex partial result
	// after a failed LLM fallback, so downstream consumers know ranking may
	// be incomplete.
	Warning      string  `json:"warning,omitempty"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// AIAnswer is the response from one provider call for one intent.
type AIAnswer struct {
	AnswerText   string  `json:"answer_text"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Intent is one configured buyer query sent to every model in a run.
type Intent struct {
	ID             string `json:"id"`
	Prompt         string `json:"prompt"`
	RankingFocused bool   `json:"ranking_focused"`
}

// BrandCandidate is a brand discovered in an answer that is not part of the
// configured registry. Candidates are a separate data product: they are
// persisted for review and never merged into the registry automatically.
type BrandCandidate struct {
	CandidateID    uuid.UUID `json:"candidate_id" db:"candidate_id"`
	RunID          uuid.UUID `json:"run_id" db:"run_id"`
	Name           string    `json:"name" db:"name"`
	NormalizedName string    `json:"normalized_name" db:"normalized_name"`
	Confidence     float64   `json:"confidence" db:"confidence"`
	SourceModel    string    `json:"source_model" db:"source_model"`
	ContextSnippet string    `json:"context_snippet" db:"context_snippet"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
