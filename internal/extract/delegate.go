// internal/extract/delegate.go
package extract

import (
	"context"
	"fmt"

	"github.com/brandpulse/brandpulse/internal/models"
)

// Delegate is the external LLM classifier used by the llm and hybrid modes.
// Implementations call a model with a structured-output contract and return
// the classified mentions; the extraction core validates the payload before
// any of it reaches the data model.
type Delegate interface {
	Classify(ctx context.Context, text string, registry *Registry) (*Classification, error)
}

// Classification is the raw, not-yet-validated delegate result.
type Classification struct {
	Mentions     []ClassifiedMention
	Confidence   float64
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// ClassifiedMention is one brand mention as reported by the delegate.
// Rank 0 means unranked.
type ClassifiedMention struct {
	Name           string
	Rank           int
	ContextSnippet string
	Sentiment      string
	MentionContext string
	Confidence     float64
}

// validateClassification checks the delegate payload against the mention
// schema and converts it into registry-resolved Mentions, keeping only
// brands present in the registry and mentions at or above minConfidence.
// Repeated names collapse to one Mention with the lowest reported rank.
func validateClassification(c *Classification, registry *Registry, minConfidence float64) ([]*models.Mention, error) {
	if c == nil {
		return nil, &MalformedResponseError{Reason: "nil classification"}
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("confidence %v outside [0,1]", c.Confidence)}
	}

	byKey := make(map[string]*models.Mention)
	var ordered []*models.Mention

	for i, cm := range c.Mentions {
		if cm.Name == "" {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("mention %d missing name", i)}
		}
		if cm.Rank < 0 {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("mention %q has negative rank %d", cm.Name, cm.Rank)}
		}
		if cm.Confidence < 0 || cm.Confidence > 1 {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("mention %q confidence %v outside [0,1]", cm.Name, cm.Confidence)}
		}
		if cm.Sentiment != "" && !models.ValidSentiment(models.Sentiment(cm.Sentiment)) {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("mention %q has unknown sentiment %q", cm.Name, cm.Sentiment)}
		}
		if cm.MentionContext != "" && !models.ValidMentionContext(models.MentionContext(cm.MentionContext)) {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("mention %q has unknown mention_context %q", cm.Name, cm.MentionContext)}
		}

		if cm.Confidence < minConfidence {
			continue // discarded, not flagged
		}

		normalized, isMine, ok := registry.Lookup(cm.Name)
		if !ok {
			// Brands outside the registry are discovery material, not
			// mentions; the discovery service handles those separately.
			continue
		}

		m, seen := byKey[normalized]
		if !seen {
			m = &models.Mention{
				BrandName:      cm.Name,
				NormalizedName: normalized,
				IsMine:         isMine,
				ContextSnippet: cm.ContextSnippet,
			}
			byKey[normalized] = m
			ordered = append(ordered, m)
		}
		if cm.Rank > 0 && (m.RankPosition == nil || cm.Rank < *m.RankPosition) {
			rank := cm.Rank
			m.RankPosition = &rank
		}
		if cm.Sentiment != "" && m.Sentiment == nil {
			s := models.Sentiment(cm.Sentiment)
			m.Sentiment = &s
		}
		if cm.MentionContext != "" && m.MentionContext == nil {
			mc := models.MentionContext(cm.MentionContext)
			m.MentionContext = &mc
		}
	}

	return ordered, nil
}
