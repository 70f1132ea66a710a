// internal/extract/extractor.go
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/brandpulse/brandpulse/internal/models"
)

// Mode selects the extraction strategy.
type Mode string

const (
	ModeRegex  Mode = "regex"
	ModeLLM    Mode = "llm"
	ModeHybrid Mode = "hybrid"
)

// DefaultMinConfidence is applied when Options.MinConfidence is zero.
const DefaultMinConfidence = 0.7

// Options control a single extraction call.
type Options struct {
	Mode Mode
	// RankingFocused marks the intent as one where rank order is the point
	// of the question. It is the only heuristic that triggers the hybrid
	// LLM fallback on a zero-mention regex pass; it is supplied by the
	// caller, never inferred here.
	RankingFocused bool
	// MinConfidence discards LLM-classified mentions below this value.
	// Zero means DefaultMinConfidence.
	MinConfidence float64
}

// Extractor runs the configured strategy over one answer text. It holds no
// state between calls; every invocation is independent and safe to run
// concurrently as long as the registry stays read-only.
type Extractor struct {
	delegate Delegate
	log      zerolog.Logger
}

// NewExtractor builds an extractor. The delegate may be nil, in which case
// only regex mode (and hybrid runs that never fall back) can succeed.
func NewExtractor(delegate Delegate, log zerolog.Logger) *Extractor {
	return &Extractor{delegate: delegate, log: log}
}

// Extract runs mention detection and rank assignment over text according to
// opts. It returns a populated (possibly empty) result or a typed error; it
// never substitutes defaults for a failed LLM classification.
func (e *Extractor) Extract(ctx context.Context, text string, registry *Registry, opts Options) (*models.ExtractionResult, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, &ConfigurationError{Field: "registry", Reason: "no brands configured"}
	}
	minConfidence := opts.MinConfidence
	if minConfidence == 0 {
		minConfidence = DefaultMinConfidence
	}
	if minConfidence < 0 || minConfidence > 1 {
		return nil, &ConfigurationError{Field: "min_confidence", Reason: fmt.Sprintf("%v outside [0,1]", minConfidence)}
	}

	switch opts.Mode {
	case ModeRegex:
		result := e.regexPass(text, registry)
		result.Method = models.MethodRegex
		return result, nil

	case ModeLLM:
		result, err := e.llmPass(ctx, text, registry, minConfidence)
		if err != nil {
			return nil, err
		}
		result.Method = models.MethodLLM
		return result, nil

	case ModeHybrid:
		return e.hybridPass(ctx, text, registry, opts, minConfidence)

	default:
		return nil, &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", opts.Mode)}
	}
}

func (e *Extractor) regexPass(text string, registry *Registry) *models.ExtractionResult {
	mentions := AssignRanks(text, DetectMentions(text, registry))
	return &models.ExtractionResult{Mentions: mentions}
}

func (e *Extractor) llmPass(ctx context.Context, text string, registry *Registry, minConfidence float64) (*models.ExtractionResult, error) {
	if e.delegate == nil {
		return nil, &ExtractionDependencyError{Reason: "llm extraction requested but no delegate configured"}
	}

	classification, err := e.delegate.Classify(ctx, text, registry)
	if err != nil {
		return nil, &ExtractionDependencyError{Reason: "delegate call failed", Err: err}
	}

	mentions, err := validateClassification(classification, registry, minConfidence)
	if err != nil {
		return nil, err
	}

	confidence := classification.Confidence
	return &models.ExtractionResult{
		Mentions:     mentions,
		Confidence:   &confidence,
		InputTokens:  classification.InputTokens,
		OutputTokens: classification.OutputTokens,
		CostUSD:      classification.CostUSD,
	}, nil
}

// hybridPass runs regex first and falls back to the LLM path only when
// (a) mentions exist but none are ranked (no list structure detected), or
// (b) nothing was found and the caller marked the intent ranking-focused.
// A failed fallback degrades to the regex partial result, tagged
// hybrid_regex with a warning, whenever the regex pass found anything;
// with an empty regex result the failure propagates, so callers can still
// tell a dead dependency from a genuinely brand-free answer.
func (e *Extractor) hybridPass(ctx context.Context, text string, registry *Registry, opts Options, minConfidence float64) (*models.ExtractionResult, error) {
	regexResult := e.regexPass(text, registry)
	regexResult.Method = models.MethodHybridRegex

	ranked := 0
	for _, m := range regexResult.Mentions {
		if m.RankPosition != nil {
			ranked++
		}
	}

	noListWithMentions := ranked == 0 && len(regexResult.Mentions) > 0
	emptyButRankingFocused := len(regexResult.Mentions) == 0 && opts.RankingFocused
	if !noListWithMentions && !emptyButRankingFocused {
		return regexResult, nil
	}

	llmResult, err := e.llmPass(ctx, text, registry, minConfidence)
	if err != nil {
		var depErr *ExtractionDependencyError
		if errors.As(err, &depErr) && depErr.Err == nil {
			// Missing delegate is a configuration problem, not a runtime
			// degradation: always raised.
			return nil, err
		}
		if len(regexResult.Mentions) == 0 {
			return nil, err
		}
		e.log.Warn().Err(err).Msg("llm fallback failed, returning regex partial result")
		regexResult.Warning = fmt.Sprintf("llm fallback failed, ranking may be incomplete: %v", err)
		return regexResult, nil
	}

	llmResult.Method = models.MethodHybridLLMFallback
	return llmResult, nil
}
