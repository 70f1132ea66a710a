package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/brandpulse/brandpulse/internal/models"
)

// stubDelegate returns a canned classification or error and records calls.
type stubDelegate struct {
	classification *Classification
	err            error
	calls          int
}

func (s *stubDelegate) Classify(ctx context.Context, text string, registry *Registry) (*Classification, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.classification, nil
}

func TestExtractRegexMode(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, []string{"Globex"})
	e := NewExtractor(nil, zerolog.Nop())

	result, err := e.Extract(context.Background(), "1. Acme\n2. Globex\n", r, Options{Mode: ModeRegex})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Method != models.MethodRegex {
		t.Errorf("Method = %q", result.Method)
	}
	if len(result.Mentions) != 2 {
		t.Fatalf("got %d mentions", len(result.Mentions))
	}
	if result.Mentions[0].RankPosition == nil || *result.Mentions[0].RankPosition != 1 {
		t.Errorf("first mention rank = %v", result.Mentions[0].RankPosition)
	}
}

func TestExtractInvalidInputs(t *testing.T) {
	e := NewExtractor(nil, zerolog.Nop())
	r := mustRegistry(t, []string{"Acme"}, nil)

	var cfgErr *ConfigurationError

	_, err := e.Extract(context.Background(), "text", nil, Options{Mode: ModeRegex})
	if !errors.As(err, &cfgErr) {
		t.Errorf("nil registry: got %v", err)
	}

	_, err = e.Extract(context.Background(), "text", r, Options{Mode: "magic"})
	if !errors.As(err, &cfgErr) {
		t.Errorf("unknown mode: got %v", err)
	}

	_, err = e.Extract(context.Background(), "text", r, Options{Mode: ModeRegex, MinConfidence: 1.5})
	if !errors.As(err, &cfgErr) {
		t.Errorf("bad confidence: got %v", err)
	}
}

func TestExtractLLMModeMissingDelegate(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	e := NewExtractor(nil, zerolog.Nop())

	_, err := e.Extract(context.Background(), "Acme is fine.", r, Options{Mode: ModeLLM})
	var depErr *ExtractionDependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected ExtractionDependencyError, got %v", err)
	}
	if depErr.Err != nil {
		t.Errorf("missing delegate should have no wrapped error, got %v", depErr.Err)
	}
}

func TestExtractLLMMode(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, []string{"Globex"})
	delegate := &stubDelegate{classification: &Classification{
		Mentions: []ClassifiedMention{
			{Name: "Acme", Rank: 1, Sentiment: "positive", MentionContext: "primary_recommendation", Confidence: 0.95},
			{Name: "Globex", Rank: 0, Confidence: 0.9},
			{Name: "Initech", Rank: 2, Confidence: 0.99}, // not in registry
			{Name: "Acme", Rank: 3, Confidence: 0.8},     // duplicate, higher rank
			{Name: "Globex", Rank: 2, Confidence: 0.3},   // below threshold
		},
		Confidence:   0.9,
		InputTokens:  100,
		OutputTokens: 50,
		CostUSD:      0.002,
	}}
	e := NewExtractor(delegate, zerolog.Nop())

	result, err := e.Extract(context.Background(), "whatever", r, Options{Mode: ModeLLM})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Method != models.MethodLLM {
		t.Errorf("Method = %q", result.Method)
	}
	if len(result.Mentions) != 2 {
		t.Fatalf("got %d mentions, want 2", len(result.Mentions))
	}

	acme := result.Mentions[0]
	if acme.NormalizedName != "acme" || acme.RankPosition == nil || *acme.RankPosition != 1 {
		t.Errorf("acme = %+v", acme)
	}
	if acme.Sentiment == nil || *acme.Sentiment != models.SentimentPositive {
		t.Errorf("acme sentiment = %v", acme.Sentiment)
	}

	globex := result.Mentions[1]
	if globex.RankPosition != nil {
		t.Errorf("globex rank = %d, want unranked", *globex.RankPosition)
	}

	if result.Confidence == nil || *result.Confidence != 0.9 {
		t.Errorf("Confidence = %v", result.Confidence)
	}
	if result.CostUSD != 0.002 {
		t.Errorf("CostUSD = %v", result.CostUSD)
	}
}

func TestExtractLLMModeMalformed(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	tests := []struct {
		name           string
		classification *Classification
	}{
		{"confidence out of range", &Classification{Confidence: 1.2}},
		{"missing name", &Classification{Mentions: []ClassifiedMention{{Name: "", Confidence: 0.9}}}},
		{"negative rank", &Classification{Mentions: []ClassifiedMention{{Name: "Acme", Rank: -1, Confidence: 0.9}}}},
		{"unknown sentiment", &Classification{Mentions: []ClassifiedMention{{Name: "Acme", Sentiment: "ecstatic", Confidence: 0.9}}}},
		{"unknown context", &Classification{Mentions: []ClassifiedMention{{Name: "Acme", MentionContext: "sidebar", Confidence: 0.9}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(&stubDelegate{classification: tt.classification}, zerolog.Nop())
			_, err := e.Extract(context.Background(), "Acme", r, Options{Mode: ModeLLM})
			var malformed *MalformedResponseError
			if !errors.As(err, &malformed) {
				t.Errorf("got %v, want MalformedResponseError", err)
			}
		})
	}
}

func TestExtractHybridNoFallbackWhenRanked(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	delegate := &stubDelegate{err: errors.New("should not be called")}
	e := NewExtractor(delegate, zerolog.Nop())

	result, err := e.Extract(context.Background(), "1. Acme\n", r, Options{Mode: ModeHybrid})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Method != models.MethodHybridRegex {
		t.Errorf("Method = %q", result.Method)
	}
	if delegate.calls != 0 {
		t.Errorf("delegate called %d times with a ranked regex result", delegate.calls)
	}
}

func TestExtractHybridNoFallbackOnEmptyNonRanking(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	delegate := &stubDelegate{err: errors.New("should not be called")}
	e := NewExtractor(delegate, zerolog.Nop())

	result, err := e.Extract(context.Background(), "No brands here.", r, Options{Mode: ModeHybrid})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Mentions) != 0 || delegate.calls != 0 {
		t.Errorf("mentions = %d, delegate calls = %d", len(result.Mentions), delegate.calls)
	}
}

func TestExtractHybridFallbackOnUnrankedMentions(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	delegate := &stubDelegate{classification: &Classification{
		Mentions:   []ClassifiedMention{{Name: "Acme", Rank: 1, Confidence: 0.9}},
		Confidence: 0.85,
	}}
	e := NewExtractor(delegate, zerolog.Nop())

	// Prose mention, no list: regex finds Acme unranked, hybrid falls back.
	result, err := e.Extract(context.Background(), "Acme is the usual answer.", r, Options{Mode: ModeHybrid})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if delegate.calls != 1 {
		t.Fatalf("delegate calls = %d, want 1", delegate.calls)
	}
	if result.Method != models.MethodHybridLLMFallback {
		t.Errorf("Method = %q", result.Method)
	}
	if result.Mentions[0].RankPosition == nil || *result.Mentions[0].RankPosition != 1 {
		t.Errorf("rank = %v", result.Mentions[0].RankPosition)
	}
}

func TestExtractHybridFallbackOnEmptyRankingFocused(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	delegate := &stubDelegate{classification: &Classification{
		Mentions:   []ClassifiedMention{{Name: "Acme", Rank: 2, Confidence: 0.9}},
		Confidence: 0.8,
	}}
	e := NewExtractor(delegate, zerolog.Nop())

	// The text refers to the brand in a way the pattern pass cannot see.
	result, err := e.Extract(context.Background(), "The market leader beats everything else.", r,
		Options{Mode: ModeHybrid, RankingFocused: true})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if delegate.calls != 1 {
		t.Fatalf("delegate calls = %d, want 1", delegate.calls)
	}
	if result.Method != models.MethodHybridLLMFallback || len(result.Mentions) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestExtractHybridDegradesOnDelegateFailure(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	delegate := &stubDelegate{err: errors.New("upstream timeout")}
	e := NewExtractor(delegate, zerolog.Nop())

	result, err := e.Extract(context.Background(), "Acme is the usual answer.", r, Options{Mode: ModeHybrid})
	if err != nil {
		t.Fatalf("expected degraded result, got error %v", err)
	}
	if result.Method != models.MethodHybridRegex {
		t.Errorf("Method = %q, want hybrid_regex", result.Method)
	}
	if result.Warning == "" {
		t.Error("degraded result missing warning")
	}
	if len(result.Mentions) != 1 {
		t.Errorf("mentions = %d, want regex partial result", len(result.Mentions))
	}
}

func TestExtractHybridRaisesOnEmptyRegexAndFailedDelegate(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	delegate := &stubDelegate{err: errors.New("upstream timeout")}
	e := NewExtractor(delegate, zerolog.Nop())

	_, err := e.Extract(context.Background(), "Nothing matched here.", r,
		Options{Mode: ModeHybrid, RankingFocused: true})
	var depErr *ExtractionDependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("got %v, want ExtractionDependencyError", err)
	}
}

func TestExtractHybridMissingDelegateAlwaysRaises(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	e := NewExtractor(nil, zerolog.Nop())

	// Even with a usable regex partial result, a missing delegate is a
	// configuration problem.
	_, err := e.Extract(context.Background(), "Acme is the usual answer.", r, Options{Mode: ModeHybrid})
	var depErr *ExtractionDependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("got %v, want ExtractionDependencyError", err)
	}
	if depErr.Err != nil {
		t.Errorf("missing delegate should have no wrapped error, got %v", depErr.Err)
	}
}
