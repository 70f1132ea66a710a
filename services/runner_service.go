// services/runner_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/brandpulse/brandpulse/internal/extract"
	"github.com/brandpulse/brandpulse/internal/models"
	"github.com/brandpulse/brandpulse/internal/store"
)

// runnerService drives a run sequentially: for each intent, for each model,
// ask the question, extract mentions, persist. A provider failure costs one
// answer, never the run.
type runnerService struct {
	store     *store.Store
	extractor *extract.Extractor
	registry  *extract.Registry
	opts      extract.Options
	discovery DiscoveryService
	limiter   *rate.Limiter
	budgetUSD float64
	log       zerolog.Logger
}

// RunnerParams collects the runner's collaborators.
type RunnerParams struct {
	Store     *store.Store
	Extractor *extract.Extractor
	Registry  *extract.Registry
	Options   extract.Options
	Discovery DiscoveryService // optional
	// RatePerSecond throttles provider calls across all models. Zero
	// disables throttling.
	RatePerSecond float64
	// BudgetUSD stops the run once cumulative cost crosses it. Zero means
	// no ceiling.
	BudgetUSD float64
	Log       zerolog.Logger
}

// NewRunnerService wires a runner.
func NewRunnerService(p RunnerParams) RunnerService {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if p.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(p.RatePerSecond), 1)
	}
	return &runnerService{
		store:     p.Store,
		extractor: p.Extractor,
		registry:  p.Registry,
		opts:      p.Options,
		discovery: p.Discovery,
		limiter:   limiter,
		budgetUSD: p.BudgetUSD,
		log:       p.Log,
	}
}

func (r *runnerService) Run(ctx context.Context, intents []models.Intent, providers []AIProvider) (*RunSummary, error) {
	if len(intents) == 0 {
		return nil, fmt.Errorf("no intents configured")
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	runID := uuid.New()
	startedAt := time.Now().UTC()
	if err := r.store.CreateRun(ctx, runID, startedAt); err != nil {
		return nil, err
	}

	summary := &RunSummary{RunID: runID}
	r.log.Info().Str("run_id", runID.String()).Int("intents", len(intents)).Int("models", len(providers)).Msg("run started")

loop:
	for _, intent := range intents {
		for _, provider := range providers {
			if r.budgetUSD > 0 && summary.TotalCostUSD >= r.budgetUSD {
				summary.BudgetExceeded = true
				r.log.Warn().Float64("budget_usd", r.budgetUSD).Float64("spent_usd", summary.TotalCostUSD).Msg("budget ceiling reached, stopping run")
				break loop
			}
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("run cancelled: %w", err)
			}

			if err := r.runOne(ctx, runID, intent, provider, summary); err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("run cancelled: %w", ctx.Err())
				}
				summary.FailedAnswers++
				r.log.Error().Err(err).
					Str("intent_id", intent.ID).
					Str("provider", provider.ProviderName()).
					Str("model", provider.ModelName()).
					Msg("answer failed")
			}
		}
	}

	run := &store.Run{
		RunID:          runID,
		StartedAt:      startedAt,
		TotalAnswers:   summary.TotalAnswers,
		FailedAnswers:  summary.FailedAnswers,
		TotalMentions:  summary.TotalMentions,
		TotalCostUSD:   summary.TotalCostUSD,
		BudgetExceeded: summary.BudgetExceeded,
	}
	if err := r.store.FinishRun(ctx, run); err != nil {
		return nil, err
	}

	r.log.Info().
		Str("run_id", runID.String()).
		Int("answers", summary.TotalAnswers).
		Int("failed", summary.FailedAnswers).
		Int("mentions", summary.TotalMentions).
		Float64("cost_usd", summary.TotalCostUSD).
		Msg("run finished")
	return summary, nil
}

func (r *runnerService) runOne(ctx context.Context, runID uuid.UUID, intent models.Intent, provider AIProvider, summary *RunSummary) error {
	answer, err := provider.GenerateAnswer(ctx, intent.Prompt)
	if err != nil {
		return fmt.Errorf("provider call failed: %w", err)
	}
	summary.TotalCostUSD += answer.CostUSD

	opts := r.opts
	opts.RankingFocused = intent.RankingFocused
	result, err := r.extractor.Extract(ctx, answer.AnswerText, r.registry, opts)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	summary.TotalCostUSD += result.CostUSD

	row := &store.Answer{
		AnswerID:          uuid.New(),
		RunID:             runID,
		IntentID:          intent.ID,
		ModelProvider:     provider.ProviderName(),
		ModelName:         provider.ModelName(),
		AnswerText:        answer.AnswerText,
		InputTokens:       answer.InputTokens,
		OutputTokens:      answer.OutputTokens,
		CostUSD:           answer.CostUSD + result.CostUSD,
		ExtractionMethod:  string(result.Method),
		ExtractionWarning: result.Warning,
		CreatedAt:         time.Now().UTC(),
	}
	if err := r.store.InsertAnswer(ctx, row); err != nil {
		return err
	}
	if err := r.store.InsertMentions(ctx, runID, intent.ID, provider.ProviderName(), provider.ModelName(), result.Mentions); err != nil {
		return err
	}
	summary.TotalAnswers++
	summary.TotalMentions += len(result.Mentions)

	if r.discovery != nil {
		candidates, err := r.discovery.Discover(ctx, runID, answer, provider.ProviderName(), provider.ModelName())
		if err != nil {
			// Discovery is a side product; log and move on.
			r.log.Warn().Err(err).Str("intent_id", intent.ID).Msg("competitor discovery failed")
		} else if err := r.store.InsertCandidates(ctx, candidates); err != nil {
			return err
		}
	}
	return nil
}
