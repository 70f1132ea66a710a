// services/interfaces.go
package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/brandpulse/brandpulse/internal/models"
)

// AIProvider is one queryable model. Providers are pure transport: they
// return the answer text and usage, and never interpret the content.
type AIProvider interface {
	// GenerateAnswer sends a single buyer-intent prompt and returns the
	// model's answer with token usage and cost.
	GenerateAnswer(ctx context.Context, prompt string) (*models.AIAnswer, error)

	// ProviderName returns the provider slug ("openai", "anthropic", ...).
	ProviderName() string

	// ModelName returns the concrete model identifier queried.
	ModelName() string
}

// CostService converts token usage into USD for a given provider/model.
type CostService interface {
	CalculateCost(provider, model string, inputTokens, outputTokens int) float64
}

// RunnerService drives one monitoring run: every configured intent against
// every configured model, extraction on each answer, rows persisted.
type RunnerService interface {
	Run(ctx context.Context, intents []models.Intent, providers []AIProvider) (*RunSummary, error)
}

// DiscoveryService asks a model for competitor names present in an answer
// that are not already tracked in the registry.
type DiscoveryService interface {
	Discover(ctx context.Context, runID uuid.UUID, answer *models.AIAnswer, provider, model string) ([]*models.BrandCandidate, error)
}

// ReportService renders a run's aggregates.
type ReportService interface {
	BuildReport(ctx context.Context, runID uuid.UUID) (*Report, error)
	RenderText(report *Report) string
	RenderHTML(report *Report) (string, error)
}

// RunSummary is the outcome of one full monitoring run.
type RunSummary struct {
	RunID          uuid.UUID
	TotalAnswers   int
	FailedAnswers  int
	TotalMentions  int
	TotalCostUSD   float64
	BudgetExceeded bool
}

// Report is the aggregate view of one run.
type Report struct {
	Title          string
	RunID          uuid.UUID
	TotalAnswers   int
	TotalMentions  int
	TotalCostUSD   float64
	BudgetExceeded bool
	Brands         []BrandReport
	Warnings       []string
}

// BrandReport is one brand's line in the report.
type BrandReport struct {
	Brand        string
	IsMine       bool
	Mentions     int
	Visibility   float64 // share of answers mentioning the brand
	AvgRank      *float64
	TopRankShare float64 // share of mentions at rank 1
}
