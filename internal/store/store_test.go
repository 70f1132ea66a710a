package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse/brandpulse/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", ":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(v int) *int { return &v }

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mongodb", "whatever", zerolog.Nop())
	assert.Error(t, err)
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	runID := uuid.New()
	started := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.CreateRun(ctx, runID, started))

	require.NoError(t, s.FinishRun(ctx, &Run{
		RunID:         runID,
		TotalAnswers:  4,
		FailedAnswers: 1,
		TotalMentions: 9,
		TotalCostUSD:  0.042,
	}))

	run, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, runID, run.RunID)
	assert.Equal(t, 4, run.TotalAnswers)
	assert.Equal(t, 1, run.FailedAnswers)
	assert.Equal(t, 9, run.TotalMentions)
	assert.InDelta(t, 0.042, run.TotalCostUSD, 1e-9)
	assert.NotNil(t, run.FinishedAt)
}

func TestLatestRunID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	older := uuid.New()
	newer := uuid.New()
	require.NoError(t, s.CreateRun(ctx, older, time.Now().UTC().Add(-time.Hour)))
	require.NoError(t, s.CreateRun(ctx, newer, time.Now().UTC()))

	got, err := s.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer, got)
}

func insertAnswers(t *testing.T, s *Store, runID uuid.UUID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.InsertAnswer(context.Background(), &Answer{
			AnswerID:         uuid.New(),
			RunID:            runID,
			IntentID:         "best-crm",
			ModelProvider:    "openai",
			ModelName:        "gpt-4o-mini",
			AnswerText:       "1. Acme\n2. Globex\n",
			InputTokens:      10,
			OutputTokens:     20,
			CostUSD:          0.001,
			ExtractionMethod: "hybrid_regex",
			CreatedAt:        time.Now().UTC(),
		}))
	}
}

func TestMentionUniqueness(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	runID := uuid.New()
	require.NoError(t, s.CreateRun(ctx, runID, time.Now().UTC()))

	mention := &models.Mention{
		BrandName:      "Acme",
		NormalizedName: "acme",
		IsMine:         true,
		RankPosition:   intPtr(1),
	}
	require.NoError(t, s.InsertMentions(ctx, runID, "best-crm", "openai", "gpt-4o-mini", []*models.Mention{mention}))

	// Same key again violates the uniqueness constraint.
	err := s.InsertMentions(ctx, runID, "best-crm", "openai", "gpt-4o-mini", []*models.Mention{mention})
	assert.Error(t, err)

	// A different model for the same run and intent is a distinct row.
	require.NoError(t, s.InsertMentions(ctx, runID, "best-crm", "openai", "gpt-4o", []*models.Mention{mention}))
}

func TestInsertMentionsRollsBackAsOne(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	runID := uuid.New()
	require.NoError(t, s.CreateRun(ctx, runID, time.Now().UTC()))

	good := &models.Mention{BrandName: "Acme", NormalizedName: "acme", IsMine: true}
	dup := &models.Mention{BrandName: "acme", NormalizedName: "acme", IsMine: true}

	err := s.InsertMentions(ctx, runID, "best-crm", "openai", "gpt-4o-mini", []*models.Mention{good, dup})
	require.Error(t, err)

	// The failed batch left no rows behind.
	stats, err := s.BrandStats(ctx, runID)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestBrandStats(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	runID := uuid.New()
	require.NoError(t, s.CreateRun(ctx, runID, time.Now().UTC()))
	insertAnswers(t, s, runID, 2)

	sentiment := models.SentimentPositive
	acme := &models.Mention{BrandName: "Acme", NormalizedName: "acme", IsMine: true, RankPosition: intPtr(1), Sentiment: &sentiment}
	globex := &models.Mention{BrandName: "Globex", NormalizedName: "globex", RankPosition: intPtr(3)}
	require.NoError(t, s.InsertMentions(ctx, runID, "best-crm", "openai", "gpt-4o-mini", []*models.Mention{acme, globex}))

	acme2 := &models.Mention{BrandName: "Acme", NormalizedName: "acme", IsMine: true, RankPosition: intPtr(2)}
	require.NoError(t, s.InsertMentions(ctx, runID, "best-crm", "anthropic", "claude-3-5-haiku-20241022", []*models.Mention{acme2}))

	stats, err := s.BrandStats(ctx, runID)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "acme", stats[0].Brand)
	assert.True(t, stats[0].IsMine)
	assert.Equal(t, 2, stats[0].Mentions)
	require.NotNil(t, stats[0].AvgRank)
	assert.InDelta(t, 1.5, *stats[0].AvgRank, 1e-9)
	assert.Equal(t, 1, stats[0].TopRankCount)

	assert.Equal(t, "globex", stats[1].Brand)
	assert.Equal(t, 1, stats[1].Mentions)

	n, err := s.CountAnswers(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCandidates(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	runID := uuid.New()
	require.NoError(t, s.CreateRun(ctx, runID, time.Now().UTC()))

	candidates := []*models.BrandCandidate{
		{
			CandidateID:    uuid.New(),
			RunID:          runID,
			Name:           "Initech",
			NormalizedName: "initech",
			Confidence:     0.7,
			SourceModel:    "openai/gpt-4o-mini",
			CreatedAt:      time.Now().UTC(),
		},
		{
			CandidateID:    uuid.New(),
			RunID:          runID,
			Name:           "Umbrella",
			NormalizedName: "umbrella",
			Confidence:     0.95,
			SourceModel:    "openai/gpt-4o-mini",
			ContextSnippet: "Umbrella is gaining ground",
			CreatedAt:      time.Now().UTC(),
		},
	}
	require.NoError(t, s.InsertCandidates(ctx, candidates))

	got, err := s.ListCandidates(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Highest confidence first.
	assert.Equal(t, "Umbrella", got[0].Name)
	assert.Equal(t, "Initech", got[1].Name)
}

func TestAnswerWarnings(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	runID := uuid.New()
	require.NoError(t, s.CreateRun(ctx, runID, time.Now().UTC()))

	require.NoError(t, s.InsertAnswer(ctx, &Answer{
		AnswerID: uuid.New(), RunID: runID, IntentID: "a",
		ModelProvider: "openai", ModelName: "gpt-4o-mini",
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, s.InsertAnswer(ctx, &Answer{
		AnswerID: uuid.New(), RunID: runID, IntentID: "b",
		ModelProvider: "openai", ModelName: "gpt-4o-mini",
		ExtractionWarning: "llm fallback failed, ranking may be incomplete",
		CreatedAt:         time.Now().UTC(),
	}))

	warnings, err := s.AnswerWarnings(ctx, runID)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "ranking may be incomplete")
}
