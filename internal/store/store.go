// internal/store/store.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/brandpulse/brandpulse/internal/models"
)

// Store wraps the relational database. Queries are written with `?`
// placeholders and rebound per driver, so the same code serves the default
// sqlite file and a postgres DSN.
type Store struct {
	db  *sqlx.DB
	log zerolog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id          TEXT PRIMARY KEY,
    started_at      TIMESTAMP NOT NULL,
    finished_at     TIMESTAMP,
    total_answers   INTEGER NOT NULL DEFAULT 0,
    failed_answers  INTEGER NOT NULL DEFAULT 0,
    total_mentions  INTEGER NOT NULL DEFAULT 0,
    total_cost_usd  REAL NOT NULL DEFAULT 0,
    budget_exceeded BOOLEAN NOT NULL DEFAULT FALSE,
    notes           TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS answers (
    answer_id          TEXT PRIMARY KEY,
    run_id             TEXT NOT NULL,
    intent_id          TEXT NOT NULL,
    model_provider     TEXT NOT NULL,
    model_name         TEXT NOT NULL,
    answer_text        TEXT NOT NULL,
    input_tokens       INTEGER NOT NULL DEFAULT 0,
    output_tokens      INTEGER NOT NULL DEFAULT 0,
    cost_usd           REAL NOT NULL DEFAULT 0,
    extraction_method  TEXT NOT NULL DEFAULT '',
    extraction_warning TEXT NOT NULL DEFAULT '',
    created_at         TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS mentions (
    mention_id      TEXT PRIMARY KEY,
    run_id          TEXT NOT NULL,
    intent_id       TEXT NOT NULL,
    model_provider  TEXT NOT NULL,
    model_name      TEXT NOT NULL,
    brand           TEXT NOT NULL,
    normalized_name TEXT NOT NULL,
    is_mine         BOOLEAN NOT NULL,
    rank_position   INTEGER,
    context_snippet TEXT NOT NULL DEFAULT '',
    sentiment       TEXT,
    mention_context TEXT,
    timestamp_utc   TIMESTAMP NOT NULL,
    UNIQUE (run_id, intent_id, model_provider, model_name, normalized_name)
);

CREATE TABLE IF NOT EXISTS brand_candidates (
    candidate_id    TEXT PRIMARY KEY,
    run_id          TEXT NOT NULL,
    name            TEXT NOT NULL,
    normalized_name TEXT NOT NULL,
    confidence      REAL NOT NULL,
    source_model    TEXT NOT NULL,
    context_snippet TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mentions_run ON mentions (run_id);
CREATE INDEX IF NOT EXISTS idx_answers_run ON answers (run_id);
`

// Open connects to the store and applies the schema. Driver is "sqlite" or
// "postgres".
func Open(ctx context.Context, driver, dsn string, log zerolog.Logger) (*Store, error) {
	var driverName string
	switch driver {
	case "sqlite":
		driverName = "sqlite"
	case "postgres":
		driverName = "postgres"
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s store: %w", driver, err)
	}
	if driver == "sqlite" {
		// A file-backed sqlite store is effectively single-writer.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, log: log}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Debug().Str("driver", driver).Msg("store ready")
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Run is one monitoring run.
type Run struct {
	RunID          uuid.UUID  `db:"run_id"`
	StartedAt      time.Time  `db:"started_at"`
	FinishedAt     *time.Time `db:"finished_at"`
	TotalAnswers   int        `db:"total_answers"`
	FailedAnswers  int        `db:"failed_answers"`
	TotalMentions  int        `db:"total_mentions"`
	TotalCostUSD   float64    `db:"total_cost_usd"`
	BudgetExceeded bool       `db:"budget_exceeded"`
	Notes          string     `db:"notes"`
}

// Answer is one provider response row.
type Answer struct {
	AnswerID          uuid.UUID `db:"answer_id"`
	RunID             uuid.UUID `db:"run_id"`
	IntentID          string    `db:"intent_id"`
	ModelProvider     string    `db:"model_provider"`
	ModelName         string    `db:"model_name"`
	AnswerText        string    `db:"answer_text"`
	InputTokens       int       `db:"input_tokens"`
	OutputTokens      int       `db:"output_tokens"`
	CostUSD           float64   `db:"cost_usd"`
	ExtractionMethod  string    `db:"extraction_method"`
	ExtractionWarning string    `db:"extraction_warning"`
	CreatedAt         time.Time `db:"created_at"`
}

// MentionRow is the persisted shape of one extracted mention.
type MentionRow struct {
	MentionID      uuid.UUID `db:"mention_id"`
	RunID          uuid.UUID `db:"run_id"`
	IntentID       string    `db:"intent_id"`
	ModelProvider  string    `db:"model_provider"`
	ModelName      string    `db:"model_name"`
	Brand          string    `db:"brand"`
	NormalizedName string    `db:"normalized_name"`
	IsMine         bool      `db:"is_mine"`
	RankPosition   *int      `db:"rank_position"`
	ContextSnippet string    `db:"context_snippet"`
	Sentiment      *string   `db:"sentiment"`
	MentionContext *string   `db:"mention_context"`
	TimestampUTC   time.Time `db:"timestamp_utc"`
}

// CreateRun inserts a new run row.
func (s *Store) CreateRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error {
	q := s.db.Rebind(`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, runID.String(), startedAt.UTC()); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun records run totals.
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	q := s.db.Rebind(`UPDATE runs
		SET finished_at = ?, total_answers = ?, failed_answers = ?,
		    total_mentions = ?, total_cost_usd = ?, budget_exceeded = ?, notes = ?
		WHERE run_id = ?`)
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, q,
		now, run.TotalAnswers, run.FailedAnswers,
		run.TotalMentions, run.TotalCostUSD, run.BudgetExceeded, run.Notes,
		run.RunID.String())
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// InsertAnswer stores one provider response with its extraction metadata.
func (s *Store) InsertAnswer(ctx context.Context, a *Answer) error {
	q := s.db.Rebind(`INSERT INTO answers
		(answer_id, run_id, intent_id, model_provider, model_name, answer_text,
		 input_tokens, output_tokens, cost_usd, extraction_method,
		 extraction_warning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q,
		a.AnswerID.String(), a.RunID.String(), a.IntentID, a.ModelProvider,
		a.ModelName, a.AnswerText, a.InputTokens, a.OutputTokens, a.CostUSD,
		a.ExtractionMethod, a.ExtractionWarning, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert answer: %w", err)
	}
	return nil
}

// InsertMentions persists every mention of one extraction call. The table's
// uniqueness constraint mirrors the collapse rule: one row per normalized
// name per (run, intent, provider, model).
func (s *Store) InsertMentions(ctx context.Context, runID uuid.UUID, intentID, provider, modelName string, mentions []*models.Mention) error {
	if len(mentions) == 0 {
		return nil
	}
	q := s.db.Rebind(`INSERT INTO mentions
		(mention_id, run_id, intent_id, model_provider, model_name, brand,
		 normalized_name, is_mine, rank_position, context_snippet, sentiment,
		 mention_context, timestamp_utc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin mention insert: %w", err)
	}
	now := time.Now().UTC()
	for _, m := range mentions {
		var sentiment, mentionCtx *string
		if m.Sentiment != nil {
			v := string(*m.Sentiment)
			sentiment = &v
		}
		if m.MentionContext != nil {
			v := string(*m.MentionContext)
			mentionCtx = &v
		}
		_, err := tx.ExecContext(ctx, q,
			uuid.New().String(), runID.String(), intentID, provider, modelName,
			m.BrandName, m.NormalizedName, m.IsMine, m.RankPosition,
			m.ContextSnippet, sentiment, mentionCtx, now)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert mention %q: %w", m.NormalizedName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mentions: %w", err)
	}
	return nil
}

// InsertCandidates stores discovery output.
func (s *Store) InsertCandidates(ctx context.Context, candidates []*models.BrandCandidate) error {
	if len(candidates) == 0 {
		return nil
	}
	q := s.db.Rebind(`INSERT INTO brand_candidates
		(candidate_id, run_id, name, normalized_name, confidence, source_model,
		 context_snippet, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, c := range candidates {
		_, err := s.db.ExecContext(ctx, q,
			c.CandidateID.String(), c.RunID.String(), c.Name, c.NormalizedName,
			c.Confidence, c.SourceModel, c.ContextSnippet, c.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert candidate %q: %w", c.Name, err)
		}
	}
	return nil
}

// LatestRunID returns the most recently started run.
func (s *Store) LatestRunID(ctx context.Context) (uuid.UUID, error) {
	var id string
	q := `SELECT run_id FROM runs ORDER BY started_at DESC LIMIT 1`
	if err := s.db.GetContext(ctx, &id, q); err != nil {
		return uuid.Nil, fmt.Errorf("failed to find latest run: %w", err)
	}
	return uuid.Parse(id)
}

// GetRun loads one run row.
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var raw struct {
		RunID          string     `db:"run_id"`
		StartedAt      time.Time  `db:"started_at"`
		FinishedAt     *time.Time `db:"finished_at"`
		TotalAnswers   int        `db:"total_answers"`
		FailedAnswers  int        `db:"failed_answers"`
		TotalMentions  int        `db:"total_mentions"`
		TotalCostUSD   float64    `db:"total_cost_usd"`
		BudgetExceeded bool       `db:"budget_exceeded"`
		Notes          string     `db:"notes"`
	}
	q := s.db.Rebind(`SELECT * FROM runs WHERE run_id = ?`)
	if err := s.db.GetContext(ctx, &raw, q, runID.String()); err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	id, err := uuid.Parse(raw.RunID)
	if err != nil {
		return nil, fmt.Errorf("corrupt run id %q: %w", raw.RunID, err)
	}
	return &Run{
		RunID:          id,
		StartedAt:      raw.StartedAt,
		FinishedAt:     raw.FinishedAt,
		TotalAnswers:   raw.TotalAnswers,
		FailedAnswers:  raw.FailedAnswers,
		TotalMentions:  raw.TotalMentions,
		TotalCostUSD:   raw.TotalCostUSD,
		BudgetExceeded: raw.BudgetExceeded,
		Notes:          raw.Notes,
	}, nil
}

// BrandStat is one brand's aggregate over a run, feeding the report.
type BrandStat struct {
	Brand        string   `db:"brand"`
	IsMine       bool     `db:"is_mine"`
	Mentions     int      `db:"mentions"`
	AvgRank      *float64 `db:"avg_rank"`
	TopRankCount int      `db:"top_rank_count"`
}

// BrandStats aggregates mentions per brand for one run, ordered most
// mentioned first.
func (s *Store) BrandStats(ctx context.Context, runID uuid.UUID) ([]BrandStat, error) {
	q := s.db.Rebind(`SELECT
			normalized_name AS brand,
			is_mine,
			COUNT(*) AS mentions,
			AVG(rank_position) AS avg_rank,
			SUM(CASE WHEN rank_position = 1 THEN 1 ELSE 0 END) AS top_rank_count
		FROM mentions
		WHERE run_id = ?
		GROUP BY normalized_name, is_mine
		ORDER BY mentions DESC, brand ASC`)
	var stats []BrandStat
	if err := s.db.SelectContext(ctx, &stats, q, runID.String()); err != nil {
		return nil, fmt.Errorf("failed to aggregate brand stats: %w", err)
	}
	return stats, nil
}

// CountAnswers returns the number of stored answers for a run.
func (s *Store) CountAnswers(ctx context.Context, runID uuid.UUID) (int, error) {
	var n int
	q := s.db.Rebind(`SELECT COUNT(*) FROM answers WHERE run_id = ?`)
	if err := s.db.GetContext(ctx, &n, q, runID.String()); err != nil {
		return 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return n, nil
}

// ListCandidates returns discovery candidates for a run, highest confidence
// first.
func (s *Store) ListCandidates(ctx context.Context, runID uuid.UUID) ([]*models.BrandCandidate, error) {
	var raws []struct {
		CandidateID    string    `db:"candidate_id"`
		RunID          string    `db:"run_id"`
		Name           string    `db:"name"`
		NormalizedName string    `db:"normalized_name"`
		Confidence     float64   `db:"confidence"`
		SourceModel    string    `db:"source_model"`
		ContextSnippet string    `db:"context_snippet"`
		CreatedAt      time.Time `db:"created_at"`
	}
	q := s.db.Rebind(`SELECT * FROM brand_candidates WHERE run_id = ? ORDER BY confidence DESC, name ASC`)
	if err := s.db.SelectContext(ctx, &raws, q, runID.String()); err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	out := make([]*models.BrandCandidate, 0, len(raws))
	for _, r := range raws {
		cid, err := uuid.Parse(r.CandidateID)
		if err != nil {
			return nil, fmt.Errorf("corrupt candidate id %q: %w", r.CandidateID, err)
		}
		rid, err := uuid.Parse(r.RunID)
		if err != nil {
			return nil, fmt.Errorf("corrupt run id %q: %w", r.RunID, err)
		}
		out = append(out, &models.BrandCandidate{
			CandidateID:    cid,
			RunID:          rid,
			Name:           r.Name,
			NormalizedName: r.NormalizedName,
			Confidence:     r.Confidence,
			SourceModel:    r.SourceModel,
			ContextSnippet: r.ContextSnippet,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out, nil
}

// AnswerWarnings returns the non-empty extraction warnings for a run, for
// surfacing in the report.
func (s *Store) AnswerWarnings(ctx context.Context, runID uuid.UUID) ([]string, error) {
	var warnings []string
	q := s.db.Rebind(`SELECT extraction_warning FROM answers
		WHERE run_id = ? AND extraction_warning != '' ORDER BY created_at`)
	if err := s.db.SelectContext(ctx, &warnings, q, runID.String()); err != nil {
		return nil, fmt.Errorf("failed to load warnings: %w", err)
	}
	return warnings, nil
}
