// Package history provides SQLite repositories for scores, signals, risk assessments and
// strategy configuration.
// Scores, signals and assessments live in history.db and are append-only: a new run adds a
// row and never rewrites an earlier one. Strategy configuration lives in config.db.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/rs/zerolog"
)

// ScoreRepository stores composite scores.
// Implements scoring.ScoreHistory.
//
// Database: history.db (composite_scores table)
type ScoreRepository struct {
	db  *sql.DB        // history.db
	log zerolog.Logger // Structured logger
}

// NewScoreRepository creates a new composite score repository.
//
// Parameters:
//   - db: Database connection to history.db
//   - log: Structured logger
//
// Returns:
//   - *ScoreRepository: Initialized repository instance
func NewScoreRepository(db *sql.DB, log zerolog.Logger) *ScoreRepository {
	return &ScoreRepository{
		db:  db,
		log: log.With().Str("repository", "composite_scores").Logger(),
	}
}

const scoreColumns = `id, symbol, strategy_id, score, previous_score, components,
	weight_version, skip_weight_policy, snapshot_time, created_at`

// Save inserts a composite score. The breakdown is stored as msgpack so contribution
// values round-trip exactly.
//
// Parameters:
//   - ctx: Context for the insert
//   - score: Score to store
//
// Returns:
//   - error: Error if encoding or the insert fails
func (r *ScoreRepository) Save(ctx context.Context, score scoring.CompositeScore) error {
	components, err := scoring.EncodeComponents(score.Components)
	if err != nil {
		return err
	}

	var previous sql.NullFloat64
	if score.PreviousScore != nil {
		previous = sql.NullFloat64{Float64: *score.PreviousScore, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO composite_scores (`+scoreColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		score.ID,
		score.Symbol,
		score.StrategyID,
		score.Score,
		previous,
		components,
		score.WeightVersion,
		score.SkipWeightPolicy,
		score.SnapshotTime.Unix(),
		score.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert composite score for %s: %w", score.Symbol, err)
	}
	return nil
}

// Latest returns the most recent score for a symbol and strategy.
// Returns nil if no score exists (not an error).
//
// Parameters:
//   - ctx: Context for the query
//   - symbol: Symbol to look up
//   - strategyID: Strategy the score was computed for
//
// Returns:
//   - *scoring.CompositeScore: Latest score, nil if none
//   - error: Error if the query fails
func (r *ScoreRepository) Latest(ctx context.Context, symbol, strategyID string) (*scoring.CompositeScore, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scoreColumns+` FROM composite_scores
		WHERE symbol = ? AND strategy_id = ?
		ORDER BY created_at DESC LIMIT 1`, symbol, strategyID)

	score, err := scanScore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest score for %s: %w", symbol, err)
	}
	return &score, nil
}

// History returns scores for a symbol and strategy, newest first.
//
// Parameters:
//   - ctx: Context for the query
//   - symbol: Symbol to look up
//   - strategyID: Strategy the scores were computed for
//   - limit: Maximum number of rows
//
// Returns:
//   - []scoring.CompositeScore: Scores, newest first
//   - error: Error if the query fails
func (r *ScoreRepository) History(ctx context.Context, symbol, strategyID string, limit int) ([]scoring.CompositeScore, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+scoreColumns+` FROM composite_scores
		WHERE symbol = ? AND strategy_id = ?
		ORDER BY created_at DESC LIMIT ?`, symbol, strategyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query score history for %s: %w", symbol, err)
	}
	defer rows.Close()

	scores := []scoring.CompositeScore{}
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scores: %w", err)
	}
	return scores, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanScore(s scanner) (scoring.CompositeScore, error) {
	var (
		score        scoring.CompositeScore
		previous     sql.NullFloat64
		components   []byte
		snapshotTime int64
		createdAt    int64
	)
	err := s.Scan(
		&score.ID,
		&score.Symbol,
		&score.StrategyID,
		&score.Score,
		&previous,
		&components,
		&score.WeightVersion,
		&score.SkipWeightPolicy,
		&snapshotTime,
		&createdAt,
	)
	if err != nil {
		return scoring.CompositeScore{}, err
	}

	if previous.Valid {
		p := previous.Float64
		score.PreviousScore = &p
	}
	score.Components, err = scoring.DecodeComponents(components)
	if err != nil {
		return scoring.CompositeScore{}, err
	}
	score.SnapshotTime = time.Unix(snapshotTime, 0).UTC()
	score.Timestamp = time.Unix(0, createdAt).UTC()
	return score, nil
}
