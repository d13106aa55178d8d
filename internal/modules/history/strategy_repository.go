package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/tradesignal/internal/database"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/rs/zerolog"
)

// StrategyRepository persists strategies and directive enablement.
// Every saved version is also appended to strategy_versions for auditing.
// Implements scoring.StrategyStore and scoring.DirectiveStateStore.
//
// Database: config.db (strategies, strategy_versions, directive_state tables)
type StrategyRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStrategyRepository creates a new strategy repository.
//
// Parameters:
//   - db: Database connection to config.db
//   - log: Structured logger
//
// Returns:
//   - *StrategyRepository: Initialized repository instance
func NewStrategyRepository(db *sql.DB, log zerolog.Logger) *StrategyRepository {
	return &StrategyRepository{
		db:  db,
		log: log.With().Str("repository", "strategies").Logger(),
	}
}

// SaveStrategy upserts the current strategy and records the version.
//
// Parameters:
//   - ctx: Context (unused by the transaction helper; the write is short)
//   - s: Validated strategy
//
// Returns:
//   - error: Error if encoding or the transaction fails
func (r *StrategyRepository) SaveStrategy(ctx context.Context, s scoring.Strategy) error {
	weights, err := json.Marshal(s.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	thresholds, err := json.Marshal(s.Thresholds)
	if err != nil {
		return fmt.Errorf("failed to marshal thresholds: %w", err)
	}
	updatedAt := s.UpdatedAt.Unix()

	return database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO strategies (id, name, weights, thresholds, version, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				weights = excluded.weights,
				thresholds = excluded.thresholds,
				version = excluded.version,
				updated_at = excluded.updated_at`,
			s.ID, s.Name, string(weights), string(thresholds), s.Version, updatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert strategy %s: %w", s.ID, err)
		}

		_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO strategy_versions
			(strategy_id, version, weights, thresholds, created_at) VALUES (?, ?, ?, ?, ?)`,
			s.ID, s.Version, string(weights), string(thresholds), updatedAt)
		if err != nil {
			return fmt.Errorf("failed to record version %d of %s: %w", s.Version, s.ID, err)
		}
		return nil
	})
}

// ListStrategies returns all stored strategies ordered by id.
func (r *StrategyRepository) ListStrategies(ctx context.Context) ([]scoring.Strategy, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, weights, thresholds, version, updated_at
		FROM strategies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	out := []scoring.Strategy{}
	for rows.Next() {
		var (
			s          scoring.Strategy
			weights    string
			thresholds string
			updatedAt  int64
		)
		if err := rows.Scan(&s.ID, &s.Name, &weights, &thresholds, &s.Version, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		if err := json.Unmarshal([]byte(weights), &s.Weights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal weights of %s: %w", s.ID, err)
		}
		if err := json.Unmarshal([]byte(thresholds), &s.Thresholds); err != nil {
			return nil, fmt.Errorf("failed to unmarshal thresholds of %s: %w", s.ID, err)
		}
		s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategies: %w", err)
	}
	return out, nil
}

// VersionCount returns how many versions of a strategy have been recorded.
func (r *StrategyRepository) VersionCount(ctx context.Context, strategyID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM strategy_versions WHERE strategy_id = ?`, strategyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count versions of %s: %w", strategyID, err)
	}
	return n, nil
}

// SetDirectiveEnabled records whether a directive is enabled.
func (r *StrategyRepository) SetDirectiveEnabled(ctx context.Context, id string, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO directive_state (directive_id, enabled, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(directive_id) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at`,
		id, v, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set state of directive %s: %w", id, err)
	}
	return nil
}

// DirectiveStates returns the recorded enablement of every directive.
func (r *StrategyRepository) DirectiveStates(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT directive_id, enabled FROM directive_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to query directive states: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var (
			id      string
			enabled int
		)
		if err := rows.Scan(&id, &enabled); err != nil {
			return nil, fmt.Errorf("failed to scan directive state: %w", err)
		}
		out[id] = enabled == 1
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating directive states: %w", err)
	}
	return out, nil
}
