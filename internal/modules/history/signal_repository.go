package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/signals"
	"github.com/rs/zerolog"
)

// SignalRepository stores fired trade signals.
//
// Database: history.db (trade_signals table)
type SignalRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSignalRepository creates a new trade signal repository.
func NewSignalRepository(db *sql.DB, log zerolog.Logger) *SignalRepository {
	return &SignalRepository{
		db:  db,
		log: log.With().Str("repository", "trade_signals").Logger(),
	}
}

// Save inserts a trade signal.
func (r *SignalRepository) Save(ctx context.Context, s signals.TradeSignal) error {
	var delta sql.NullFloat64
	if s.Delta != nil {
		delta = sql.NullFloat64{Float64: *s.Delta, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO trade_signals
		(id, symbol, strategy_id, action, score, delta, confidence, composite_score_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Symbol, s.StrategyID, string(s.Action), s.Score, delta, s.Confidence,
		s.CompositeScoreID, s.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade signal for %s: %w", s.Symbol, err)
	}
	return nil
}

// List returns signals newest first, optionally filtered by symbol (empty means all).
func (r *SignalRepository) List(ctx context.Context, symbol string, limit int) ([]signals.TradeSignal, error) {
	query := `SELECT id, symbol, strategy_id, action, score, delta, confidence, composite_score_id, created_at
		FROM trade_signals`
	args := []interface{}{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade signals: %w", err)
	}
	defer rows.Close()

	out := []signals.TradeSignal{}
	for rows.Next() {
		var (
			s         signals.TradeSignal
			action    string
			delta     sql.NullFloat64
			createdAt int64
		)
		if err := rows.Scan(&s.ID, &s.Symbol, &s.StrategyID, &action, &s.Score, &delta,
			&s.Confidence, &s.CompositeScoreID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade signal: %w", err)
		}
		s.Action = domain.Action(action)
		if delta.Valid {
			d := delta.Float64
			s.Delta = &d
		}
		s.Timestamp = time.Unix(0, createdAt).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade signals: %w", err)
	}
	return out, nil
}
