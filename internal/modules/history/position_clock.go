package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// PositionClock remembers when a held symbol was first seen, for brokers that report open
// positions without an open date.
//
// Database: history.db (position_clock table)
type PositionClock struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionClock creates a new position clock.
func NewPositionClock(db *sql.DB, log zerolog.Logger) *PositionClock {
	return &PositionClock{
		db:  db,
		log: log.With().Str("repository", "position_clock").Logger(),
	}
}

// FirstSeen returns when symbol was first observed as held, recording now if it is new.
func (c *PositionClock) FirstSeen(ctx context.Context, symbol string, now time.Time) (time.Time, error) {
	_, err := c.db.ExecContext(ctx, `INSERT OR IGNORE INTO position_clock (symbol, first_seen) VALUES (?, ?)`,
		symbol, now.Unix())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to record first sighting of %s: %w", symbol, err)
	}

	var firstSeen int64
	if err := c.db.QueryRowContext(ctx, `SELECT first_seen FROM position_clock WHERE symbol = ?`, symbol).Scan(&firstSeen); err != nil {
		return time.Time{}, fmt.Errorf("failed to read first sighting of %s: %w", symbol, err)
	}
	return time.Unix(firstSeen, 0).UTC(), nil
}

// Forget drops symbols that are no longer held, so a later re-entry starts a fresh clock.
func (c *PositionClock) Forget(ctx context.Context, held []string) (int64, error) {
	if len(held) == 0 {
		res, err := c.db.ExecContext(ctx, `DELETE FROM position_clock`)
		if err != nil {
			return 0, fmt.Errorf("failed to clear position clock: %w", err)
		}
		return res.RowsAffected()
	}

	query := `DELETE FROM position_clock WHERE symbol NOT IN (?` + repeatPlaceholders(len(held)-1) + `)`
	args := make([]interface{}, len(held))
	for i, s := range held {
		args[i] = s
	}
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune position clock: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		c.log.Debug().Int64("removed", n).Msg("Pruned closed positions from clock")
	}
	return n, nil
}

func repeatPlaceholders(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
