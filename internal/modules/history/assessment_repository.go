package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aristath/tradesignal/internal/modules/risk"
	"github.com/rs/zerolog"
)

// AssessmentRepository stores risk assessments. Implements risk.AssessmentStore.
//
// Database: history.db (risk_assessments table)
type AssessmentRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAssessmentRepository creates a new risk assessment repository.
func NewAssessmentRepository(db *sql.DB, log zerolog.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: log.With().Str("repository", "risk_assessments").Logger(),
	}
}

// SaveAssessment inserts an assessment. The queryable summary goes into columns and the
// full record into a JSON payload.
func (r *AssessmentRepository) SaveAssessment(ctx context.Context, a risk.RiskAssessment) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal risk assessment: %w", err)
	}

	failedClosed := 0
	if a.FailedClosed {
		failedClosed = 1
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO risk_assessments
		(id, symbol, model_id, score, level, action, failed_closed, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Symbol, a.ModelID, a.Score, string(a.Level), string(a.Action), failedClosed,
		string(payload), a.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert risk assessment for %s: %w", a.Symbol, err)
	}
	return nil
}

// ListAssessments returns assessments for a symbol, newest first.
func (r *AssessmentRepository) ListAssessments(ctx context.Context, symbol string, limit int) ([]risk.RiskAssessment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM risk_assessments
		WHERE symbol = ? ORDER BY created_at DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk assessments for %s: %w", symbol, err)
	}
	defer rows.Close()

	out := []risk.RiskAssessment{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan risk assessment: %w", err)
		}
		var a risk.RiskAssessment
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal risk assessment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating risk assessments: %w", err)
	}
	return out, nil
}
