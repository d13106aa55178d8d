package risk

import (
	"context"
	"fmt"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/rs/zerolog"
)

// AssessmentStore keeps assessment history.
type AssessmentStore interface {
	SaveAssessment(ctx context.Context, a RiskAssessment) error
	ListAssessments(ctx context.Context, symbol string, limit int) ([]RiskAssessment, error)
}

// Service assesses positions and records the results.
type Service struct {
	assessor *Assessor
	store    AssessmentStore
	log      zerolog.Logger
}

// NewService creates a risk service. store may be nil.
func NewService(assessor *Assessor, store AssessmentStore, log zerolog.Logger) *Service {
	return &Service{
		assessor: assessor,
		store:    store,
		log:      log.With().Str("service", "risk").Logger(),
	}
}

// Assessor returns the underlying assessor.
func (s *Service) Assessor() *Assessor {
	return s.assessor
}

// Assess scores a position and stores the assessment.
func (s *Service) Assess(ctx context.Context, p domain.Position, mc domain.MarketContext) (RiskAssessment, error) {
	a := s.assessor.Assess(p, mc)
	if s.store == nil {
		return a, nil
	}
	if err := s.store.SaveAssessment(context.WithoutCancel(ctx), a); err != nil {
		return a, fmt.Errorf("failed to store risk assessment for %s: %w", p.Symbol, err)
	}
	return a, nil
}

// History returns stored assessments for a symbol, newest first.
func (s *Service) History(ctx context.Context, symbol string, limit int) ([]RiskAssessment, error) {
	if s.store == nil {
		return []RiskAssessment{}, nil
	}
	return s.store.ListAssessments(ctx, symbol, limit)
}
