package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/rs/zerolog"
)

// StrategyStore persists strategies.
type StrategyStore interface {
	SaveStrategy(ctx context.Context, s Strategy) error
	ListStrategies(ctx context.Context) ([]Strategy, error)
}

// DirectiveStateStore persists directive enablement.
type DirectiveStateStore interface {
	SetDirectiveEnabled(ctx context.Context, id string, enabled bool) error
	DirectiveStates(ctx context.Context) (map[string]bool, error)
}

// Service applies configuration changes to the registry and persists them.
type Service struct {
	registry   *Registry
	strategies StrategyStore
	states     DirectiveStateStore
	log        zerolog.Logger
}

// NewService creates a configuration service. Either store may be nil.
func NewService(registry *Registry, strategies StrategyStore, states DirectiveStateStore, log zerolog.Logger) *Service {
	return &Service{
		registry:   registry,
		strategies: strategies,
		states:     states,
		log:        log.With().Str("service", "scoring").Logger(),
	}
}

// Registry returns the underlying registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Restore loads persisted directive states and strategies into the registry. Seed
// strategies are applied only when they have never been persisted.
func (s *Service) Restore(ctx context.Context, seed []Strategy) error {
	if s.states != nil {
		states, err := s.states.DirectiveStates(ctx)
		if err != nil {
			return fmt.Errorf("failed to load directive states: %w", err)
		}
		for id, enabled := range states {
			if err := s.registry.setEnabled(id, enabled); err != nil {
				if errors.Is(err, domain.ErrUnknownDirective) {
					s.log.Warn().Str("directive", id).Msg("Ignoring state for unregistered directive")
					continue
				}
				return err
			}
		}
	}

	persisted := make(map[string]bool)
	if s.strategies != nil {
		stored, err := s.strategies.ListStrategies(ctx)
		if err != nil {
			return fmt.Errorf("failed to load strategies: %w", err)
		}
		for _, st := range stored {
			if err := s.registry.Restore(st); err != nil {
				return fmt.Errorf("failed to restore strategy %s: %w", st.ID, err)
			}
			persisted[st.ID] = true
		}
	}

	for _, st := range seed {
		if persisted[st.ID] {
			continue
		}
		if _, err := s.PutStrategy(ctx, st); err != nil {
			return fmt.Errorf("failed to seed strategy %s: %w", st.ID, err)
		}
	}

	s.log.Info().
		Int("persisted", len(persisted)).
		Int("strategies", len(s.registry.Strategies())).
		Msg("Scoring configuration restored")
	return nil
}

// PutStrategy validates, stores and persists a complete strategy.
func (s *Service) PutStrategy(ctx context.Context, st Strategy) (Strategy, error) {
	saved, err := s.registry.PutStrategy(st)
	if err != nil {
		return Strategy{}, err
	}
	return saved, s.persist(ctx, saved)
}

// ConfigureWeights replaces a strategy's weights and persists the new version.
func (s *Service) ConfigureWeights(ctx context.Context, strategyID string, weights map[string]float64) (Strategy, error) {
	saved, err := s.registry.ConfigureWeights(strategyID, weights)
	if err != nil {
		return Strategy{}, err
	}
	return saved, s.persist(ctx, saved)
}

// ConfigureThresholds replaces a strategy's thresholds and persists the new version.
func (s *Service) ConfigureThresholds(ctx context.Context, strategyID string, thresholds Thresholds) (Strategy, error) {
	saved, err := s.registry.ConfigureThresholds(strategyID, thresholds)
	if err != nil {
		return Strategy{}, err
	}
	return saved, s.persist(ctx, saved)
}

// SetEnabled enables or disables a directive and persists the change.
func (s *Service) SetEnabled(ctx context.Context, id string, enabled bool) error {
	if err := s.registry.setEnabled(id, enabled); err != nil {
		return err
	}
	if s.states == nil {
		return nil
	}
	if err := s.states.SetDirectiveEnabled(ctx, id, enabled); err != nil {
		return fmt.Errorf("failed to persist state of directive %s: %w", id, err)
	}
	return nil
}

func (s *Service) persist(ctx context.Context, st Strategy) error {
	if s.strategies == nil {
		return nil
	}
	if err := s.strategies.SaveStrategy(ctx, st); err != nil {
		return fmt.Errorf("failed to persist strategy %s: %w", st.ID, err)
	}
	return nil
}
