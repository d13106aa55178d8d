package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/rs/zerolog"
)

// DirectiveInfo describes a registered directive.
type DirectiveInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MaxScore float64  `json:"max_score"`
	Required []string `json:"required"`
	Enabled  bool     `json:"enabled"`
}

// Registry holds registered directives, their enablement and the configured strategies.
// It is constructed once per process and passed to the components that need it.
type Registry struct {
	factories  map[string]Factory
	directives map[string]Directive
	disabled   map[string]bool
	strategies map[string]Strategy
	mu         sync.RWMutex
	now        func() time.Time
	log        zerolog.Logger
}

// NewRegistry creates a registry that can instantiate built-ins from factories.
func NewRegistry(factories map[string]Factory, log zerolog.Logger) *Registry {
	f := make(map[string]Factory, len(factories))
	for id, factory := range factories {
		f[id] = factory
	}
	return &Registry{
		factories:  f,
		directives: make(map[string]Directive),
		disabled:   make(map[string]bool),
		strategies: make(map[string]Strategy),
		now:        time.Now,
		log:        log.With().Str("component", "directive_registry").Logger(),
	}
}

// Register adds a directive. Empty ids, duplicates and non-positive max scores are rejected.
func (r *Registry) Register(d Directive) error {
	if d == nil {
		return errors.New("directive is nil")
	}
	id := d.ID()
	if id == "" {
		return errors.New("directive id is empty")
	}
	if maxScore := d.MaxScore(); maxScore <= 0 || math.IsNaN(maxScore) || math.IsInf(maxScore, 0) {
		return fmt.Errorf("directive %s: max score must be positive, got %v", id, maxScore)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.directives[id]; exists {
		return fmt.Errorf("directive %s is already registered", id)
	}
	r.directives[id] = d
	r.log.Debug().Str("directive", id).Msg("Registered directive")
	return nil
}

// RegisterBuiltin instantiates and registers the built-in directive with the given id.
func (r *Registry) RegisterBuiltin(id string) error {
	factory, ok := r.factories[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownDirective, id)
	}
	d := factory()
	if d.ID() != id {
		return fmt.Errorf("factory for %s produced directive %s", id, d.ID())
	}
	return r.Register(d)
}

// RegisterBuiltins registers the given built-ins, or every known built-in when ids is empty.
func (r *Registry) RegisterBuiltins(ids ...string) error {
	if len(ids) == 0 {
		for id := range r.factories {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}
	for _, id := range ids {
		if err := r.RegisterBuiltin(id); err != nil {
			return err
		}
	}
	return nil
}

// Directive returns a registered directive by id.
func (r *Registry) Directive(id string) (Directive, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.directives[id]
	return d, ok
}

// Directives lists registered directives ordered by id.
func (r *Registry) Directives() []DirectiveInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]DirectiveInfo, 0, len(r.directives))
	for id, d := range r.directives {
		out = append(out, DirectiveInfo{
			ID:       id,
			Name:     d.Name(),
			MaxScore: d.MaxScore(),
			Required: append([]string(nil), d.Required()...),
			Enabled:  !r.disabled[id],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsEnabled reports whether a directive is registered and enabled.
func (r *Registry) IsEnabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.directives[id]
	return ok && !r.disabled[id]
}

// Enable puts a directive back into aggregation.
func (r *Registry) Enable(id string) error {
	return r.setEnabled(id, true)
}

// Disable removes a directive from aggregation. Strategies that still weight it fail at
// snapshot time until they are reconfigured. Stored scores are untouched.
func (r *Registry) Disable(id string) error {
	return r.setEnabled(id, false)
}

func (r *Registry) setEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.directives[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownDirective, id)
	}
	if enabled {
		delete(r.disabled, id)
	} else {
		r.disabled[id] = true
	}
	r.log.Info().Str("directive", id).Bool("enabled", enabled).Msg("Directive enablement changed")
	return nil
}

// ConfigureWeights replaces a strategy's weights, creating the strategy with default
// thresholds when it does not exist yet. Every id must be registered and enabled and the
// weights must sum to 1.0 within domain.WeightEpsilon.
func (r *Registry) ConfigureWeights(strategyID string, weights map[string]float64) (Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.strategies[strategyID]
	if !ok {
		s = Strategy{ID: strategyID, Name: strategyID, Thresholds: DefaultThresholds()}
	}
	s.Weights = weights
	return r.storeLocked(s.clone(), true)
}

// ConfigureThresholds replaces the thresholds of an existing strategy.
func (r *Registry) ConfigureThresholds(strategyID string, thresholds Thresholds) (Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.strategies[strategyID]
	if !ok {
		return Strategy{}, fmt.Errorf("%w: %s", domain.ErrUnknownStrategy, strategyID)
	}
	s.Thresholds = thresholds
	return r.storeLocked(s.clone(), true)
}

// PutStrategy validates and stores a complete strategy, bumping its version.
func (r *Registry) PutStrategy(s Strategy) (Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.storeLocked(s.clone(), true)
}

// Restore loads a previously persisted strategy keeping its version. Weights may reference
// directives that are currently disabled.
func (r *Registry) Restore(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.storeLocked(s.clone(), false)
	return err
}

func (r *Registry) storeLocked(s Strategy, bump bool) (Strategy, error) {
	if s.ID == "" {
		return Strategy{}, errors.New("strategy id is empty")
	}
	if s.Name == "" {
		s.Name = s.ID
	}
	if err := s.Thresholds.Validate(); err != nil {
		return Strategy{}, fmt.Errorf("invalid thresholds for %s: %w", s.ID, err)
	}
	for _, id := range sortedKeys(s.Weights) {
		if _, ok := r.directives[id]; !ok {
			return Strategy{}, &domain.InvalidWeightConfigurationError{
				Owner:  s.ID,
				Reason: fmt.Sprintf("directive %s is not registered", id),
			}
		}
		if bump && r.disabled[id] {
			return Strategy{}, &domain.InvalidWeightConfigurationError{
				Owner:  s.ID,
				Reason: fmt.Sprintf("directive %s is disabled", id),
			}
		}
	}
	if _, err := domain.ValidateWeights(s.ID, s.Weights); err != nil {
		return Strategy{}, err
	}

	if bump {
		s.Version = r.strategies[s.ID].Version + 1
		s.UpdatedAt = r.now().UTC()
	}
	r.strategies[s.ID] = s
	r.log.Info().
		Str("strategy", s.ID).
		Int("version", s.Version).
		Msg("Strategy configured")
	return s.clone(), nil
}

// Strategy returns a copy of a configured strategy.
func (r *Registry) Strategy(id string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[id]
	if !ok {
		return Strategy{}, fmt.Errorf("%w: %s", domain.ErrUnknownStrategy, id)
	}
	return s.clone(), nil
}

// Strategies returns copies of all strategies ordered by id.
func (r *Registry) Strategies() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveDirectives returns the enabled, non-zero weighted directives of a strategy ordered
// by id. It fails when a weighted directive is disabled, since the active weights would
// no longer sum to 1.0.
func (r *Registry) ActiveDirectives(strategyID string) ([]WeightedDirective, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[strategyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownStrategy, strategyID)
	}
	return r.activeLocked(s)
}

func (r *Registry) activeLocked(s Strategy) ([]WeightedDirective, error) {
	active := make([]WeightedDirective, 0, len(s.Weights))
	var disabled []string
	sum := 0.0
	for _, id := range sortedKeys(s.Weights) {
		w := s.Weights[id]
		if r.disabled[id] {
			if w > 0 {
				disabled = append(disabled, id)
			}
			continue
		}
		d, ok := r.directives[id]
		if !ok {
			return nil, &domain.InvalidWeightConfigurationError{
				Owner:  s.ID,
				Reason: fmt.Sprintf("directive %s is not registered", id),
			}
		}
		sum += w
		if w > 0 {
			active = append(active, WeightedDirective{Directive: d, Weight: w})
		}
	}

	if math.Abs(sum-1.0) > domain.WeightEpsilon {
		reason := ""
		if len(disabled) > 0 {
			reason = fmt.Sprintf("weighted directives %v are disabled; active weights sum to %.2f, expected 1.0", disabled, sum)
		}
		return nil, &domain.InvalidWeightConfigurationError{Owner: s.ID, Sum: sum, Reason: reason}
	}
	return active, nil
}

// Snapshot returns an immutable view of a strategy for one scoring pass.
func (r *Registry) Snapshot(strategyID string) (StrategySnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[strategyID]
	if !ok {
		return StrategySnapshot{}, fmt.Errorf("%w: %s", domain.ErrUnknownStrategy, strategyID)
	}
	active, err := r.activeLocked(s)
	if err != nil {
		return StrategySnapshot{}, err
	}
	c := s.clone()
	return StrategySnapshot{
		StrategyID: c.ID,
		Name:       c.Name,
		Version:    c.Version,
		Directives: active,
		Thresholds: c.Thresholds,
		TakenAt:    r.now().UTC(),
	}, nil
}
