package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/market_hours"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedDirective returns a constant score, or err when set.
type fixedDirective struct {
	id       string
	maxScore float64
	score    float64
	field    string
	err      error
}

func (f *fixedDirective) ID() string         { return f.id }
func (f *fixedDirective) Name() string       { return "fixed " + f.id }
func (f *fixedDirective) MaxScore() float64  { return f.maxScore }
func (f *fixedDirective) Required() []string { return []string{f.field} }

func (f *fixedDirective) Evaluate(s domain.IndicatorSnapshot) (DirectiveResult, error) {
	if f.err != nil {
		return DirectiveResult{}, f.err
	}
	if f.field != "" {
		if _, err := RequireFields(f.id, s, f.field); err != nil {
			return DirectiveResult{}, err
		}
	}
	return DirectiveResult{Score: f.score, Signal: SignalFor(f.score / f.maxScore * 100)}, nil
}

func newFixed(id string, score float64) *fixedDirective {
	return &fixedDirective{id: id, maxScore: 100, score: score}
}

func newTestRegistry(t *testing.T, directives ...Directive) *Registry {
	t.Helper()
	r := NewRegistry(nil, zerolog.Nop())
	for _, d := range directives {
		require.NoError(t, r.Register(d))
	}
	return r
}

func TestRegistry_Register(t *testing.T) {
	r := newTestRegistry(t, newFixed("a", 50))

	assert.Error(t, r.Register(newFixed("a", 10)), "duplicate id")
	assert.Error(t, r.Register(newFixed("", 10)), "empty id")
	assert.Error(t, r.Register(&fixedDirective{id: "zero", maxScore: 0}), "zero max score")
	assert.Error(t, r.Register(&fixedDirective{id: "neg", maxScore: -5}), "negative max score")
	assert.Error(t, r.Register(nil))

	infos := r.Directives()
	require.Len(t, infos, 1)
	assert.Equal(t, "a", infos[0].ID)
	assert.True(t, infos[0].Enabled)
}

func TestRegistry_RegisterBuiltin(t *testing.T) {
	factories := map[string]Factory{
		"b": func() Directive { return newFixed("b", 1) },
		"a": func() Directive { return newFixed("a", 1) },
		"x": func() Directive { return newFixed("not-x", 1) },
	}
	r := NewRegistry(factories, zerolog.Nop())

	err := r.RegisterBuiltin("missing")
	assert.ErrorIs(t, err, domain.ErrUnknownDirective)

	assert.Error(t, r.RegisterBuiltin("x"), "factory id mismatch")
	require.NoError(t, r.RegisterBuiltins("a", "b"))

	_, ok := r.Directive("a")
	assert.True(t, ok)
}

func TestRegistry_ConfigureWeights(t *testing.T) {
	r := newTestRegistry(t, newFixed("a", 1), newFixed("b", 1))

	tests := []struct {
		name    string
		weights map[string]float64
		wantErr string
	}{
		{"sum below one", map[string]float64{"a": 0.5, "b": 0.4}, "weights sum to 0.90, expected 1.0"},
		{"sum above one", map[string]float64{"a": 0.6, "b": 0.6}, "weights sum to 1.20, expected 1.0"},
		{"unknown directive", map[string]float64{"a": 0.5, "zzz": 0.5}, "zzz is not registered"},
		{"negative weight", map[string]float64{"a": 0.5, "b": -0.5}, "negative"},
		{"empty", map[string]float64{}, "no weights"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ConfigureWeights("s1", tt.weights)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidWeightConfiguration)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	s, err := r.ConfigureWeights("s1", map[string]float64{"a": 0.505, "b": 0.5})
	require.NoError(t, err, "within epsilon")
	assert.Equal(t, 1, s.Version)
	assert.Equal(t, DefaultThresholds(), s.Thresholds)

	s, err = r.ConfigureWeights("s1", map[string]float64{"a": 0.3, "b": 0.7})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Version)
	assert.Equal(t, 0.3, s.Weights["a"], "weights are never normalized")
}

func TestRegistry_ConfigureWeightsRejectsDisabled(t *testing.T) {
	r := newTestRegistry(t, newFixed("a", 1), newFixed("b", 1))
	require.NoError(t, r.Disable("b"))

	_, err := r.ConfigureWeights("s1", map[string]float64{"a": 0.5, "b": 0.5})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidWeightConfiguration)
	assert.Contains(t, err.Error(), "disabled")
}

func TestRegistry_CallerMapIsCopied(t *testing.T) {
	r := newTestRegistry(t, newFixed("a", 1), newFixed("b", 1))
	weights := map[string]float64{"a": 0.5, "b": 0.5}
	_, err := r.ConfigureWeights("s1", weights)
	require.NoError(t, err)

	weights["a"] = 0.9
	s, err := r.Strategy("s1")
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.Weights["a"])

	s.Weights["b"] = 0
	again, err := r.Strategy("s1")
	require.NoError(t, err)
	assert.Equal(t, 0.5, again.Weights["b"])
}

func TestRegistry_DisableBreaksSnapshotUntilReconfigured(t *testing.T) {
	r := newTestRegistry(t, newFixed("a", 1), newFixed("b", 1))
	_, err := r.ConfigureWeights("s1", map[string]float64{"a": 0.75, "b": 0.25})
	require.NoError(t, err)

	require.NoError(t, r.Disable("b"))
	assert.False(t, r.IsEnabled("b"))

	_, err = r.Snapshot("s1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidWeightConfiguration)
	assert.Contains(t, err.Error(), "0.75")

	_, err = r.ActiveDirectives("s1")
	assert.ErrorIs(t, err, domain.ErrInvalidWeightConfiguration)

	_, err = r.ConfigureWeights("s1", map[string]float64{"a": 1.0})
	require.NoError(t, err)
	snap, err := r.Snapshot("s1")
	require.NoError(t, err)
	require.Len(t, snap.Directives, 1)
	assert.Equal(t, "a", snap.Directives[0].Directive.ID())

	require.NoError(t, r.Enable("b"))
	assert.True(t, r.IsEnabled("b"))
	assert.ErrorIs(t, r.Disable("nope"), domain.ErrUnknownDirective)
}

func TestRegistry_ZeroWeightDisabledDirectiveIsHarmless(t *testing.T) {
	r := newTestRegistry(t, newFixed("a", 1), newFixed("b", 1))
	_, err := r.ConfigureWeights("s1", map[string]float64{"a": 1.0, "b": 0})
	require.NoError(t, err)
	require.NoError(t, r.Disable("b"))

	active, err := r.ActiveDirectives("s1")
	require.NoError(t, err)
	require.Len(t, active, 1)
}

func TestRegistry_SnapshotIsIsolatedFromLaterChanges(t *testing.T) {
	r := newTestRegistry(t, newFixed("a", 1), newFixed("b", 1), newFixed("c", 1))
	_, err := r.ConfigureWeights("s1", map[string]float64{"c": 0.2, "a": 0.3, "b": 0.5})
	require.NoError(t, err)

	snap, err := r.Snapshot("s1")
	require.NoError(t, err)

	_, err = r.ConfigureWeights("s1", map[string]float64{"a": 1.0})
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, map[string]float64{"a": 0.3, "b": 0.5, "c": 0.2}, snap.Weights())
	ids := []string{}
	for _, wd := range snap.Directives {
		ids = append(ids, wd.Directive.ID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestRegistry_ConfigureThresholds(t *testing.T) {
	r := newTestRegistry(t, newFixed("a", 1))

	_, err := r.ConfigureThresholds("missing", DefaultThresholds())
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)

	_, err = r.ConfigureWeights("s1", map[string]float64{"a": 1})
	require.NoError(t, err)

	_, err = r.ConfigureThresholds("s1", Thresholds{ScoreThreshold: 120})
	assert.Error(t, err)

	bad := market_hours.Window{Timezone: "UTC", Days: []string{"mon"}, Open: "10:00", Close: "09:00"}
	_, err = r.ConfigureThresholds("s1", Thresholds{ScoreThreshold: 70, MarketHours: &bad})
	assert.Error(t, err)

	w := market_hours.DefaultWindow()
	s, err := r.ConfigureThresholds("s1", Thresholds{ScoreThreshold: 70, MinChange: 5, MaxVolatility: 30, MarketHours: &w})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Version)
	assert.Equal(t, 70.0, s.Thresholds.ScoreThreshold)

	w.Open = "00:00"
	got, err := r.Strategy("s1")
	require.NoError(t, err)
	assert.Equal(t, "09:30", got.Thresholds.MarketHours.Open)
}

func TestRegistry_RestoreKeepsVersion(t *testing.T) {
	r := newTestRegistry(t, newFixed("a", 1), newFixed("b", 1))
	require.NoError(t, r.Disable("b"))

	err := r.Restore(Strategy{
		ID:         "s1",
		Weights:    map[string]float64{"a": 0.5, "b": 0.5},
		Thresholds: DefaultThresholds(),
		Version:    7,
		UpdatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	s, err := r.Strategy("s1")
	require.NoError(t, err)
	assert.Equal(t, 7, s.Version)
	assert.Equal(t, "s1", s.Name)

	_, err = r.Snapshot("s1")
	assert.True(t, errors.Is(err, domain.ErrInvalidWeightConfiguration))

	assert.Error(t, r.Restore(Strategy{ID: "s2", Weights: map[string]float64{"a": 0.2}, Thresholds: DefaultThresholds()}))
}

func TestRegistry_UnknownStrategy(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Strategy("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
	_, err = r.Snapshot("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
	_, err = r.ActiveDirectives("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
	assert.Empty(t, r.Strategies())
}
