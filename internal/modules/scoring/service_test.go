package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStrategyStore struct {
	mock.Mock
}

func (m *mockStrategyStore) SaveStrategy(ctx context.Context, s Strategy) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockStrategyStore) ListStrategies(ctx context.Context) ([]Strategy, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Strategy), args.Error(1)
}

type mockStateStore struct {
	mock.Mock
}

func (m *mockStateStore) SetDirectiveEnabled(ctx context.Context, id string, enabled bool) error {
	return m.Called(ctx, id, enabled).Error(0)
}

func (m *mockStateStore) DirectiveStates(ctx context.Context) (map[string]bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[string]bool), args.Error(1)
}

func TestService_Restore(t *testing.T) {
	r := newTestRegistry(t, newFixed("a", 1), newFixed("b", 1))
	strategies := new(mockStrategyStore)
	states := new(mockStateStore)

	states.On("DirectiveStates", mock.Anything).Return(map[string]bool{"b": false, "gone": true}, nil)
	strategies.On("ListStrategies", mock.Anything).Return([]Strategy{
		{ID: "stored", Weights: map[string]float64{"a": 1}, Thresholds: DefaultThresholds(), Version: 4},
	}, nil)
	strategies.On("SaveStrategy", mock.Anything, mock.MatchedBy(func(s Strategy) bool { return s.ID == "seeded" })).Return(nil)

	svc := NewService(r, strategies, states, zerolog.Nop())
	seed := []Strategy{
		{ID: "stored", Weights: map[string]float64{"a": 0.5, "b": 0.5}, Thresholds: DefaultThresholds()},
		{ID: "seeded", Weights: map[string]float64{"a": 1}, Thresholds: DefaultThresholds()},
	}
	require.NoError(t, svc.Restore(context.Background(), seed))

	assert.False(t, r.IsEnabled("b"))
	stored, err := r.Strategy("stored")
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Version)
	assert.Equal(t, map[string]float64{"a": 1}, stored.Weights, "persisted strategies win over seeds")

	seeded, err := r.Strategy("seeded")
	require.NoError(t, err)
	assert.Equal(t, 1, seeded.Version)
	strategies.AssertExpectations(t)
}

func TestService_ConfigureWeightsPersists(t *testing.T) {
	r := newTestRegistry(t, newFixed("a", 1), newFixed("b", 1))
	strategies := new(mockStrategyStore)
	strategies.On("SaveStrategy", mock.Anything, mock.Anything).Return(nil)
	svc := NewService(r, strategies, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.ConfigureWeights(ctx, "s1", map[string]float64{"a": 0.5, "b": 0.4})
	assert.ErrorIs(t, err, domain.ErrInvalidWeightConfiguration)
	strategies.AssertNotCalled(t, "SaveStrategy", mock.Anything, mock.Anything)

	saved, err := svc.ConfigureWeights(ctx, "s1", map[string]float64{"a": 0.5, "b": 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)

	saved, err = svc.ConfigureThresholds(ctx, "s1", Thresholds{ScoreThreshold: 60, MinChange: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)
	strategies.AssertNumberOfCalls(t, "SaveStrategy", 2)
}

func TestService_SetEnabled(t *testing.T) {
	r := newTestRegistry(t, newFixed("a", 1))
	states := new(mockStateStore)
	states.On("SetDirectiveEnabled", mock.Anything, "a", false).Return(nil)
	states.On("SetDirectiveEnabled", mock.Anything, "a", true).Return(errors.New("disk full"))
	svc := NewService(r, nil, states, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, svc.SetEnabled(ctx, "a", false))
	assert.False(t, r.IsEnabled("a"))

	err := svc.SetEnabled(ctx, "a", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.ErrorIs(t, svc.SetEnabled(ctx, "zzz", true), domain.ErrUnknownDirective)
}
