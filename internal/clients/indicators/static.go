package indicators

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
)

// Static serves fixed indicator values. Used for dry runs and tests.
type Static struct {
	mu     sync.RWMutex
	values map[string]map[string]float64
	now    func() time.Time
}

// NewStatic creates a static source from symbol -> field -> value.
func NewStatic(values map[string]map[string]float64) *Static {
	s := &Static{values: make(map[string]map[string]float64), now: time.Now}
	for symbol, v := range values {
		s.Set(symbol, v)
	}
	return s
}

// Set replaces the values served for symbol.
func (s *Static) Set(symbol string, values map[string]float64) {
	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	s.mu.Lock()
	s.values[symbol] = copied
	s.mu.Unlock()
}

// Symbols returns the number of symbols with values.
func (s *Static) Symbols() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// GetSnapshot returns the stored values. Unknown symbols are reported as an unavailable source.
func (s *Static) GetSnapshot(ctx context.Context, symbol string) (domain.IndicatorSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.IndicatorSnapshot{}, err
	}
	s.mu.RLock()
	values, ok := s.values[symbol]
	s.mu.RUnlock()
	if !ok {
		return domain.IndicatorSnapshot{}, domain.SourceUnavailable(symbol, fmt.Errorf("no static values"))
	}
	return domain.NewIndicatorSnapshot(symbol, s.now().UTC(), values), nil
}
