package scoring

import (
	"context"
	"sync"
)

// MemoryHistory is an in-process ScoreHistory used by tests and dry runs.
type MemoryHistory struct {
	mu     sync.RWMutex
	scores map[string][]CompositeScore
}

// NewMemoryHistory creates an empty history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{scores: make(map[string][]CompositeScore)}
}

func historyKey(symbol, strategyID string) string {
	return strategyID + "\x00" + symbol
}

// Latest returns the most recently saved score, or nil.
func (h *MemoryHistory) Latest(_ context.Context, symbol, strategyID string) (*CompositeScore, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := h.scores[historyKey(symbol, strategyID)]
	if len(list) == 0 {
		return nil, nil
	}
	latest := list[len(list)-1]
	return &latest, nil
}

// Save appends a score.
func (h *MemoryHistory) Save(_ context.Context, score CompositeScore) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := historyKey(score.Symbol, score.StrategyID)
	h.scores[key] = append(h.scores[key], score)
	return nil
}

// History returns up to limit scores, newest first. A limit of 0 returns everything.
func (h *MemoryHistory) History(_ context.Context, symbol, strategyID string, limit int) ([]CompositeScore, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := h.scores[historyKey(symbol, strategyID)]
	out := make([]CompositeScore, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
