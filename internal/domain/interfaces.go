package domain

import "context"

// IndicatorSource supplies indicator snapshots. Implementations wrap broker or data APIs;
// failures should match ErrIndicatorSourceUnavailable.
type IndicatorSource interface {
	GetSnapshot(ctx context.Context, symbol string) (IndicatorSnapshot, error)
}

// PositionProvider returns the open position for a symbol, or nil when none is held.
type PositionProvider interface {
	Position(ctx context.Context, symbol string) (*Position, error)
	OpenPositions(ctx context.Context) ([]Position, error)
}

// IndicatorSourceFunc adapts a function to IndicatorSource.
type IndicatorSourceFunc func(ctx context.Context, symbol string) (IndicatorSnapshot, error)

// GetSnapshot calls f.
func (f IndicatorSourceFunc) GetSnapshot(ctx context.Context, symbol string) (IndicatorSnapshot, error) {
	return f(ctx, symbol)
}
