// Package alpaca adapts the Alpaca market data and trading APIs to the indicator source
// and position provider interfaces.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/aristath/tradesignal/internal/clients/indicators"
	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/pkg/formulas"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Config holds Alpaca credentials and market data options.
type Config struct {
	APIKey          string
	APISecret       string
	BaseURL         string // trading API, e.g. https://paper-api.alpaca.markets
	Feed            string // "iex" or "sip"
	BenchmarkSymbol string // e.g. SPY; empty disables benchmark fields
	LookbackDays    int    // calendar days of daily bars to request
}

// BarsClient is the subset of the market data client used here.
type BarsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// TradingClient is the subset of the trading client used here.
type TradingClient interface {
	GetPosition(symbol string) (*alpaca.Position, error)
	GetPositions() ([]alpaca.Position, error)
}

// PositionClock records when a symbol was first seen as held.
type PositionClock interface {
	FirstSeen(ctx context.Context, symbol string, now time.Time) (time.Time, error)
}

// forgetter is implemented by clocks that can drop symbols no longer held.
type forgetter interface {
	Forget(ctx context.Context, held []string) (int64, error)
}

// Client implements domain.IndicatorSource and domain.PositionProvider.
type Client struct {
	bars    BarsClient
	trading TradingClient
	clock   PositionClock
	cfg     Config
	now     func() time.Time
	log     zerolog.Logger

	benchMu     sync.Mutex
	benchDay    string
	benchSeries []formulas.Bar
}

// NewClient creates a client against the live Alpaca APIs.
func NewClient(cfg Config, clock PositionClock, log zerolog.Logger) *Client {
	bars := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	})
	trading := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
	return New(bars, trading, clock, cfg, log)
}

// New creates a client from explicit API clients. clock may be nil.
func New(bars BarsClient, trading TradingClient, clock PositionClock, cfg Config, log zerolog.Logger) *Client {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 400
	}
	return &Client{
		bars:    bars,
		trading: trading,
		clock:   clock,
		cfg:     cfg,
		now:     time.Now,
		log:     log.With().Str("client", "alpaca").Logger(),
	}
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}

func (c *Client) dailyBars(symbol string, now time.Time) ([]formulas.Bar, error) {
	raw, err := c.bars.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     now.AddDate(0, 0, -c.cfg.LookbackDays),
		End:       now,
		Feed:      parseFeed(c.cfg.Feed),
	})
	if err != nil {
		return nil, err
	}
	out := make([]formulas.Bar, len(raw))
	for i, b := range raw {
		out[i] = formulas.Bar{
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		}
	}
	return out, nil
}

// benchmark returns benchmark bars, fetched at most once per calendar day.
func (c *Client) benchmark(now time.Time) []formulas.Bar {
	if c.cfg.BenchmarkSymbol == "" {
		return nil
	}
	c.benchMu.Lock()
	defer c.benchMu.Unlock()

	day := now.UTC().Format("2006-01-02")
	if c.benchDay == day {
		return c.benchSeries
	}
	series, err := c.dailyBars(c.cfg.BenchmarkSymbol, now)
	if err != nil {
		c.log.Warn().Err(err).Str("benchmark", c.cfg.BenchmarkSymbol).Msg("Failed to fetch benchmark bars")
		return nil
	}
	c.benchDay = day
	c.benchSeries = series
	return series
}

// GetSnapshot builds an indicator snapshot from daily bars.
func (c *Client) GetSnapshot(ctx context.Context, symbol string) (domain.IndicatorSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.IndicatorSnapshot{}, err
	}
	now := c.now().UTC()

	series, err := c.dailyBars(symbol, now)
	if err != nil {
		return domain.IndicatorSnapshot{}, domain.SourceUnavailable(symbol, err)
	}
	if len(series) == 0 {
		return domain.IndicatorSnapshot{}, domain.SourceUnavailable(symbol, errors.New("no bars returned"))
	}

	snapshot := indicators.FromBars(symbol, now, series, c.benchmark(now))
	c.log.Debug().
		Str("symbol", symbol).
		Int("bars", len(series)).
		Int("fields", len(snapshot.Fields())).
		Msg("Built indicator snapshot")
	return snapshot, nil
}

// Position returns the open position for symbol, or nil when none is held.
func (c *Client) Position(ctx context.Context, symbol string) (*domain.Position, error) {
	p, err := c.trading.GetPosition(symbol)
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get position %s: %w", symbol, err)
	}
	pos, err := c.toDomain(ctx, *p)
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

// OpenPositions returns all open positions.
func (c *Client) OpenPositions(ctx context.Context) ([]domain.Position, error) {
	raw, err := c.trading.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	out := make([]domain.Position, 0, len(raw))
	held := make([]string, 0, len(raw))
	for _, p := range raw {
		pos, err := c.toDomain(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
		held = append(held, p.Symbol)
	}

	// A full listing is the only point where closed positions are known.
	if f, ok := c.clock.(forgetter); ok {
		if n, err := f.Forget(ctx, held); err != nil {
			c.log.Warn().Err(err).Msg("Failed to prune position clock")
		} else if n > 0 {
			c.log.Debug().Int64("forgotten", n).Msg("Pruned closed positions from clock")
		}
	}
	return out, nil
}

func (c *Client) toDomain(ctx context.Context, p alpaca.Position) (domain.Position, error) {
	qty, _ := p.Qty.Abs().Float64()
	entry, _ := p.AvgEntryPrice.Float64()
	side := domain.SideLong
	if p.Side == string(domain.SideShort) || p.Qty.Sign() < 0 {
		side = domain.SideShort
	}
	pos := domain.Position{
		Symbol:       p.Symbol,
		Side:         side,
		Quantity:     qty,
		EntryPrice:   entry,
		CurrentPrice: decimalOr(p.CurrentPrice, entry),
	}

	if c.clock != nil {
		opened, err := c.clock.FirstSeen(ctx, p.Symbol, c.now().UTC())
		if err != nil {
			return domain.Position{}, err
		}
		pos.OpenedAt = opened
	}
	return pos, nil
}

func decimalOr(d *decimal.Decimal, fallback float64) float64 {
	if d == nil {
		return fallback
	}
	v, _ := d.Float64()
	return v
}
