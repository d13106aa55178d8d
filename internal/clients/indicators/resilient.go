package indicators

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ResilientConfig tunes the protection placed around an upstream source.
type ResilientConfig struct {
	RatePerSecond    float64       // token bucket refill rate; <= 0 disables limiting
	Burst            int           // token bucket size
	MaxRetries       int           // retries after the first attempt
	BaseDelay        time.Duration // first backoff delay, doubled per retry
	MaxDelay         time.Duration // backoff ceiling
	CacheTTL         time.Duration // 0 disables caching
	FailureThreshold uint32        // consecutive failures that open the breaker
	OpenTimeout      time.Duration // how long the breaker stays open
}

// DefaultResilientConfig returns 5 req/s, 3 retries from 200ms and a one minute cache.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		RatePerSecond:    5,
		Burst:            5,
		MaxRetries:       3,
		BaseDelay:        200 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		CacheTTL:         time.Minute,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Resilient wraps an IndicatorSource with a rate limiter, bounded exponential-backoff
// retry, a circuit breaker and a snapshot cache. Every upstream failure it returns matches
// domain.ErrIndicatorSourceUnavailable.
type Resilient struct {
	source  domain.IndicatorSource
	cfg     ResilientConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cache   Cache
	sleep   func(ctx context.Context, d time.Duration) error
	log     zerolog.Logger
}

// NewResilient creates the wrapper. cache may be nil.
func NewResilient(source domain.IndicatorSource, cfg ResilientConfig, cache Cache, log zerolog.Logger) *Resilient {
	log = log.With().Str("component", "indicator_source").Logger()

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "indicator_source",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// Cancellation says nothing about upstream health.
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	return &Resilient{
		source:  source,
		cfg:     cfg,
		limiter: limiter,
		breaker: breaker,
		cache:   cache,
		sleep:   sleepContext,
		log:     log,
	}
}

// BreakerState returns the circuit breaker state name.
func (r *Resilient) BreakerState() string {
	return r.breaker.State().String()
}

// GetSnapshot returns a cached snapshot when fresh, otherwise fetches one from upstream.
func (r *Resilient) GetSnapshot(ctx context.Context, symbol string) (domain.IndicatorSnapshot, error) {
	key := "snapshot:" + symbol
	if r.cache != nil && r.cfg.CacheTTL > 0 {
		if b, ok := r.cache.Get(ctx, key); ok {
			snapshot, err := decodeSnapshot(b)
			if err == nil {
				return snapshot, nil
			}
			r.log.Warn().Err(err).Str("symbol", symbol).Msg("Discarding unreadable cached snapshot")
		}
	}

	snapshot, err := r.fetch(ctx, symbol)
	if err != nil {
		return domain.IndicatorSnapshot{}, err
	}

	if r.cache != nil && r.cfg.CacheTTL > 0 {
		if b, err := encodeSnapshot(snapshot); err == nil {
			r.cache.Set(ctx, key, b, r.cfg.CacheTTL)
		}
	}
	return snapshot, nil
}

func (r *Resilient) fetch(ctx context.Context, symbol string) (domain.IndicatorSnapshot, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(r.cfg.BaseDelay, r.cfg.MaxDelay, attempt)
			r.log.Debug().Str("symbol", symbol).Int("attempt", attempt).Dur("delay", delay).Msg("Retrying indicator fetch")
			if err := r.sleep(ctx, delay); err != nil {
				return domain.IndicatorSnapshot{}, err
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return domain.IndicatorSnapshot{}, fmt.Errorf("rate limiter wait for %s: %w", symbol, err)
		}

		result, err := r.breaker.Execute(func() (interface{}, error) {
			return r.source.GetSnapshot(ctx, symbol)
		})
		if err == nil {
			return result.(domain.IndicatorSnapshot), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.IndicatorSnapshot{}, ctxErr
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.IndicatorSnapshot{}, domain.SourceUnavailable(symbol, err)
		}
		lastErr = err
	}

	r.log.Warn().Err(lastErr).Str("symbol", symbol).Int("attempts", r.cfg.MaxRetries+1).Msg("Indicator source exhausted retries")
	if errors.Is(lastErr, domain.ErrIndicatorSourceUnavailable) {
		return domain.IndicatorSnapshot{}, lastErr
	}
	return domain.IndicatorSnapshot{}, domain.SourceUnavailable(symbol, lastErr)
}

func backoff(base, ceiling time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if ceiling > 0 && (d > ceiling || d <= 0) {
		return ceiling
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
