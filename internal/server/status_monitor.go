package server

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tradesignal/internal/events"
	"github.com/aristath/tradesignal/internal/modules/market_hours"
)

// BreakerReporter exposes a circuit breaker state name.
type BreakerReporter interface {
	BreakerState() string
}

// StatusMonitor periodically checks component states and emits events on changes
type StatusMonitor struct {
	eventManager *events.Manager
	breaker      BreakerReporter
	marketHours  *market_hours.Service
	window       market_hours.Window
	now          func() time.Time
	log          zerolog.Logger

	// Track previous states
	last map[string]string
}

// NewStatusMonitor creates a new status monitor. breaker and marketHours may be nil.
func NewStatusMonitor(
	eventManager *events.Manager,
	breaker BreakerReporter,
	marketHours *market_hours.Service,
	log zerolog.Logger,
) *StatusMonitor {
	return &StatusMonitor{
		eventManager: eventManager,
		breaker:      breaker,
		marketHours:  marketHours,
		window:       market_hours.DefaultWindow(),
		now:          time.Now,
		log:          log.With().Str("component", "status_monitor").Logger(),
		last:         make(map[string]string),
	}
}

// Run checks statuses every interval until ctx is cancelled.
func (m *StatusMonitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Do initial check
	m.checkStatuses()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkStatuses()
		}
	}
}

// checkStatuses checks all monitored statuses and emits events on changes
func (m *StatusMonitor) checkStatuses() {
	if m.breaker != nil {
		m.observe("indicator_source", m.breaker.BreakerState())
	}

	if m.marketHours != nil {
		open, err := m.marketHours.IsOpen(m.window, m.now())
		if err != nil {
			m.log.Warn().Err(err).Msg("Failed to check market status")
			return
		}
		status := "closed"
		if open {
			status = "open"
		}
		m.observe("market", status)
	}
}

// observe records a state and emits SYSTEM_STATUS_CHANGED when it differs from the last one.
// The first observation of a component is recorded silently.
func (m *StatusMonitor) observe(component, status string) {
	previous, seen := m.last[component]
	m.last[component] = status
	if !seen || previous == status {
		return
	}

	m.log.Info().
		Str("status_component", component).
		Str("status", status).
		Str("previous", previous).
		Msg("Status changed")

	if m.eventManager != nil {
		m.eventManager.EmitTyped("status_monitor", &events.SystemStatusChangedData{
			Component: component,
			Status:    status,
			Previous:  previous,
		})
	}
}
