// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/tradesignal/internal/clients/indicators"
	"github.com/aristath/tradesignal/internal/database"
	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/events"
	"github.com/aristath/tradesignal/internal/metrics"
	"github.com/aristath/tradesignal/internal/modules/history"
	"github.com/aristath/tradesignal/internal/modules/market_hours"
	"github.com/aristath/tradesignal/internal/modules/pipeline"
	"github.com/aristath/tradesignal/internal/modules/risk"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/aristath/tradesignal/internal/modules/signals"
	"github.com/aristath/tradesignal/internal/publisher"
	"github.com/aristath/tradesignal/internal/reliability"
	"github.com/aristath/tradesignal/internal/scheduler"
)

// Container holds all dependencies for the application.
//
// It is created by Wire and handed to the server and CLI. Optional integrations
// (Alpaca, Kafka, R2, Redis) are nil when their configuration is absent.
type Container struct {
	// Databases
	ConfigDB  *database.DB
	HistoryDB *database.DB

	// Repositories
	ScoreRepo      *history.ScoreRepository
	SignalRepo     *history.SignalRepository
	AssessmentRepo *history.AssessmentRepository
	StrategyRepo   *history.StrategyRepository
	PositionClock  *history.PositionClock

	// Events and metrics
	EventBus     *events.Bus
	EventManager *events.Manager
	Metrics      *metrics.Registry
	Publisher    *publisher.Publisher

	// Indicator and position sources
	Source    domain.IndicatorSource
	Resilient *indicators.Resilient
	Cache     indicators.Cache
	Positions domain.PositionProvider

	// Services
	Registry           *scoring.Registry
	ScoringService     *scoring.Service
	Scorer             *scoring.Scorer
	MarketHoursService *market_hours.Service
	SignalEngine       *signals.Engine
	RiskService        *risk.Service
	Runner             *pipeline.Runner
	BackupService      *reliability.R2BackupService

	// Scheduling
	Scheduler *scheduler.Scheduler

	// Symbols is the default universe for scheduled and API-triggered batches.
	Symbols []string

	closers []func() error
}
