package di

import (
	"context"
	"fmt"

	"github.com/aristath/tradesignal/internal/clients/alpaca"
	"github.com/aristath/tradesignal/internal/clients/indicators"
	"github.com/aristath/tradesignal/internal/config"
	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/events"
	"github.com/aristath/tradesignal/internal/metrics"
	"github.com/aristath/tradesignal/internal/modules/market_hours"
	"github.com/aristath/tradesignal/internal/modules/pipeline"
	"github.com/aristath/tradesignal/internal/modules/risk"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/aristath/tradesignal/internal/modules/scoring/directives"
	"github.com/aristath/tradesignal/internal/modules/signals"
	"github.com/aristath/tradesignal/internal/publisher"
	"github.com/aristath/tradesignal/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices builds the scoring pipeline and its integrations
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, sf config.StrategyFile, log zerolog.Logger) error {
	if container.ScoreRepo == nil {
		return fmt.Errorf("repositories must be initialized first")
	}

	// Events and metrics
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)
	container.Metrics = metrics.NewRegistry()

	// Directive registry: built-ins named in the strategy file, all of them otherwise
	container.Registry = scoring.NewRegistry(directives.Builtins(), log)
	if err := container.Registry.RegisterBuiltins(sf.Directives...); err != nil {
		return fmt.Errorf("failed to register directives: %w", err)
	}
	container.ScoringService = scoring.NewService(container.Registry, container.StrategyRepo, container.StrategyRepo, log)
	if err := container.ScoringService.Restore(ctx, sf.Strategies); err != nil {
		return fmt.Errorf("failed to restore strategies: %w", err)
	}

	opts, err := sf.ScorerOptions()
	if err != nil {
		return err
	}
	container.Scorer = scoring.NewScorer(container.ScoreRepo, opts, log)

	// Signal decision engine
	rule, ok := signals.RuleByName(sf.DirectionRule)
	if !ok {
		return fmt.Errorf("unknown direction rule %q", sf.DirectionRule)
	}
	container.MarketHoursService = market_hours.NewService()
	container.SignalEngine = signals.NewEngine(rule, signals.DefaultGates(container.MarketHoursService), log)

	// Risk stage
	model := risk.DefaultRiskModel()
	if sf.RiskModel != nil {
		model = *sf.RiskModel
	}
	assessor, err := risk.NewAssessor(model, log)
	if err != nil {
		return fmt.Errorf("failed to create risk assessor: %w", err)
	}
	container.RiskService = risk.NewService(assessor, container.AssessmentRepo, log)

	// Indicator source and positions
	initializeSources(container, cfg, log)

	// Kafka publishing of fired signals and risk actions
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := publisher.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			return fmt.Errorf("failed to connect to kafka: %w", err)
		}
		container.Publisher = publisher.New(producer, publisher.Topics{
			Signals:     cfg.Kafka.SignalTopic,
			RiskActions: cfg.Kafka.RiskTopic,
		}, log)
		detach := container.Publisher.Attach(container.EventBus)
		container.closers = append(container.closers, func() error {
			detach()
			return container.Publisher.Close()
		})
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka publishing enabled")
	}

	// R2 backups
	if cfg.R2.Enabled() {
		client, err := reliability.NewR2Client(ctx, reliability.R2Config{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			Bucket:          cfg.R2.Bucket,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create r2 client: %w", err)
		}
		backups := reliability.NewBackupService(container.Databases(), log)
		container.BackupService = reliability.NewR2BackupService(client, backups, cfg.DataDir, log)
	}

	container.Symbols = cfg.Symbols
	container.Runner = pipeline.NewRunner(pipeline.Dependencies{
		Source:    container.Source,
		Registry:  container.Registry,
		Scorer:    container.Scorer,
		Engine:    container.SignalEngine,
		Risk:      container.RiskService,
		Positions: container.Positions,
		Signals:   container.SignalRepo,
		Events:    container.EventManager,
		Metrics:   container.Metrics,
		Reference: sf.Reference,
	}, cfg.Concurrency, log)

	log.Info().
		Int("directives", len(container.Registry.Directives())).
		Int("strategies", len(container.Registry.Strategies())).
		Str("risk_model", model.ID).
		Msg("Services initialized")
	return nil
}

func initializeSources(container *Container, cfg *config.Config, log zerolog.Logger) {
	var upstream domain.IndicatorSource
	if cfg.Alpaca.Enabled() {
		client := alpaca.NewClient(alpaca.Config{
			APIKey:          cfg.Alpaca.APIKey,
			APISecret:       cfg.Alpaca.APISecret,
			BaseURL:         cfg.Alpaca.BaseURL,
			Feed:            cfg.Alpaca.Feed,
			BenchmarkSymbol: cfg.Alpaca.BenchmarkSymbol,
		}, container.PositionClock, log)
		upstream = client
		container.Positions = client
	} else {
		log.Warn().Msg("Alpaca credentials not set, using an empty static indicator source")
		upstream = indicators.NewStatic(nil)
	}

	container.Cache = indicators.NewCache(cfg.Source.RedisAddr)
	if closer, ok := container.Cache.(interface{ Close() error }); ok {
		container.closers = append(container.closers, closer.Close)
	}

	rc := indicators.DefaultResilientConfig()
	rc.RatePerSecond = cfg.Source.RatePerSecond
	rc.CacheTTL = cfg.Source.CacheTTL
	container.Resilient = indicators.NewResilient(upstream, rc, container.Cache, log)
	container.Source = container.Resilient
}
