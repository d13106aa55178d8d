package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/tradesignal/internal/modules/pipeline"
	"github.com/rs/zerolog"
)

// BatchRunner runs one scoring batch.
type BatchRunner interface {
	Run(ctx context.Context, strategyID string, symbols []string) (pipeline.BatchResult, error)
}

// ScoringBatchJob scores the symbol universe against one strategy.
type ScoringBatchJob struct {
	runner   BatchRunner
	strategy string
	symbols  func() []string
	timeout  time.Duration
	log      zerolog.Logger
}

// NewScoringBatchJob creates a batch job. symbols is called on every run so the universe
// can change without re-registering the job.
func NewScoringBatchJob(runner BatchRunner, strategy string, symbols func() []string, timeout time.Duration, log zerolog.Logger) *ScoringBatchJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ScoringBatchJob{
		runner:   runner,
		strategy: strategy,
		symbols:  symbols,
		timeout:  timeout,
		log:      log.With().Str("job", "scoring_batch").Str("strategy", strategy).Logger(),
	}
}

// Name returns the job name
func (j *ScoringBatchJob) Name() string {
	return "scoring_batch:" + j.strategy
}

// Run executes the batch. Symbols that fail individually do not fail the job; symbols not
// started before the timeout do.
func (j *ScoringBatchJob) Run() error {
	symbols := j.symbols()
	if len(symbols) == 0 {
		j.log.Warn().Msg("No symbols configured, skipping batch")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	batch, err := j.runner.Run(ctx, j.strategy, symbols)
	if err != nil {
		return fmt.Errorf("failed to run batch for %s: %w", j.strategy, err)
	}
	if batch.Cancelled {
		return fmt.Errorf("batch %s timed out with %d symbols not started", batch.ID, len(batch.NotStarted))
	}
	return nil
}
