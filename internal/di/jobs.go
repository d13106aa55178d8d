package di

import (
	"fmt"

	"github.com/aristath/tradesignal/internal/config"
	"github.com/aristath/tradesignal/internal/reliability"
	"github.com/aristath/tradesignal/internal/scheduler"
	"github.com/rs/zerolog"
)

// maintenanceSchedule runs daily at 02:30.
const maintenanceSchedule = "0 30 2 * * *"

// RegisterJobs creates the scheduler and registers one batch job per strategy, the
// maintenance job and, when R2 is configured, the backup job. The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.Runner == nil {
		return fmt.Errorf("services must be initialized first")
	}

	s := scheduler.New(log)
	universe := func() []string { return container.Symbols }

	for _, st := range container.Registry.Strategies() {
		job := scheduler.NewScoringBatchJob(container.Runner, st.ID, universe, cfg.BatchTimeout, log)
		if err := s.AddJob(cfg.Schedule, job); err != nil {
			return fmt.Errorf("failed to register batch job for %s: %w", st.ID, err)
		}
	}

	if err := s.AddJob(maintenanceSchedule, reliability.NewMaintenanceJob(container.Databases(), cfg.DataDir, log)); err != nil {
		return fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if container.BackupService != nil {
		job := reliability.NewBackupJob(container.BackupService, cfg.R2.RetentionDays, log)
		if err := s.AddJob(cfg.R2.Schedule, job); err != nil {
			return fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	container.Scheduler = s
	return nil
}
