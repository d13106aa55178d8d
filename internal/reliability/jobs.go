package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/tradesignal/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// BackupJob uploads a backup and prunes the bucket.
type BackupJob struct {
	service       *R2BackupService
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewBackupJob creates the scheduled R2 backup job.
func NewBackupJob(service *R2BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		timeout:       30 * time.Minute,
		log:           log.With().Str("job", "r2_backup").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "r2_backup"
}

// Run creates, uploads and rotates backups.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}
	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		// The new backup is already stored.
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

// MaintenanceJob checkpoints the WAL of every database, runs a quick check and watches
// free disk space in the data directory.
type MaintenanceJob struct {
	databases map[string]*database.DB
	dataDir   string
	minFreeGB float64
	usage     func(path string) (*disk.UsageStat, error)
	log       zerolog.Logger
}

// NewMaintenanceJob creates the daily maintenance job.
func NewMaintenanceJob(databases map[string]*database.DB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		minFreeGB: 0.5,
		usage:     disk.Usage,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run executes the maintenance job. It fails only when a database is damaged or the disk
// is nearly full.
func (j *MaintenanceJob) Run() error {
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for name, db := range j.databases {
		if db == nil {
			continue
		}
		if err := db.IntegrityCheck(ctx); err != nil {
			return fmt.Errorf("database %s failed its integrity check: %w", name, err)
		}
		if err := db.Checkpoint(ctx, "TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}
		if stats, err := db.Stats(ctx); err == nil {
			j.log.Debug().
				Str("database", name).
				Int64("size_bytes", stats.SizeBytes).
				Int64("wal_bytes", stats.WALSizeBytes).
				Msg("Database stats")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().Dur("duration", time.Since(started)).Msg("Maintenance completed")
	return nil
}

func (j *MaintenanceJob) checkDiskSpace() error {
	u, err := j.usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to read disk usage for %s: %w", j.dataDir, err)
	}
	freeGB := float64(u.Free) / 1e9
	switch {
	case freeGB < j.minFreeGB:
		j.log.Error().Float64("free_gb", freeGB).Msg("Insufficient disk space")
		return fmt.Errorf("only %.2f GB free in %s", freeGB, j.dataDir)
	case freeGB < 5:
		j.log.Warn().Float64("free_gb", freeGB).Float64("used_pct", u.UsedPercent).Msg("Disk space running low")
	default:
		j.log.Debug().Float64("free_gb", freeGB).Msg("Disk space check")
	}
	return nil
}
