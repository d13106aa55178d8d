package reliability

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/aristath/tradesignal/internal/database"
	"github.com/rs/zerolog"
)

// BackupService writes consistent local copies of the service databases.
type BackupService struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewBackupService creates a backup service over the named databases.
func NewBackupService(databases map[string]*database.DB, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases: databases,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// DatabaseNames returns the names of the databases that are backed up, sorted.
func (s *BackupService) DatabaseNames() []string {
	names := make([]string, 0, len(s.databases))
	for name, db := range s.databases {
		if db != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// BackupDatabase copies one database to dest with VACUUM INTO. An existing file at dest
// is replaced.
func (s *BackupService) BackupDatabase(ctx context.Context, name, dest string) error {
	db, ok := s.databases[name]
	if !ok || db == nil {
		return fmt.Errorf("unknown database: %s", name)
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale backup %s: %w", dest, err)
	}
	if err := db.VacuumInto(ctx, dest); err != nil {
		return err
	}
	s.log.Debug().Str("database", name).Str("path", dest).Msg("Database copied")
	return nil
}
