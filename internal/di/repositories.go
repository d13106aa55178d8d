package di

import (
	"fmt"

	"github.com/aristath/tradesignal/internal/modules/history"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container.ConfigDB == nil || container.HistoryDB == nil {
		return fmt.Errorf("databases must be initialized first")
	}

	configConn := container.ConfigDB.Conn()
	historyConn := container.HistoryDB.Conn()

	// config.db
	container.StrategyRepo = history.NewStrategyRepository(configConn, log)

	// history.db
	container.ScoreRepo = history.NewScoreRepository(historyConn, log)
	container.SignalRepo = history.NewSignalRepository(historyConn, log)
	container.AssessmentRepo = history.NewAssessmentRepository(historyConn, log)
	container.PositionClock = history.NewPositionClock(historyConn, log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
