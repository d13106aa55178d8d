package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/tradesignal/internal/di"
	"github.com/aristath/tradesignal/internal/scheduler"
)

// SystemHandlers serves monitoring endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	container   *di.Container
	dataDir     string
	startupTime time.Time
	stats       func() (float64, float64)
}

// DatabaseStatus is the size and health of one database.
type DatabaseStatus struct {
	Name      string  `json:"name"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
	Pages     int64   `json:"pages"`
	Schema    int     `json:"schema_version"`
	FreePages int64   `json:"free_pages"`
	Error     string  `json:"error,omitempty"`
}

// SystemStatus is the response of GET /api/system/status.
type SystemStatus struct {
	Status        string           `json:"status"`
	Version       string           `json:"version"`
	DataDir       string           `json:"data_dir"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryPercent float64          `json:"memory_percent"`
	SourceBreaker string           `json:"source_breaker,omitempty"`
	Strategies    int              `json:"strategies"`
	Directives    int              `json:"directives"`
	Universe      int              `json:"universe"`
	Subscribers   int              `json:"event_subscribers"`
	Databases     []DatabaseStatus `json:"databases"`
	Jobs          int              `json:"jobs"`
}

// NewSystemHandlers creates the monitoring handlers.
func NewSystemHandlers(container *di.Container, dataDir string, startupTime time.Time, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		container:   container,
		dataDir:     dataDir,
		startupTime: startupTime,
	}
	h.stats = h.getSystemStats
	return h
}

// HandleStatus returns process, database and pipeline status.
// GET /api/system/status
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	c := h.container
	status := SystemStatus{
		Status:        "healthy",
		Version:       Version,
		DataDir:       h.dataDir,
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		Universe:      len(c.Symbols),
		Databases:     h.databaseStatus(r.Context()),
	}
	status.CPUPercent, status.MemoryPercent = h.stats()

	if c.Resilient != nil {
		status.SourceBreaker = c.Resilient.BreakerState()
		if status.SourceBreaker == "open" {
			status.Status = "degraded"
		}
	}
	if c.Registry != nil {
		status.Strategies = len(c.Registry.Strategies())
		status.Directives = len(c.Registry.Directives())
	}
	if c.EventBus != nil {
		status.Subscribers = c.EventBus.Subscribers()
	}
	if c.Scheduler != nil {
		status.Jobs = len(c.Scheduler.Jobs())
	}
	for _, db := range status.Databases {
		if db.Error != "" {
			status.Status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, status)
}

// HandleJobs lists scheduled jobs with their last run.
// GET /api/system/jobs
func (h *SystemHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.container.Scheduler != nil {
		jobs = h.container.Scheduler.Jobs()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": jobs,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(jobs),
		},
	})
}

func (h *SystemHandlers) databaseStatus(ctx context.Context) []DatabaseStatus {
	dbs := h.container.Databases()
	names := make([]string, 0, len(dbs))
	for name := range dbs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]DatabaseStatus, 0, len(names))
	for _, name := range names {
		s := DatabaseStatus{Name: name}
		stats, err := dbs[name].Stats(ctx)
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			s.Error = err.Error()
		} else {
			s.SizeMB = float64(stats.SizeBytes) / 1024 / 1024
			s.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
			s.Pages = stats.PageCount
			s.FreePages = stats.FreelistCount
			s.Schema = stats.SchemaVersion
		}
		out = append(out, s)
	}
	return out
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms keeps the endpoint responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
