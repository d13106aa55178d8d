// Package scheduler runs scoring batches and maintenance jobs on cron schedules.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus is the last known state of a registered job.
type JobStatus struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	LastRun  time.Time `json:"last_run,omitempty"`
	LastErr  string    `json:"last_error,omitempty"`
	Running  bool      `json:"running"`
}

type entry struct {
	id       cron.EntryID
	schedule string
	job      Job
}

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.RWMutex
	entries []entry
	status  map[string]*JobStatus
	log     zerolog.Logger
}

// New creates a new scheduler. A job whose previous run is still in progress is skipped.
func New(log zerolog.Logger) *Scheduler {
	l := log.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger{l}), cron.SkipIfStillRunning(cronLogger{l})),
		),
		status: make(map[string]*JobStatus),
		log:    l,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "0 30 9 * * MON-FRI" - 9:30 AM weekdays
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.status[job.Name()]; exists {
		return fmt.Errorf("job %s is already registered", job.Name())
	}
	id, err := s.cron.AddFunc(schedule, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}
	s.entries = append(s.entries, entry{id: id, schedule: schedule, job: job})
	s.status[job.Name()] = &JobStatus{Name: job.Name(), Schedule: schedule}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.run(job)
}

func (s *Scheduler) run(job Job) error {
	name := job.Name()
	s.setStatus(name, func(st *JobStatus) { st.Running = true })
	s.log.Debug().Str("job", name).Msg("Running job")

	started := time.Now()
	err := job.Run()

	s.setStatus(name, func(st *JobStatus) {
		st.Running = false
		st.LastRun = started.UTC()
		st.LastErr = ""
		if err != nil {
			st.LastErr = err.Error()
		}
	})
	if err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("Job failed")
		return err
	}
	s.log.Debug().Str("job", name).Dur("duration", time.Since(started)).Msg("Job completed")
	return nil
}

func (s *Scheduler) setStatus(name string, fn func(*JobStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[name]
	if !ok {
		st = &JobStatus{Name: name}
		s.status[name] = st
	}
	fn(st)
}

// Jobs returns the status of every registered job in registration order.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.entries))
	for _, e := range s.entries {
		st := *s.status[e.job.Name()]
		st.Next = s.cron.Entry(e.id).Next
		out = append(out, st)
	}
	return out
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
