// Package worker runs periodic maintenance jobs (availability exports and
// database backups) on cron schedules with retry.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"breezbook/internal/calendar"
	"breezbook/internal/config"
	"breezbook/internal/metrics"
)

const (
	JobExport = "export"
	JobBackup = "backup"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

type entry struct {
	name string
	spec string
	job  Job
	id   cron.EntryID
}

// Scheduler runs named jobs on cron specs. A run that is still going when
// its next tick fires is skipped.
type Scheduler struct {
	cron   *cron.Cron
	retry  RetryPolicy
	logger *zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
	cancel  context.CancelFunc

	sleep func(ctx context.Context, d time.Duration) error
}

func NewScheduler(cfg config.SchedulerConfig, loc *time.Location, logger *zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	clog := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		retry: RetryPolicy{
			MaxRetries:    cfg.MaxRetries,
			InitialDelay:  5 * time.Second,
			MaxDelay:      5 * time.Minute,
			BackoffFactor: 2,
		},
		logger:  logger,
		entries: make(map[string]*entry),
		ctx:     context.Background(),
		sleep:   sleepContext,
	}
}

// Add registers job under name. An empty spec leaves the job runnable only
// through RunNow.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if name == "" || job == nil {
		return errors.New("job name and func are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}

	e := &entry{name: name, spec: spec, job: job}
	if spec != "" {
		id, err := s.cron.AddFunc(spec, func() { _ = s.run(s.baseContext(), e) })
		if err != nil {
			return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
		}
		e.id = id
	}
	s.entries[name] = e
	return nil
}

// Jobs lists registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next reports when name fires next; zero if it has no schedule or the
// scheduler is not running.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok || e.id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(e.id).Next
}

// RunNow runs name synchronously with retries.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.run(ctx, e)
}

// Start begins firing scheduled jobs. Jobs see ctx, which is cancelled by
// Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	for _, name := range s.Jobs() {
		if next := s.Next(name); !next.IsZero() {
			s.logger.Info().Str("job", name).Time("next_run", next).Msg("Job scheduled")
		}
	}
}

// Stop halts the scheduler and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("Scheduler stop timed out")
	}
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) run(ctx context.Context, e *entry) error {
	retry := s.retry.withDefaults()
	started := time.Now()

	var err error
	for attempt := 0; ; attempt++ {
		if err = e.job(ctx); err == nil {
			break
		}
		if attempt >= retry.MaxRetries {
			break
		}
		if cerr := ctx.Err(); cerr != nil {
			err = errors.Join(err, cerr)
			break
		}

		delay := retry.NextDelay(attempt + 1)
		s.logger.Warn().Err(err).Str("job", e.name).Int("attempt", attempt+1).Dur("retry_in", delay).Msg("Job failed, retrying")
		if serr := s.sleep(ctx, delay); serr != nil {
			err = errors.Join(err, serr)
			break
		}
	}

	metrics.IncJob(e.name, err)
	if err != nil {
		s.logger.Error().Err(err).Str("job", e.name).Msg("Job failed")
		return err
	}
	s.logger.Info().Str("job", e.name).Dur("elapsed", time.Since(started)).Msg("Job completed")
	return nil
}

// Exporter writes an availability workbook and returns its path.
type Exporter interface {
	Export(ctx context.Context, dir string, from calendar.IsoDate, days int) (string, error)
}

// ExportJob exports cfg.Days of availability starting today in loc.
func ExportJob(exporter Exporter, cfg config.ExportConfig, clock calendar.Clock, loc *time.Location) Job {
	return func(ctx context.Context) error {
		_, err := exporter.Export(ctx, cfg.Path, calendar.Today(clock, loc), cfg.Days)
		return err
	}
}

// Backuper snapshots the database.
type Backuper interface {
	Run(ctx context.Context) error
}

func BackupJob(b Backuper) Job {
	return b.Run
}

// cronLogger routes cron's internal logging into zerolog.
type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
