package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/pkg/logger"
)

// Job is the work run when a source's trigger fires
type Job func(ctx context.Context) error

var cronExpressions = map[models.ScheduleFrequency]string{
	models.ScheduleHourly:  "0 * * * *",
	models.ScheduleDaily:   "0 9 * * *",
	models.ScheduleWeekly:  "0 9 * * 1",
	models.ScheduleMonthly: "0 9 1 * *",
}

// CronExpression returns the recurrence for freq. Manual has none and
// reports false, as does an unknown frequency.
func CronExpression(freq models.ScheduleFrequency) (string, bool) {
	spec, ok := cronExpressions[freq]
	return spec, ok
}

// Scheduler owns one cron entry per source
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.Mutex
	entries map[models.SourceType]cron.EntryID
	ctx     context.Context
	log     *logger.Logger
}

// New creates a scheduler in the local time zone. Jobs receive ctx.
func New(ctx context.Context, log *logger.Logger) *Scheduler {
	log = log.WithComponent("scheduler")
	cl := cronLogger{log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			// Recover must sit inside SkipIfStillRunning, which releases its
			// slot only when the wrapped job returns normally.
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		entries: make(map[models.SourceType]cron.EntryID),
		ctx:     ctx,
		log:     log,
	}
}

// Schedule installs the trigger for sourceType, replacing any previous one.
// Manual installs nothing and removes a previous trigger.
func (s *Scheduler) Schedule(sourceType models.SourceType, freq models.ScheduleFrequency, job Job) error {
	if !freq.Valid() {
		return fmt.Errorf("unknown schedule frequency %q", freq)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[sourceType]; ok {
		s.cron.Remove(id)
		delete(s.entries, sourceType)
	}

	spec, ok := CronExpression(freq)
	if !ok {
		s.log.Info().Str("source_type", string(sourceType)).Msg("Manual schedule, no trigger installed")
		return nil
	}

	if err := s.install(sourceType, spec, job); err != nil {
		return err
	}

	s.log.Info().
		Str("source_type", string(sourceType)).
		Str("schedule", string(freq)).
		Str("cron", spec).
		Msg("Source scheduled")
	return nil
}

// install adds the cron entry. The caller holds s.mu.
func (s *Scheduler) install(sourceType models.SourceType, spec string, job Job) error {
	id, err := s.cron.AddFunc(spec, func() {
		s.run(sourceType, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", sourceType, err)
	}
	s.entries[sourceType] = id
	return nil
}

// run absorbs the job's error so other triggers keep firing
func (s *Scheduler) run(sourceType models.SourceType, job Job) {
	if err := job(s.ctx); err != nil {
		s.log.Error().
			Err(err).
			Str("source_type", string(sourceType)).
			Str("operation", "scheduled_run").
			Msg("Scheduled collection failed")
	}
}

// Unschedule removes the trigger of sourceType if any
func (s *Scheduler) Unschedule(sourceType models.SourceType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[sourceType]; ok {
		s.cron.Remove(id)
		delete(s.entries, sourceType)
	}
}

// Scheduled returns the source types that currently have a trigger
func (s *Scheduler) Scheduled() []models.SourceType {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.SourceType, 0, len(s.entries))
	for _, t := range models.AllSourceTypes {
		if _, ok := s.entries[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Next returns when the trigger of sourceType fires next. It is zero until
// the scheduler has been started.
func (s *Scheduler) Next(sourceType models.SourceType) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[sourceType]
	s.mu.Unlock()

	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// StartAll starts firing every installed trigger
func (s *Scheduler) StartAll() {
	s.cron.Start()
	s.log.Info().Int("triggers", len(s.Scheduled())).Msg("Scheduler started")
}

// StopAll stops firing triggers. Entries are kept, so StartAll resumes them.
// The returned context is done once running jobs have finished.
func (s *Scheduler) StopAll() context.Context {
	ctx := s.cron.Stop()
	s.log.Info().Msg("Scheduler stopped")
	return ctx
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
