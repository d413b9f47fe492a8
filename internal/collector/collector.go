package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/activity-collector/internal/config"
	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/internal/push"
	"github.com/activity-collector/internal/scheduler"
	"github.com/activity-collector/internal/source"
	"github.com/activity-collector/pkg/logger"
)

//go:generate mockgen -destination=mocks/mock_pusher.go -package=mocks -source=collector.go Pusher

// Pusher delivers collection results to the ingestion API
type Pusher interface {
	PushData(ctx context.Context, result *models.CollectionResult, runID string) (*push.IngestResponse, error)
	HealthCheck(ctx context.Context) bool
}

// Report describes one collect-and-push cycle
type Report struct {
	RunID      string                   `json:"runId" yaml:"runId"`
	SourceType models.SourceType        `json:"sourceType" yaml:"sourceType"`
	Outcome    string                   `json:"outcome" yaml:"outcome"`
	Result     *models.CollectionResult `json:"result,omitempty" yaml:"result,omitempty"`
	Response   *push.IngestResponse     `json:"response,omitempty" yaml:"response,omitempty"`
	Duration   time.Duration            `json:"duration" yaml:"duration"`
	Error      string                   `json:"error,omitempty" yaml:"error,omitempty"` // text of the error RunSource returned
}

// Collector validates the configured sources and runs their cycles, either on
// demand or from the scheduler
type Collector struct {
	registry  *source.Registry
	cfg       config.SourcesConfig
	pusher    Pusher
	scheduler *scheduler.Scheduler
	metrics   *Metrics
	log       *logger.Logger

	mu      sync.RWMutex
	sources map[models.SourceType]source.Source
	running map[models.SourceType]*sync.Mutex

	dryRun   bool
	newRunID func() string
}

// New creates a collector. sched and metrics may be nil for one-shot runs.
func New(registry *source.Registry, cfg config.SourcesConfig, pusher Pusher, sched *scheduler.Scheduler, metrics *Metrics, log *logger.Logger) *Collector {
	return &Collector{
		registry:  registry,
		cfg:       cfg,
		pusher:    pusher,
		scheduler: sched,
		metrics:   metrics,
		log:       log.WithComponent("collector"),
		sources:   make(map[models.SourceType]source.Source),
		running:   make(map[models.SourceType]*sync.Mutex),
		newRunID:  uuid.NewString,
	}
}

// SetDryRun makes cycles collect without pushing
func (c *Collector) SetDryRun(dryRun bool) {
	c.dryRun = dryRun
}

// ValidateSources builds every enabled source and keeps those that validate.
// Sources failing validation are dropped with a warning.
func (c *Collector) ValidateSources(ctx context.Context) ([]models.SourceType, error) {
	validated := make(map[models.SourceType]source.Source)
	var order []models.SourceType

	for _, t := range models.AllSourceTypes {
		settings, _ := c.cfg.Settings(t)
		if !settings.Enabled {
			c.log.Debug().Str("source_type", string(t)).Msg("Source disabled")
			continue
		}

		src := c.registry.Create(t, c.cfg, c.log)
		if src == nil {
			c.log.Warn().Str("source_type", string(t)).Msg("No implementation registered for source")
			continue
		}

		if err := src.Validate(ctx); err != nil {
			c.log.Warn().
				Err(err).
				Str("source_type", string(t)).
				Str("operation", "validate").
				Msg("Source failed validation, disabling it for this run")
			continue
		}

		validated[t] = src
		order = append(order, t)
	}

	c.mu.Lock()
	c.sources = validated
	for _, t := range order {
		if _, ok := c.running[t]; !ok {
			c.running[t] = &sync.Mutex{}
		}
	}
	c.mu.Unlock()

	if len(order) == 0 {
		return nil, models.ErrNoSourcesValidated
	}

	c.log.Info().Int("sources", len(order)).Msg("Sources validated")
	return order, nil
}

// Sources returns the validated source types
func (c *Collector) Sources() []models.SourceType {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.SourceType, 0, len(c.sources))
	for _, t := range models.AllSourceTypes {
		if _, ok := c.sources[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Start probes the API, installs a trigger per validated source and starts
// the scheduler. The probe result is only logged.
func (c *Collector) Start(ctx context.Context) error {
	if c.scheduler == nil {
		return errors.New("collector has no scheduler")
	}

	if c.pusher.HealthCheck(ctx) {
		c.log.Info().Msg("Ingestion API is reachable")
	} else {
		c.log.Warn().Msg("Ingestion API health check failed, continuing")
	}

	for _, t := range c.Sources() {
		settings, _ := c.cfg.Settings(t)
		sourceType := t
		err := c.scheduler.Schedule(sourceType, settings.Schedule, func(ctx context.Context) error {
			_, err := c.RunSource(ctx, sourceType)
			if errors.Is(err, models.ErrCycleInProgress) {
				return nil
			}
			return err
		})
		if err != nil {
			return err
		}
	}

	c.scheduler.StartAll()
	return nil
}

// Stop halts every trigger. Cycles already running finish on their own; the
// returned context is done when they have.
func (c *Collector) Stop() context.Context {
	if c.scheduler == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return c.scheduler.StopAll()
}

// RunSource runs one cycle for sourceType. It returns ErrUnknownSource if the
// source was not validated and ErrCycleInProgress if a cycle for the same
// source is still running.
func (c *Collector) RunSource(ctx context.Context, sourceType models.SourceType) (*Report, error) {
	c.mu.RLock()
	src, ok := c.sources[sourceType]
	lock := c.running[sourceType]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownSource, sourceType)
	}

	if !lock.TryLock() {
		c.log.Warn().Str("source_type", string(sourceType)).Msg("Previous cycle still running, skipping")
		c.metrics.observeCycle(sourceType, OutcomeSkipped, 0)
		return nil, fmt.Errorf("%s: %w", sourceType, models.ErrCycleInProgress)
	}
	defer lock.Unlock()

	return c.cycle(ctx, src)
}

// RunAll runs one cycle for every validated source concurrently. A failing
// source does not stop the others; their errors are joined.
func (c *Collector) RunAll(ctx context.Context) ([]*Report, error) {
	types := c.Sources()
	reports := make([]*Report, len(types))
	errs := make([]error, len(types))

	var g errgroup.Group
	for i, t := range types {
		g.Go(func() error {
			reports[i], errs[i] = c.RunSource(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, errors.Join(errs...)
}

// cycle collects, then pushes when there is something to push
func (c *Collector) cycle(ctx context.Context, src source.Source) (*Report, error) {
	start := time.Now()
	t := src.Type()
	report := &Report{RunID: c.newRunID(), SourceType: t}
	log := c.log.WithRunID(report.RunID).WithSource(string(t), string(t))

	finish := func(outcome string, err error) (*Report, error) {
		report.Outcome = outcome
		report.Duration = time.Since(start)
		if err != nil {
			report.Error = err.Error()
		}
		c.metrics.observeCycle(t, outcome, report.Duration)
		return report, err
	}

	log.Info().Msg("Collection started")

	result := src.Collect(ctx)
	report.Result = result

	if !result.Success {
		err := models.NewSourceError(t, "collect", errors.New(result.Error))
		log.Error().Err(err).Str("operation", "collect").Msg("Collection failed")
		return finish(OutcomeCollectFailed, err)
	}

	c.metrics.observeItems(t, result.ItemsCollected, 0)

	if result.ItemsCollected == 0 {
		log.Info().Msg("Nothing collected, skipping push")
		return finish(OutcomeEmpty, nil)
	}

	if c.dryRun {
		log.Info().Int("items", result.ItemsCollected).Msg("Dry run, skipping push")
		return finish(OutcomeDryRun, nil)
	}

	resp, err := c.pusher.PushData(ctx, result, report.RunID)
	if err != nil {
		err = models.NewSourceError(t, "push", err)
		log.Error().Err(err).Str("operation", "push").Int("items", result.ItemsCollected).Msg("Push failed")
		return finish(OutcomePushFailed, err)
	}
	report.Response = resp
	c.metrics.observeItems(t, 0, resp.ItemsInserted)

	log.Info().
		Int("items_collected", result.ItemsCollected).
		Int("items_received", resp.ItemsReceived).
		Int("items_inserted", resp.ItemsInserted).
		Dur("duration", time.Since(start)).
		Msg("Collection pushed")

	return finish(OutcomePushed, nil)
}
