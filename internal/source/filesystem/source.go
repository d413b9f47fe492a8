package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/activity-collector/internal/config"
	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/internal/source"
	"github.com/activity-collector/pkg/logger"
)

// Source implements source.Source for recently modified files
type Source struct {
	cfg config.FilesystemConfig
	now func() time.Time
	log *logger.Logger
}

// New creates a new filesystem source
func New(cfg config.FilesystemConfig, log *logger.Logger) *Source {
	return &Source{
		cfg: cfg,
		now: time.Now,
		log: log.WithSource(string(models.SourceTypeFilesystem), "filesystem"),
	}
}

// Factory adapts New to source.Factory
func Factory(cfg config.SourcesConfig, log *logger.Logger) source.Source {
	return New(cfg.Filesystem, log)
}

// Type returns "filesystem"
func (s *Source) Type() models.SourceType {
	return models.SourceTypeFilesystem
}

// Validate checks the options and that at least one watch path is a directory
func (s *Source) Validate(_ context.Context) error {
	if _, err := newExcluder(s.cfg.ExcludePatterns); err != nil {
		return models.NewSourceError(models.SourceTypeFilesystem, "validate", err)
	}
	if _, err := s.cfg.MaxFileSizeBytes(); err != nil {
		return models.NewSourceError(models.SourceTypeFilesystem, "validate", err)
	}
	if len(s.cfg.WatchPaths) == 0 {
		return models.NewSourceError(models.SourceTypeFilesystem, "validate", errors.New("no watch_paths configured"))
	}

	usable := 0
	for _, p := range s.cfg.WatchPaths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			s.log.Warn().Str("path", p).Msg("Watch path does not exist or is not a directory")
			continue
		}
		usable++
	}
	if usable == 0 {
		return models.NewSourceError(models.SourceTypeFilesystem, "validate", errors.New("no watch path is an existing directory"))
	}

	s.log.Info().Int("watch_paths", usable).Msg("Filesystem source validated")
	return nil
}

// Collect scans the watch paths for files modified inside the window
func (s *Source) Collect(ctx context.Context) *models.CollectionResult {
	now := s.now()

	sc, err := s.newScanner(now)
	if err != nil {
		return models.NewFailureResult(models.SourceTypeFilesystem, err, now)
	}

	files, err := sc.scan(ctx, s.cfg.WatchPaths)
	if err != nil {
		s.log.Error().Err(err).Str("operation", "scan").Msg("Failed to scan watch paths")
		return models.NewFailureResult(models.SourceTypeFilesystem, fmt.Errorf("scan failed: %w", err), now)
	}

	items := make([]models.CollectedItem, 0, len(files))
	for _, f := range files {
		items = append(items, models.CollectedItem{
			SourceType: models.SourceTypeFilesystem,
			Timestamp:  f.ModifiedAt,
			Data:       f,
		})
	}

	s.log.Info().
		Int("watch_paths", len(s.cfg.WatchPaths)).
		Int("files", len(items)).
		Msg("Collected file changes")

	return models.NewSuccessResult(models.SourceTypeFilesystem, items, now)
}

func (s *Source) newScanner(now time.Time) (*scanner, error) {
	exclude, err := newExcluder(s.cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	maxSize, err := s.cfg.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	return &scanner{
		exclude:   exclude,
		fileTypes: normalizeExtensions(s.cfg.FileTypes),
		window:    models.NewWindow(now, s.cfg.SinceDays),
		maxSize:   maxSize,
		maxDepth:  s.cfg.MaxDepth,
		preview:   s.cfg.IncludePreview,
		log:       s.log,
	}, nil
}

// Ensure Source implements source.Source
var _ source.Source = (*Source)(nil)
