package browser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/activity-collector/internal/config"
	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/internal/source"
	"github.com/activity-collector/pkg/logger"
)

// Source implements source.Source for browser history
type Source struct {
	cfg      config.BrowserConfig
	browsers []Browser
	hosts    hostFilter
	now      func() time.Time
	log      *logger.Logger
}

// New creates a browser source for the browsers named in cfg
func New(cfg config.BrowserConfig, log *logger.Logger) *Source {
	log = log.WithSource(string(models.SourceTypeBrowser), "browser")

	known := defaultBrowsers()
	browsers := make([]Browser, 0, len(cfg.Browsers))
	for _, name := range cfg.Browsers {
		b, ok := known[name]
		if !ok {
			log.Warn().Str("browser", name).Msg("Browser not supported on this platform, ignoring")
			continue
		}
		browsers = append(browsers, b)
	}

	return newSource(cfg, browsers, log)
}

func newSource(cfg config.BrowserConfig, browsers []Browser, log *logger.Logger) *Source {
	return &Source{
		cfg:      cfg,
		browsers: browsers,
		hosts:    newHostFilter(cfg.ExcludeDomains),
		now:      time.Now,
		log:      log,
	}
}

// Factory adapts New to source.Factory
func Factory(cfg config.SourcesConfig, log *logger.Logger) source.Source {
	return New(cfg.Browser, log)
}

// Type returns "browser"
func (s *Source) Type() models.SourceType {
	return models.SourceTypeBrowser
}

// Validate succeeds when at least one configured browser has a history database
func (s *Source) Validate(_ context.Context) error {
	usable := 0
	for _, b := range s.browsers {
		dbs := getDbPaths(b)
		if len(dbs) == 0 {
			s.log.Debug().Str("browser", b.Name).Str("root", b.Root).Msg("No history database found")
			continue
		}
		usable++
		s.log.Debug().Str("browser", b.Name).Int("profiles", len(dbs)).Msg("Browser available")
	}

	if usable == 0 {
		return models.NewSourceError(models.SourceTypeBrowser, "validate", errors.New("no supported browser history found"))
	}

	s.log.Info().Int("browsers", usable).Msg("Browser source validated")
	return nil
}

// Collect reads every profile of every usable browser and merges the visits
func (s *Source) Collect(ctx context.Context) *models.CollectionResult {
	now := s.now()
	window := models.NewWindow(now, s.cfg.SinceDays)

	var (
		visits   []models.BrowserHistoryItem
		attempts int
		failures int
	)
	for _, b := range s.browsers {
		reader, err := readerFor(b.Family)
		if err != nil {
			s.log.Warn().Err(err).Str("browser", b.Name).Msg("Skipping browser")
			continue
		}

		for _, db := range getDbPaths(b) {
			attempts++
			items, err := reader.Read(ctx, db, window)
			if err != nil {
				failures++
				s.log.Warn().
					Err(err).
					Str("operation", "read").
					Str("browser", db.Browser).
					Str("profile", db.Profile).
					Msg("Failed to read browser history, skipping profile")
				continue
			}
			visits = append(visits, capItems(s.filter(items, window), s.cfg.MaxItems)...)
		}
	}

	if attempts > 0 && failures == attempts {
		return models.NewFailureResult(models.SourceTypeBrowser,
			fmt.Errorf("all %d history databases failed to read", failures), now)
	}

	sort.SliceStable(visits, func(i, j int) bool {
		return visits[i].VisitTime.After(visits[j].VisitTime)
	})

	items := make([]models.CollectedItem, 0, len(visits))
	for _, v := range visits {
		items = append(items, models.CollectedItem{
			SourceType: models.SourceTypeBrowser,
			Timestamp:  v.VisitTime,
			Data:       v,
		})
	}

	s.log.Info().
		Int("databases", attempts).
		Int("visits", len(items)).
		Msg("Collected browser history")

	return models.NewSuccessResult(models.SourceTypeBrowser, items, now)
}

// filter keeps web URLs outside the excluded domains whose visit time is in
// the window. Second precision can push a boundary visit outside it.
func (s *Source) filter(items []models.BrowserHistoryItem, window models.Window) []models.BrowserHistoryItem {
	kept := items[:0]
	for _, item := range items {
		if !isWebURL(item.URL) || s.hosts.excluded(item.URL) || !window.Contains(item.VisitTime) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// capItems keeps the newest limit items of a profile. Zero keeps everything.
// items must already be filtered and ordered newest first.
func capItems(items []models.BrowserHistoryItem, limit int) []models.BrowserHistoryItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// Ensure Source implements source.Source
var _ source.Source = (*Source)(nil)
