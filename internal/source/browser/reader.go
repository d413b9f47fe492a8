package browser

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/internal/storage/sqlite"
)

// Reader knows the history schema of one browser family
type Reader interface {
	Read(ctx context.Context, db profileDB, window models.Window) ([]models.BrowserHistoryItem, error)
}

// readerFor returns the reader for a family
func readerFor(f Family) (Reader, error) {
	switch f {
	case FamilyChromium:
		return chromiumReader{}, nil
	case FamilyWebKit:
		return webkitReader{}, nil
	}
	return nil, fmt.Errorf("unsupported browser family %q", f)
}

type chromiumRow struct {
	URL        string `gorm:"column:url"`
	Title      string `gorm:"column:title"`
	VisitCount int    `gorm:"column:visit_count"`
	VisitTime  int64  `gorm:"column:visit_time"`
}

const chromiumQuery = `
SELECT u.url AS url, COALESCE(u.title, '') AS title, u.visit_count AS visit_count, v.visit_time AS visit_time
FROM visits v
JOIN urls u ON u.id = v.url
WHERE v.visit_time > ? AND v.visit_time <= ?
ORDER BY v.visit_time DESC`

// chromiumReader reads the urls/visits tables shared by Chrome, Edge, Brave and friends
type chromiumReader struct{}

func (chromiumReader) Read(ctx context.Context, p profileDB, window models.Window) ([]models.BrowserHistoryItem, error) {
	var rows []chromiumRow
	err := sqlite.WithSnapshot(ctx, p.Path, func(db *gorm.DB) error {
		return db.Raw(chromiumQuery,
			unixToChromium(window.Since),
			unixToChromium(window.Until),
		).Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%s history %s: %w", p.Browser, p.Path, err)
	}

	items := make([]models.BrowserHistoryItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, models.BrowserHistoryItem{
			URL:        r.URL,
			Title:      r.Title,
			VisitTime:  time.Unix(chromiumToUnix(r.VisitTime), 0).UTC(),
			VisitCount: r.VisitCount,
			Browser:    p.Browser,
			Profile:    p.Profile,
		})
	}
	return items, nil
}

type webkitRow struct {
	URL        string  `gorm:"column:url"`
	Title      string  `gorm:"column:title"`
	VisitCount int     `gorm:"column:visit_count"`
	VisitTime  float64 `gorm:"column:visit_time"`
}

const webkitQuery = `
SELECT hi.url AS url, COALESCE(hv.title, '') AS title, hi.visit_count AS visit_count, hv.visit_time AS visit_time
FROM history_visits hv
JOIN history_items hi ON hi.id = hv.history_item
WHERE hv.visit_time > ? AND hv.visit_time <= ?
ORDER BY hv.visit_time DESC`

// webkitReader reads Safari's History.db
type webkitReader struct{}

func (webkitReader) Read(ctx context.Context, p profileDB, window models.Window) ([]models.BrowserHistoryItem, error) {
	var rows []webkitRow
	err := sqlite.WithSnapshot(ctx, p.Path, func(db *gorm.DB) error {
		return db.Raw(webkitQuery,
			unixToWebKit(window.Since),
			unixToWebKit(window.Until),
		).Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%s history %s: %w", p.Browser, p.Path, err)
	}

	items := make([]models.BrowserHistoryItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, models.BrowserHistoryItem{
			URL:        r.URL,
			Title:      r.Title,
			VisitTime:  time.Unix(webkitToUnix(r.VisitTime), 0).UTC(),
			VisitCount: r.VisitCount,
			Browser:    p.Browser,
			Profile:    p.Profile,
		})
	}
	return items, nil
}
