package models

import (
	"fmt"
	"time"
)

// SourceType identifies which reader applies to a source
type SourceType string

const (
	SourceTypeGit        SourceType = "git"
	SourceTypeBrowser    SourceType = "browser"
	SourceTypeFilesystem SourceType = "filesystem"
	SourceTypeChatbot    SourceType = "chatbot"
)

// AllSourceTypes lists every known source type in a stable order
var AllSourceTypes = []SourceType{
	SourceTypeGit,
	SourceTypeBrowser,
	SourceTypeFilesystem,
	SourceTypeChatbot,
}

// ParseSourceType converts a string into a SourceType
func ParseSourceType(s string) (SourceType, error) {
	for _, t := range AllSourceTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown source type %q", s)
}

// ScheduleFrequency is how often a source is collected
type ScheduleFrequency string

const (
	ScheduleHourly  ScheduleFrequency = "hourly"
	ScheduleDaily   ScheduleFrequency = "daily"
	ScheduleWeekly  ScheduleFrequency = "weekly"
	ScheduleMonthly ScheduleFrequency = "monthly"
	ScheduleManual  ScheduleFrequency = "manual"
)

// Valid reports whether f is one of the known frequencies
func (f ScheduleFrequency) Valid() bool {
	switch f {
	case ScheduleHourly, ScheduleDaily, ScheduleWeekly, ScheduleMonthly, ScheduleManual:
		return true
	}
	return false
}

// CollectedItem is one normalized record. Data holds one of GitCommit,
// BrowserHistoryItem, FileChangeItem or ChatHistoryItem depending on SourceType.
type CollectedItem struct {
	SourceType SourceType `json:"sourceType" yaml:"sourceType"`
	Timestamp  time.Time  `json:"timestamp" yaml:"timestamp"`
	Data       any        `json:"data" yaml:"data"`
}

// CollectionResult is the unit exchanged between a source and the push client
type CollectionResult struct {
	SourceType     SourceType      `json:"sourceType" yaml:"sourceType"`
	Success        bool            `json:"success" yaml:"success"`
	ItemsCollected int             `json:"itemsCollected" yaml:"itemsCollected"`
	Items          []CollectedItem `json:"items" yaml:"items"`
	Error          string          `json:"error,omitempty" yaml:"error,omitempty"`
	CollectedAt    time.Time       `json:"collectedAt" yaml:"collectedAt"`
}

// NewSuccessResult wraps items into a successful result stamped with collectedAt
func NewSuccessResult(sourceType SourceType, items []CollectedItem, collectedAt time.Time) *CollectionResult {
	if items == nil {
		items = []CollectedItem{}
	}
	return &CollectionResult{
		SourceType:     sourceType,
		Success:        true,
		ItemsCollected: len(items),
		Items:          items,
		CollectedAt:    collectedAt,
	}
}

// NewFailureResult reports a failed collection
func NewFailureResult(sourceType SourceType, err error, collectedAt time.Time) *CollectionResult {
	return &CollectionResult{
		SourceType:  sourceType,
		Success:     false,
		Items:       []CollectedItem{},
		Error:       err.Error(),
		CollectedAt: collectedAt,
	}
}

// Window is the collection window (Since, Until]
type Window struct {
	Since time.Time
	Until time.Time
}

// NewWindow returns the window ending at now and spanning sinceDays days
func NewWindow(now time.Time, sinceDays int) Window {
	return Window{
		Since: now.Add(-time.Duration(sinceDays) * 24 * time.Hour),
		Until: now,
	}
}

// Contains reports whether t falls inside the window. The lower bound is exclusive.
func (w Window) Contains(t time.Time) bool {
	return t.After(w.Since) && !t.After(w.Until)
}
