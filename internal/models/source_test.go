package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceType(t *testing.T) {
	t.Parallel()

	for _, st := range AllSourceTypes {
		got, err := ParseSourceType(string(st))
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}

	_, err := ParseSourceType("Git")
	assert.Error(t, err)
}

func TestScheduleFrequencyValid(t *testing.T) {
	t.Parallel()

	for _, f := range []ScheduleFrequency{ScheduleHourly, ScheduleDaily, ScheduleWeekly, ScheduleMonthly, ScheduleManual} {
		assert.True(t, f.Valid(), f)
	}
	assert.False(t, ScheduleFrequency("").Valid())
	assert.False(t, ScheduleFrequency("yearly").Valid())
}

func TestWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	w := NewWindow(now, 7)

	assert.Equal(t, now.AddDate(0, 0, -7), w.Since)
	assert.Equal(t, now, w.Until)

	assert.True(t, w.Contains(now))
	assert.True(t, w.Contains(now.Add(-time.Hour)))
	assert.False(t, w.Contains(w.Since))
	assert.True(t, w.Contains(w.Since.Add(time.Nanosecond)))
	assert.False(t, w.Contains(now.Add(time.Second)))
}

func TestResults(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	ok := NewSuccessResult(SourceTypeGit, nil, at)
	assert.True(t, ok.Success)
	assert.Equal(t, 0, ok.ItemsCollected)
	assert.NotNil(t, ok.Items)

	failed := NewFailureResult(SourceTypeBrowser, errors.New("locked"), at)
	assert.False(t, failed.Success)
	assert.Equal(t, "locked", failed.Error)

	data, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sourceType":"git","success":true,"itemsCollected":0,"items":[],"collectedAt":"2026-10-16T12:00:00Z"}`, string(data))
}

func TestSourceError(t *testing.T) {
	t.Parallel()

	cause := errors.New("database is locked")
	err := NewSourceError(SourceTypeChatbot, "read", cause)

	assert.EqualError(t, err, "chatbot read: database is locked")
	assert.ErrorIs(t, err, cause)

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, SourceTypeChatbot, srcErr.SourceType)

	assert.EqualError(t, &PushError{StatusCode: 502, Body: "bad gateway"}, "ingest returned 502: bad gateway")
}
