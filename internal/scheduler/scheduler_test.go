package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/pkg/logger"
)

func TestCronExpression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		freq   models.ScheduleFrequency
		want   string
		wantOK bool
	}{
		{models.ScheduleHourly, "0 * * * *", true},
		{models.ScheduleDaily, "0 9 * * *", true},
		{models.ScheduleWeekly, "0 9 * * 1", true},
		{models.ScheduleMonthly, "0 9 1 * *", true},
		{models.ScheduleManual, "", false},
		{"fortnightly", "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			t.Parallel()
			got, ok := CronExpression(tt.freq)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func noop(context.Context) error { return nil }

func TestSchedule_ReplacesAndRemoves(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), logger.Nop())

	require.NoError(t, s.Schedule(models.SourceTypeGit, models.ScheduleDaily, noop))
	require.NoError(t, s.Schedule(models.SourceTypeBrowser, models.ScheduleHourly, noop))
	require.NoError(t, s.Schedule(models.SourceTypeChatbot, models.ScheduleManual, noop))
	assert.Equal(t, []models.SourceType{models.SourceTypeGit, models.SourceTypeBrowser}, s.Scheduled())
	assert.Len(t, s.cron.Entries(), 2)

	// Re-scheduling keeps a single entry per source
	require.NoError(t, s.Schedule(models.SourceTypeGit, models.ScheduleWeekly, noop))
	assert.Len(t, s.cron.Entries(), 2)

	// Switching to manual drops the trigger
	require.NoError(t, s.Schedule(models.SourceTypeBrowser, models.ScheduleManual, noop))
	assert.Equal(t, []models.SourceType{models.SourceTypeGit}, s.Scheduled())

	s.Unschedule(models.SourceTypeGit)
	s.Unschedule(models.SourceTypeFilesystem)
	assert.Empty(t, s.Scheduled())
	assert.Empty(t, s.cron.Entries())

	assert.Error(t, s.Schedule(models.SourceTypeGit, "sometimes", noop))
}

func TestNext(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), logger.Nop())
	require.NoError(t, s.Schedule(models.SourceTypeGit, models.ScheduleHourly, noop))

	s.StartAll()
	defer s.StopAll()

	next, ok := s.Next(models.SourceTypeGit)
	require.True(t, ok)
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))

	_, ok = s.Next(models.SourceTypeBrowser)
	assert.False(t, ok)
}

func TestManualNeverFires(t *testing.T) {
	t.Parallel()

	var manual, scheduled atomic.Int32
	s := New(context.Background(), logger.Nop())

	require.NoError(t, s.Schedule(models.SourceTypeChatbot, models.ScheduleManual, func(context.Context) error {
		manual.Add(1)
		return nil
	}))
	s.mu.Lock()
	require.NoError(t, s.install(models.SourceTypeGit, "@every 1s", func(context.Context) error {
		scheduled.Add(1)
		return nil
	}))
	s.mu.Unlock()

	s.StartAll()
	assert.Eventually(t, func() bool { return scheduled.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
	<-s.StopAll().Done()

	assert.Zero(t, manual.Load())
}

func TestFailingJobsDoNotStopOthers(t *testing.T) {
	t.Parallel()

	var healthy, failing, panicking atomic.Int32
	s := New(context.Background(), logger.Nop())

	s.mu.Lock()
	require.NoError(t, s.install(models.SourceTypeGit, "@every 1s", func(context.Context) error {
		failing.Add(1)
		return errors.New("boom")
	}))
	require.NoError(t, s.install(models.SourceTypeBrowser, "@every 1s", func(context.Context) error {
		panicking.Add(1)
		panic("reader exploded")
	}))
	require.NoError(t, s.install(models.SourceTypeFilesystem, "@every 1s", func(context.Context) error {
		healthy.Add(1)
		return nil
	}))
	s.mu.Unlock()

	s.StartAll()
	assert.Eventually(t, func() bool {
		return healthy.Load() >= 2 && failing.Load() >= 2 && panicking.Load() >= 2
	}, 6*time.Second, 20*time.Millisecond)
	<-s.StopAll().Done()
}

func TestPanickingJobKeepsFiring(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := New(context.Background(), logger.Nop())

	s.mu.Lock()
	require.NoError(t, s.install(models.SourceTypeChatbot, "@every 1s", func(context.Context) error {
		if runs.Add(1) == 1 {
			panic("first cycle exploded")
		}
		return nil
	}))
	s.mu.Unlock()

	s.StartAll()
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 6*time.Second, 20*time.Millisecond,
		"trigger must keep firing after a panicking cycle")
	<-s.StopAll().Done()
}

func TestJobsReceiveSchedulerContext(t *testing.T) {
	t.Parallel()

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "service")

	got := make(chan any, 1)
	s := New(ctx, logger.Nop())
	s.mu.Lock()
	require.NoError(t, s.install(models.SourceTypeGit, "@every 1s", func(ctx context.Context) error {
		select {
		case got <- ctx.Value(key{}):
		default:
		}
		return nil
	}))
	s.mu.Unlock()

	s.StartAll()
	defer s.StopAll()

	select {
	case v := <-got:
		assert.Equal(t, "service", v)
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
