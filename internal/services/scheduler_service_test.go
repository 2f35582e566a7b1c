package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotasul/transport-backend/internal/config"
)

type stubLifecycle struct {
	counts LifecycleCounts
	err    error
	calls  int
}

func (s *stubLifecycle) RunPass() (LifecycleCounts, error) {
	s.calls++
	return s.counts, s.err
}

type stubExpirer struct {
	expired int
	err     error
	calls   int
}

func (s *stubExpirer) ExpireStale() (int, error) {
	s.calls++
	return s.expired, s.err
}

type stubCompleter struct {
	completed int64
	err       error
	calls     int
}

func (s *stubCompleter) CompleteDeparted() (int64, error) {
	s.calls++
	return s.completed, s.err
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:           true,
		LifecycleSpec:     "0 */5 * * * *",
		DailyCompleteSpec: "0 0 4 * * *",
	}
}

func TestSchedulerRunLifecycleNow(t *testing.T) {
	t.Run("Aggregates Expiration And Trip Counts", func(t *testing.T) {
		lifecycle := &stubLifecycle{counts: LifecycleCounts{Started: 2, Completed: 1, Deactivated: 1}}
		expirer := &stubExpirer{expired: 4}
		completer := &stubCompleter{}
		svc := NewSchedulerService(testSchedulerConfig(), lifecycle, expirer, completer, testLogger())

		summary, err := svc.RunLifecycleNow()
		require.NoError(t, err)
		assert.Equal(t, 4, summary.Expired)
		assert.Equal(t, LifecycleCounts{Started: 2, Completed: 1, Deactivated: 1}, summary.Trips)
		assert.Equal(t, 1, lifecycle.calls)
		assert.Equal(t, 1, expirer.calls)
		assert.Zero(t, completer.calls)
	})

	t.Run("Expiration Failure Still Runs Lifecycle", func(t *testing.T) {
		lifecycle := &stubLifecycle{counts: LifecycleCounts{Started: 1}}
		expirer := &stubExpirer{err: errors.New("connection reset")}
		svc := NewSchedulerService(testSchedulerConfig(), lifecycle, expirer, &stubCompleter{}, testLogger())

		summary, err := svc.RunLifecycleNow()
		assert.Error(t, err)
		assert.Equal(t, LifecycleCounts{Started: 1}, summary.Trips)
		assert.Equal(t, 1, lifecycle.calls)
	})
}

func TestSchedulerRunDailyCompletionNow(t *testing.T) {
	completer := &stubCompleter{completed: 12}
	svc := NewSchedulerService(testSchedulerConfig(), &stubLifecycle{}, &stubExpirer{}, completer, testLogger())

	count, err := svc.RunDailyCompletionNow()
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
	assert.Equal(t, 1, completer.calls)
}

func TestSchedulerStartStop(t *testing.T) {
	svc := NewSchedulerService(testSchedulerConfig(), &stubLifecycle{}, &stubExpirer{}, &stubCompleter{}, testLogger())

	require.NoError(t, svc.Start())
	status := svc.GetJobStatus()
	assert.Len(t, status, 2)
	for _, job := range status {
		assert.False(t, job.NextRun.IsZero())
	}
	svc.Stop()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	cfg := testSchedulerConfig()
	cfg.LifecycleSpec = "not a cron spec"
	svc := NewSchedulerService(cfg, &stubLifecycle{}, &stubExpirer{}, &stubCompleter{}, testLogger())

	assert.Error(t, svc.Start())
}
