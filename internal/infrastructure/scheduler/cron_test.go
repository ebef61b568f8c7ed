package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChannelBanner/internal/domain"
)

func TestStartRunsImmediately(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	sched := NewCronScheduler("@hourly", berlin, nil)
	triggers := make(chan time.Time, 1)

	require.NoError(t, sched.Start(context.Background(), func(at time.Time) { triggers <- at }))

	select {
	case at := <-triggers:
		assert.Equal(t, berlin, at.Location())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not triggered on start")
	}

	require.NoError(t, sched.Stop(context.Background()))
	require.NoError(t, sched.Stop(context.Background()))
}

func TestStartRunsOnSchedule(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("@every 1s", nil, nil)
	var runs atomic.Int32

	require.NoError(t, sched.Start(context.Background(), func(time.Time) { runs.Add(1) }))
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, sched.Stop(context.Background()))
}

func TestOverlappingRunsAreSkipped(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("@every 1s", nil, nil)
	release := make(chan struct{})
	var runs atomic.Int32

	require.NoError(t, sched.Start(context.Background(), func(time.Time) {
		runs.Add(1)
		<-release
	}))

	time.Sleep(2500 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	close(release)
	require.NoError(t, sched.Stop(context.Background()))
}

func TestStartRejectsBadExpression(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{"", "not a cron", "61 * * * *"} {
		err := NewCronScheduler(spec, nil, nil).Start(context.Background(), func(time.Time) {})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, spec)
	}
}

func TestStopWaitsForRunningJob(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("@hourly", nil, nil)
	started := make(chan struct{})
	var finished atomic.Bool

	require.NoError(t, sched.Start(context.Background(), func(time.Time) {
		close(started)
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
	}))
	<-started

	require.NoError(t, sched.Stop(context.Background()))
	assert.True(t, finished.Load())
}

func TestStopHonoursContext(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("@hourly", nil, nil)
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, sched.Start(context.Background(), func(time.Time) {
		close(started)
		<-release
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sched.Stop(ctx), context.DeadlineExceeded)
	close(release)
}

func TestCancelledContextStopsScheduler(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("@every 1s", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32

	require.NoError(t, sched.Start(ctx, func(time.Time) { runs.Add(1) }))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	assert.Eventually(t, func() bool {
		sched.mu.Lock()
		defer sched.mu.Unlock()
		return sched.cron == nil
	}, time.Second, 10*time.Millisecond)
}
