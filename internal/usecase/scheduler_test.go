package usecase

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChannelBanner/internal/domain"
	"ChannelBanner/internal/logging"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerLogsFailedRuns(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	var logs bytes.Buffer
	pipeline := NewPipeline(PipelineDeps{
		Fetcher:   fakeFetcher{rec: rec, err: domain.ErrUpstreamUnavailable},
		Renderer:  fakeRenderer{rec: rec},
		Publisher: fakePublisher{rec: rec},
		ChannelID: "UC1",
		Goal:      100,
	})

	driver := &manualDriver{}
	sched := NewScheduler(driver, pipeline, logging.NewWithWriter(&logs, "info"))
	require.NoError(t, sched.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(time.Now())
	driver.job(time.Now())

	assert.Equal(t, []string{"fetch:UC1", "fetch:UC1"}, rec.list())
	assert.Equal(t, 2, bytes.Count(logs.Bytes(), []byte("scheduled run failed")))

	require.NoError(t, sched.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	sched := NewScheduler(nil, nil, nil)
	assert.NoError(t, sched.Start(context.Background()))
	assert.NoError(t, sched.Stop(context.Background()))
}
