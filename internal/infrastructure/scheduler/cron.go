package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ChannelBanner/internal/domain"
	"ChannelBanner/internal/ports"
)

// CronScheduler runs a job immediately and then on a cron expression.
// Overlapping runs are skipped, never queued.
type CronScheduler struct {
	spec     string
	location *time.Location
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running sync.WaitGroup
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for a standard five-field expression or a descriptor like "@hourly".
func NewCronScheduler(spec string, location *time.Location, logger *slog.Logger) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	return &CronScheduler{spec: spec, location: location, logger: logger}
}

// Start triggers job once and registers it with the cron expression.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron != nil {
		return nil
	}
	if c.spec == "" {
		return fmt.Errorf("%w: empty cron expression", domain.ErrInvalidArgument)
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(c.handler(), slog.LevelInfo))
	runner := cron.New(
		cron.WithLocation(c.location),
		cron.WithLogger(cronLogger),
	)

	// The immediate run and the scheduled runs share one skip guard.
	wrapped := cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)).
		Then(cron.FuncJob(func() { job(time.Now().In(c.location)) }))

	id, err := runner.AddJob(c.spec, wrapped)
	if err != nil {
		return fmt.Errorf("%w: cron expression %q: %v", domain.ErrInvalidArgument, c.spec, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cron = runner
	c.cancel = cancel
	c.done = make(chan struct{})

	c.running.Add(1)
	go func() {
		defer c.running.Done()
		wrapped.Run()
	}()

	next := runner.Entry(id).Schedule.Next(time.Now().In(c.location))
	runner.Start()
	c.debug("scheduler started", "spec", c.spec, "location", c.location.String(), "next", next)

	go func() {
		<-runCtx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts the cron loop and waits for in-flight runs or ctx expiry.
// Calling it again after the loop was halted waits for the same runs.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner, cancel, done := c.cron, c.cancel, c.done
	c.cron, c.cancel = nil, nil
	c.mu.Unlock()

	if done == nil {
		return nil
	}

	if runner != nil {
		cancel()
		go func() {
			<-runner.Stop().Done()
			c.running.Wait()
			c.debug("scheduler stopped")
			close(done)
		}()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

func (c *CronScheduler) handler() slog.Handler {
	if c.logger == nil {
		return slog.NewTextHandler(io.Discard, nil)
	}
	return c.logger.Handler()
}

func (c *CronScheduler) debug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}
