// Package scheduler drives recurring runs with a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alekseyt9/newswatch/internal/ports"
)

// CronScheduler implements ports.Scheduler on robfig/cron.
type CronScheduler struct {
	spec string
	loc  *time.Location
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for the given cron expression,
// evaluated in loc.
func NewCronScheduler(spec string, loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &CronScheduler{spec: spec, loc: loc}
}

// Start registers the job and begins firing it on the cron cadence. Runs
// do not overlap: the job is invoked synchronously from the cron goroutine,
// so a run that overlaps the next tick delays it.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if c.cron != nil {
		return nil
	}

	runner := cron.New(cron.WithLocation(c.loc))
	if _, err := runner.AddFunc(c.spec, func() {
		job(time.Now().In(c.loc))
	}); err != nil {
		return fmt.Errorf("cron spec %q: %w", c.spec, err)
	}

	c.cron = runner
	runner.Start()

	go func() {
		<-ctx.Done()
		runner.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for a running job to finish.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.cron == nil {
		return nil
	}
	stopped := c.cron.Stop()
	c.cron = nil

	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
