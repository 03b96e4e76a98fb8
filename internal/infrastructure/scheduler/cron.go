package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"CampusNotify/internal/ports"
	"CampusNotify/pkg/logger"
)

// CronScheduler drives repeated engine runs from cron expressions.
type CronScheduler struct {
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating specs in loc.
func NewCronScheduler(loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cron.PrintfLogger(logger.New("cron"))),
		),
	}
}

// Schedule registers a job under a standard five-field cron spec.
func (c *CronScheduler) Schedule(spec string, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if _, err := c.cron.AddFunc(spec, func() { job(time.Now()) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	return nil
}

// Start begins evaluating registered jobs.
func (c *CronScheduler) Start(_ context.Context) error {
	c.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running job to finish, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
