package orchestration

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpsm/bsprof/internal/logging"
	"github.com/mpsm/bsprof/internal/profile"
	"github.com/mpsm/bsprof/internal/runner"
)

// SweepOptions controls a multi-run profile.
type SweepOptions struct {
	// Jobs lists the jobs levels to run, in order. Empty means a single run
	// with the command line left untouched.
	Jobs []int
	// JobsFlag is placed before each jobs count (runner.DefaultJobsFlag when empty).
	JobsFlag string
	Interval time.Duration
	// Warmup is an idle pause before each run, Cooldown one after it. Neither
	// is sampled.
	Warmup   time.Duration
	Cooldown time.Duration
}

// Settings returns the profile settings recorded in the report.
func (o SweepOptions) Settings() profile.Settings {
	return profile.Settings{Interval: o.Interval, Warmup: o.Warmup, Cooldown: o.Cooldown}
}

// Sweep profiles cmd once per jobs level, strictly one run at a time, and
// collects the records into a report.
//
// A spawn failure aborts the sweep and discards the collected records. A
// timeout or cancellation stops the sweep after the interrupted run, and the
// report collected so far is returned together with the error.
func (c *Coordinator) Sweep(ctx context.Context, cmd runner.Command, opts SweepOptions) (*profile.Report, error) {
	levels := opts.Jobs
	if len(levels) == 0 {
		levels = []int{0}
	}

	ctx, span := c.tracer.Start(ctx, "bsprof.sweep", trace.WithAttributes(
		attribute.IntSlice("jobs", opts.Jobs),
	))
	defer span.End()

	rep := profile.NewReport(c.SystemInfo(ctx), opts.Settings())
	for i, jobs := range levels {
		run := cmd
		if jobs > 0 {
			run = cmd.WithJobs(opts.JobsFlag, jobs)
		}
		c.logger.Debug("sweep run",
			logging.Int("run", i+1),
			logging.Int("of", len(levels)),
			logging.Int("jobs", jobs))

		if err := c.pause(ctx, PhaseWarmup, opts.Warmup); err != nil {
			return rep, err
		}
		rec, err := c.execute(ctx, run, jobs, opts.Interval)
		if err != nil {
			if rec.Command == nil {
				// Nothing ran: either the interval was rejected or the command
				// could not be spawned.
				return nil, err
			}
			rep.AddResult(rec)
			return rep, err
		}
		rep.AddResult(rec)
		if err := c.pause(ctx, PhaseCooldown, opts.Cooldown); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// pause idles for d unless ctx ends first.
func (c *Coordinator) pause(ctx context.Context, phase Phase, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	c.observer.PauseStarted(phase, d)
	defer c.observer.PauseFinished(phase)

	timer := c.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
