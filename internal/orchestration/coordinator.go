package orchestration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/mpsm/bsprof/internal/errors"
	"github.com/mpsm/bsprof/internal/logging"
	"github.com/mpsm/bsprof/internal/metrics"
	"github.com/mpsm/bsprof/internal/profile"
	"github.com/mpsm/bsprof/internal/runner"
)

const tracerName = "github.com/mpsm/bsprof/internal/orchestration"

// Coordinator runs commands under the background sampler.
type Coordinator struct {
	runner     CommandRunner
	newSampler SamplerFactory
	sysInfo    SystemInfoFunc

	logger   logging.Logger
	tracer   trace.Tracer
	observer Observer
	recorder metrics.Recorder
	clock    clockwork.Clock
	timeout  time.Duration

	infoOnce sync.Once
	info     profile.SystemInfo
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSystemInfo sets the host description function.
func WithSystemInfo(f SystemInfoFunc) Option {
	return func(c *Coordinator) { c.sysInfo = f }
}

// WithLogger sets the coordinator's logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithTracer sets the tracer used for run spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) { c.tracer = t }
}

// WithObserver sets the run observer.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

// WithClock sets the clock used for warmup and cooldown pauses.
func WithClock(clk clockwork.Clock) Option {
	return func(c *Coordinator) { c.clock = clk }
}

// WithTimeout bounds each command's run time. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// New creates a Coordinator running commands with r and sampling with a
// fresh sampler from newSampler for each run.
func New(r CommandRunner, newSampler SamplerFactory, opts ...Option) *Coordinator {
	c := &Coordinator{
		runner:     r,
		newSampler: newSampler,
		sysInfo:    func(context.Context) profile.SystemInfo { return profile.SystemInfo{} },
		logger:     logging.Nop(),
		tracer:     otel.Tracer(tracerName),
		observer:   NullObserver{},
		recorder:   metrics.Nop{},
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SystemInfo returns the host description, captured on first use.
func (c *Coordinator) SystemInfo(ctx context.Context) profile.SystemInfo {
	c.infoOnce.Do(func() { c.info = c.sysInfo(ctx) })
	return c.info
}

// Execute profiles one invocation of cmd, sampling every interval.
//
// The sampler is stopped and joined before Execute returns, on every path.
// An invalid interval is reported before anything is spawned. A spawn failure
// is returned as-is with an empty record. A non-zero exit status is not an
// error: it is recorded and logged as a warning. When the run is cut short by
// the timeout or by ctx, the partial record is returned together with a
// TimeoutError or the context error.
func (c *Coordinator) Execute(ctx context.Context, cmd runner.Command, interval time.Duration) (profile.Record, error) {
	return c.execute(ctx, cmd, 0, interval)
}

func (c *Coordinator) execute(ctx context.Context, cmd runner.Command, jobs int, interval time.Duration) (rec profile.Record, err error) {
	ctx, span := c.tracer.Start(ctx, "bsprof.execute", trace.WithAttributes(
		attribute.StringSlice("command", cmd.Argv),
		attribute.Int("jobs", jobs),
		attribute.Int64("interval_ms", interval.Milliseconds()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	info := c.SystemInfo(ctx)

	h, err := c.newSampler().Start(ctx, interval)
	if err != nil {
		return profile.Record{}, err
	}
	c.observer.RunStarted(jobs, cmd)

	var (
		res     profile.CommandResult
		runErr  error
		series  profile.Series
		stopErr error
	)
	func() {
		defer func() { series, stopErr = h.Stop() }()
		res, runErr = c.runCommand(ctx, cmd)
	}()
	if stopErr != nil {
		c.logger.Error("stopping sampler", stopErr)
	}

	if apperrors.IsSpawnError(runErr) {
		c.logger.Error("command could not be started", runErr, logging.Strings("argv", cmd.Argv))
		return profile.Record{}, runErr
	}

	rec = profile.Record{
		SystemInfo: info,
		Command:    cmd.Argv,
		Jobs:       jobs,
		Result:     res,
		Series:     series,
	}
	span.SetAttributes(
		attribute.Int("exit_code", res.ExitCode),
		attribute.Int("samples", series.Len()),
	)
	c.recorder.CommandFinished(jobs, res)

	if !res.Succeeded() {
		c.logger.Warn("command exited with non-zero status",
			logging.String("command", cmd.String()),
			logging.Int("exit_code", res.ExitCode))
	}
	c.logger.Debug("run finished",
		logging.Duration("elapsed", res.Elapsed),
		logging.Int("samples", series.Len()),
		logging.Int("skipped", series.Skipped))
	c.observer.CommandExited(rec)

	return rec, c.classify(ctx, cmd, runErr)
}

func (c *Coordinator) runCommand(ctx context.Context, cmd runner.Command) (profile.CommandResult, error) {
	ctx, span := c.tracer.Start(ctx, "bsprof.command")
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	res, err := c.runner.Run(ctx, cmd)
	span.SetAttributes(attribute.Int("exit_code", res.ExitCode))
	return res, err
}

// classify turns a run error into the error Execute reports. Only context
// errors are rewritten: a deadline hit by the per-command timeout becomes a
// TimeoutError, anything else from the runner passes through unchanged.
func (c *Coordinator) classify(parent context.Context, cmd runner.Command, runErr error) error {
	if runErr == nil || !apperrors.IsContextError(runErr) {
		return runErr
	}
	c.logger.Warn("command interrupted",
		logging.String("command", cmd.String()),
		logging.String("reason", runErr.Error()))
	if errors.Is(runErr, context.DeadlineExceeded) && parent.Err() == nil && c.timeout > 0 {
		return apperrors.TimeoutError{Operation: cmd.String(), Limit: c.timeout}
	}
	return runErr
}
