// Package sampler polls a Source on a fixed interval in a background
// goroutine until it is told to stop.
//
// A Sampler is single use: Start moves it from Idle to Running and returns a
// Handle; Handle.Stop sets the cancellation signal, waits for the goroutine
// to exit and returns the collected series. No sample is appended after Stop
// returns.
package sampler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/mpsm/bsprof/internal/errors"
	"github.com/mpsm/bsprof/internal/logging"
	"github.com/mpsm/bsprof/internal/metrics"
	"github.com/mpsm/bsprof/internal/profile"
)

// ErrAlreadyStarted is returned when Start is called on a Sampler that has
// already been started.
var ErrAlreadyStarted = errors.New("sampler already started")

// State is the lifecycle state of a Sampler.
type State int32

const (
	Idle State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Sampler collects samples from a Source in the background.
type Sampler struct {
	source     Source
	clock      clockwork.Clock
	logger     logging.Logger
	recorder   metrics.Recorder
	maxSamples int

	state atomic.Int32
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithClock sets the clock used for timestamps and interval waits.
func WithClock(c clockwork.Clock) Option {
	return func(s *Sampler) { s.clock = c }
}

// WithLogger sets the logger used to report skipped ticks.
func WithLogger(l logging.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

// WithRecorder sets the metrics recorder notified on every tick.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Sampler) { s.recorder = r }
}

// WithMaxSamples bounds the series to the n most recent samples. Zero means
// unbounded.
func WithMaxSamples(n int) Option {
	return func(s *Sampler) { s.maxSamples = n }
}

// New creates an idle Sampler reading from source.
func New(source Source, opts ...Option) *Sampler {
	s := &Sampler{
		source:   source,
		clock:    clockwork.NewRealClock(),
		logger:   logging.Nop(),
		recorder: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Sampler) State() State { return State(s.state.Load()) }

// Handle controls a running sampling goroutine.
type Handle struct {
	sampler  *Sampler
	cancel   context.CancelFunc
	group    errgroup.Group
	stopped  atomic.Bool
	start    time.Time
	interval time.Duration

	// Owned by the sampling goroutine until group.Wait returns.
	buf     *sampleBuffer
	skipped int
}

// Start launches the sampling goroutine and returns immediately. The first
// sample is taken right away, then one per interval. Cancelling ctx has the
// same effect on the goroutine as Stop, but Stop must still be called to
// collect the series.
func (s *Sampler) Start(ctx context.Context, interval time.Duration) (*Handle, error) {
	if interval <= 0 {
		return nil, apperrors.NewConfigError("sampling interval must be positive, got %s", interval)
	}
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return nil, ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		sampler:  s,
		cancel:   cancel,
		start:    s.clock.Now(),
		interval: interval,
		buf:      newSampleBuffer(s.maxSamples),
	}
	h.group.Go(func() error {
		defer s.state.Store(int32(Stopped))
		s.run(ctx, h)
		return nil
	})
	s.logger.Debug("sampler started", logging.Duration("interval", interval))
	return h, nil
}

// Stop signals the sampling goroutine, waits for it to exit and returns the
// collected series. It returns apperrors.ErrDoubleStop if called again.
func (h *Handle) Stop() (profile.Series, error) {
	if !h.stopped.CompareAndSwap(false, true) {
		return profile.Series{}, apperrors.ErrDoubleStop
	}
	h.sampler.state.CompareAndSwap(int32(Running), int32(Stopping))
	h.cancel()
	_ = h.group.Wait()

	series := profile.Series{
		Start:    h.start,
		Interval: h.interval,
		Samples:  h.buf.slice(),
		Dropped:  h.buf.dropped,
		Skipped:  h.skipped,
	}
	h.sampler.logger.Debug("sampler stopped",
		logging.Int("samples", series.Len()),
		logging.Int("skipped", series.Skipped),
		logging.Int("dropped", series.Dropped))
	return series, nil
}

func (s *Sampler) run(ctx context.Context, h *Handle) {
	// The first sample is unconditional so that even a command shorter than
	// one interval, or an immediate Stop, yields a non-empty series.
	readCtx := context.WithoutCancel(ctx)
	s.tick(readCtx, h)
	for {
		timer := s.clock.NewTimer(h.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
		if ctx.Err() != nil {
			return
		}
		s.tick(readCtx, h)
	}
}

func (s *Sampler) tick(ctx context.Context, h *Handle) {
	now := s.clock.Now()
	smp, err := s.source.Read(ctx)
	if err != nil {
		h.skipped++
		s.recorder.SampleSkipped(err)
		if errors.Is(err, apperrors.ErrSampleUnavailable) {
			s.logger.Debug("sample skipped", logging.Err(err))
		} else {
			s.logger.Error("sample read failed", err)
		}
		return
	}
	smp.Timestamp = now
	smp.Elapsed = now.Sub(h.start)
	h.buf.push(smp)
	s.recorder.SampleTaken(smp)
}
