package orchestration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	apperrors "github.com/mpsm/bsprof/internal/errors"
	"github.com/mpsm/bsprof/internal/logging"
	"github.com/mpsm/bsprof/internal/profile"
	"github.com/mpsm/bsprof/internal/runner"
	"github.com/mpsm/bsprof/internal/sampler"
)

var testInfo = profile.SystemInfo{NumCPUs: 4, CPUName: "Test / CPU", TotalMemory: 8 << 30, OS: "TestOS 1.0"}

func staticInfo(context.Context) profile.SystemInfo { return testInfo }

// fakeRunner records the commands it is asked to run and delegates to run.
type fakeRunner struct {
	mu    sync.Mutex
	calls []runner.Command
	run   func(ctx context.Context, cmd runner.Command) (profile.CommandResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, cmd runner.Command) (profile.CommandResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
	return f.run(ctx, cmd)
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.String()
	}
	return out
}

func exitWith(code int, elapsed time.Duration) func(context.Context, runner.Command) (profile.CommandResult, error) {
	return func(context.Context, runner.Command) (profile.CommandResult, error) {
		return profile.CommandResult{ExitCode: code, Elapsed: elapsed}, nil
	}
}

var constSource = sampler.SourceFunc(func(context.Context) (profile.Sample, error) {
	return profile.Sample{CPUUsage: 25, MemoryUsed: 1 << 20, CPUsUtilization: []float64{25}}, nil
})

// samplerFactory hands out real samplers and remembers them for inspection.
type samplerFactory struct {
	mu       sync.Mutex
	opts     []sampler.Option
	samplers []*sampler.Sampler
}

func (f *samplerFactory) New() Sampler {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := sampler.New(constSource, f.opts...)
	f.samplers = append(f.samplers, s)
	return s
}

func (f *samplerFactory) last() *sampler.Sampler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.samplers[len(f.samplers)-1]
}

// recordingObserver captures notifications as strings.
type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) add(e string) {
	o.mu.Lock()
	o.events = append(o.events, e)
	o.mu.Unlock()
}

func (o *recordingObserver) RunStarted(jobs int, cmd runner.Command) { o.add("start " + cmd.String()) }
func (o *recordingObserver) CommandExited(rec profile.Record) {
	o.add("exit " + strings.Join(rec.Command, " "))
}
func (o *recordingObserver) PauseStarted(p Phase, _ time.Duration) { o.add(p.String() + " start") }
func (o *recordingObserver) PauseFinished(p Phase)                 { o.add(p.String() + " end") }

func (o *recordingObserver) list() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}

// TestExecute_SamplesThroughoutRun runs a 3.5 s command sampled every second.
func TestExecute_SamplesThroughoutRun(t *testing.T) {
	t.Parallel()
	fc := clockwork.NewFakeClock()
	factory := &samplerFactory{opts: []sampler.Option{sampler.WithClock(fc)}}
	r := &fakeRunner{run: func(context.Context, runner.Command) (profile.CommandResult, error) {
		for range 3 {
			fc.BlockUntil(1)
			fc.Advance(time.Second)
		}
		fc.BlockUntil(1)
		fc.Advance(500 * time.Millisecond)
		return profile.CommandResult{Elapsed: 3500 * time.Millisecond}, nil
	}}
	obs := &recordingObserver{}
	c := New(r, factory.New, WithSystemInfo(staticInfo), WithObserver(obs))

	cmd := runner.Command{Argv: []string{"make", "all"}}
	rec, err := c.Execute(context.Background(), cmd, time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if rec.Series.Len() != 4 {
		t.Errorf("samples = %d, want 4", rec.Series.Len())
	}
	last, _ := rec.Series.Last()
	if rec.Result.Elapsed-last.Elapsed > time.Second {
		t.Errorf("last sample at %v is more than one interval before the end (%v)", last.Elapsed, rec.Result.Elapsed)
	}
	if rec.SystemInfo != testInfo {
		t.Errorf("SystemInfo = %+v", rec.SystemInfo)
	}
	if strings.Join(rec.Command, " ") != "make all" || rec.Jobs != 0 {
		t.Errorf("Command = %v, Jobs = %d", rec.Command, rec.Jobs)
	}
	if factory.last().State() != sampler.Stopped {
		t.Errorf("sampler state = %v, want stopped", factory.last().State())
	}
	want := []string{"start make all", "exit make all"}
	if got := obs.list(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("observer events = %v, want %v", got, want)
	}
}

func TestExecute_NonZeroExitIsData(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	factory := &samplerFactory{}
	c := New(&fakeRunner{run: exitWith(2, 10*time.Millisecond)}, factory.New,
		WithLogger(logging.NewLogger(&logs, "coordinator")))

	rec, err := c.Execute(context.Background(), runner.Command{Argv: []string{"false"}}, time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rec.Result.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", rec.Result.ExitCode)
	}
	if rec.Series.Len() < 1 {
		t.Error("series should hold at least the immediate sample")
	}
	if !strings.Contains(logs.String(), "non-zero") {
		t.Errorf("expected a warning about the exit status, got: %s", logs.String())
	}
}

func TestExecute_SpawnErrorJoinsSampler(t *testing.T) {
	t.Parallel()
	factory := &samplerFactory{}
	spawnErr := apperrors.SpawnError{Command: []string{"nope"}, Cause: errors.New("executable file not found")}
	c := New(&fakeRunner{run: func(context.Context, runner.Command) (profile.CommandResult, error) {
		return profile.CommandResult{}, spawnErr
	}}, factory.New)

	rec, err := c.Execute(context.Background(), runner.Command{Argv: []string{"nope"}}, time.Second)
	if !apperrors.IsSpawnError(err) {
		t.Fatalf("error = %v, want SpawnError", err)
	}
	if rec.Command != nil || rec.Series.Len() != 0 {
		t.Errorf("record should be empty on spawn failure, got %+v", rec)
	}
	if factory.last().State() != sampler.Stopped {
		t.Errorf("sampler state = %v, want stopped", factory.last().State())
	}
}

func TestExecute_InvalidIntervalSpawnsNothing(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{run: exitWith(0, 0)}
	c := New(r, (&samplerFactory{}).New)

	_, err := c.Execute(context.Background(), runner.Command{Argv: []string{"true"}}, 0)
	var cfgErr apperrors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
	if len(r.commands()) != 0 {
		t.Errorf("runner called %d times, want 0", len(r.commands()))
	}
}

func TestExecute_Timeout(t *testing.T) {
	t.Parallel()
	factory := &samplerFactory{}
	r := &fakeRunner{run: func(ctx context.Context, _ runner.Command) (profile.CommandResult, error) {
		<-ctx.Done()
		return profile.CommandResult{ExitCode: 130, Elapsed: 20 * time.Millisecond}, ctx.Err()
	}}
	c := New(r, factory.New, WithTimeout(20*time.Millisecond))

	rec, err := c.Execute(context.Background(), runner.Command{Argv: []string{"sleep", "60"}}, time.Hour)
	var timeoutErr apperrors.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
	if timeoutErr.Limit != 20*time.Millisecond {
		t.Errorf("Limit = %v", timeoutErr.Limit)
	}
	if apperrors.ExitCodeFor(err) != apperrors.ExitErrorTimeout {
		t.Errorf("exit code = %d, want %d", apperrors.ExitCodeFor(err), apperrors.ExitErrorTimeout)
	}
	if rec.Result.ExitCode != 130 || rec.Series.Len() != 1 {
		t.Errorf("partial record = %+v", rec)
	}
	if factory.last().State() != sampler.Stopped {
		t.Errorf("sampler state = %v, want stopped", factory.last().State())
	}
}

func TestExecute_ParentCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeRunner{run: func(ctx context.Context, _ runner.Command) (profile.CommandResult, error) {
		cancel()
		<-ctx.Done()
		return profile.CommandResult{ExitCode: 130}, ctx.Err()
	}}
	c := New(r, (&samplerFactory{}).New, WithTimeout(time.Hour))

	_, err := c.Execute(ctx, runner.Command{Argv: []string{"sleep", "60"}}, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if apperrors.ExitCodeFor(err) != apperrors.ExitErrorCanceled {
		t.Errorf("exit code = %d, want %d", apperrors.ExitCodeFor(err), apperrors.ExitErrorCanceled)
	}
}

func TestCoordinator_Classify(t *testing.T) {
	t.Parallel()
	waitErr := errors.New("wait: input/output error")
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name        string
		parent      context.Context
		timeout     time.Duration
		runErr      error
		wantTimeout bool
		wantErr     error
		wantLog     bool
	}{
		{"success", context.Background(), time.Second, nil, false, nil, false},
		{"runner error passes through", context.Background(), time.Second, waitErr, false, waitErr, false},
		{"own deadline is a timeout", context.Background(), time.Second, context.DeadlineExceeded, true, nil, true},
		{"wrapped deadline is a timeout", context.Background(), time.Second, fmt.Errorf("run: %w", context.DeadlineExceeded), true, nil, true},
		{"deadline without timeout", context.Background(), 0, context.DeadlineExceeded, false, context.DeadlineExceeded, true},
		{"parent cancel", cancelled, time.Second, context.Canceled, false, context.Canceled, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var logs bytes.Buffer
			c := New(&fakeRunner{run: exitWith(0, 0)}, (&samplerFactory{}).New,
				WithTimeout(tt.timeout), WithLogger(logging.NewLogger(&logs, "coordinator")))

			err := c.classify(tt.parent, runner.Command{Argv: []string{"make"}}, tt.runErr)
			var timeoutErr apperrors.TimeoutError
			if got := errors.As(err, &timeoutErr); got != tt.wantTimeout {
				t.Fatalf("classify() = %v, TimeoutError = %v, want %v", err, got, tt.wantTimeout)
			}
			if !tt.wantTimeout && !errors.Is(err, tt.wantErr) {
				t.Errorf("classify() = %v, want %v", err, tt.wantErr)
			}
			if got := strings.Contains(logs.String(), "command interrupted"); got != tt.wantLog {
				t.Errorf("interrupted logged = %v, want %v; logs: %s", got, tt.wantLog, logs.String())
			}
		})
	}
}

func TestExecute_PanicStillStopsSampler(t *testing.T) {
	t.Parallel()
	factory := &samplerFactory{}
	c := New(&fakeRunner{run: func(context.Context, runner.Command) (profile.CommandResult, error) {
		panic("runner exploded")
	}}, factory.New)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the panic to propagate")
			}
		}()
		_, _ = c.Execute(context.Background(), runner.Command{Argv: []string{"x"}}, time.Second)
	}()

	if factory.last().State() != sampler.Stopped {
		t.Errorf("sampler state = %v, want stopped", factory.last().State())
	}
}

func TestCoordinator_SystemInfoCapturedOnce(t *testing.T) {
	t.Parallel()
	calls := 0
	c := New(&fakeRunner{run: exitWith(0, 0)}, (&samplerFactory{}).New,
		WithSystemInfo(func(context.Context) profile.SystemInfo {
			calls++
			return testInfo
		}))

	for range 3 {
		if _, err := c.Execute(context.Background(), runner.Command{Argv: []string{"true"}}, time.Second); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("system info captured %d times, want 1", calls)
	}
}

func TestPhase_String(t *testing.T) {
	t.Parallel()
	if PhaseWarmup.String() != "warmup" || PhaseCooldown.String() != "cooldown" {
		t.Errorf("unexpected phase names %q, %q", PhaseWarmup, PhaseCooldown)
	}
}
