package orchestration

import (
	"context"
	"time"

	"github.com/mpsm/bsprof/internal/profile"
	"github.com/mpsm/bsprof/internal/runner"
	"github.com/mpsm/bsprof/internal/sampler"
)

// CommandRunner runs a command to completion in the foreground.
type CommandRunner interface {
	Run(ctx context.Context, cmd runner.Command) (profile.CommandResult, error)
}

// Sampler starts background sampling. Implementations are single use; the
// coordinator asks its factory for a fresh one per run.
type Sampler interface {
	Start(ctx context.Context, interval time.Duration) (*sampler.Handle, error)
}

// SamplerFactory creates a fresh Sampler.
type SamplerFactory func() Sampler

// SystemInfoFunc describes the host. It must not fail; unknown fields are
// filled with placeholders.
type SystemInfoFunc func(ctx context.Context) profile.SystemInfo

// Phase identifies an idle pause around a run.
type Phase int

const (
	PhaseWarmup Phase = iota
	PhaseCooldown
)

func (p Phase) String() string {
	if p == PhaseCooldown {
		return "cooldown"
	}
	return "warmup"
}

// Observer is notified of run progress. This interface decouples the
// coordinator from the terminal: the CLI shows spinners and summaries, tests
// record the calls.
type Observer interface {
	// RunStarted is called right before the sampler starts.
	RunStarted(jobs int, cmd runner.Command)
	// CommandExited is called once the command has exited and the sampler has
	// been joined, whatever the exit status.
	CommandExited(rec profile.Record)
	// PauseStarted and PauseFinished bracket a warmup or cooldown pause.
	PauseStarted(phase Phase, d time.Duration)
	PauseFinished(phase Phase)
}

// NullObserver ignores all notifications. Useful for quiet mode or testing.
type NullObserver struct{}

// RunStarted does nothing.
func (NullObserver) RunStarted(int, runner.Command) {}

// CommandExited does nothing.
func (NullObserver) CommandExited(profile.Record) {}

// PauseStarted does nothing.
func (NullObserver) PauseStarted(Phase, time.Duration) {}

// PauseFinished does nothing.
func (NullObserver) PauseFinished(Phase) {}
