// Package runner spawns the profiled command, waits for it and reports its
// exit status, wall-clock duration and resource usage.
package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	apperrors "github.com/mpsm/bsprof/internal/errors"
	"github.com/mpsm/bsprof/internal/logging"
	"github.com/mpsm/bsprof/internal/profile"
)

var errEmptyCommand = errors.New("empty command line")

// DefaultJobsFlag is the flag appended before the jobs count when a command
// is run as part of a sweep.
const DefaultJobsFlag = "-j"

// Command is a program invocation. Argv[0] is looked up on PATH unless Shell
// is set, in which case the joined argv is passed to Shell as a single
// command string (-c, or /C for cmd.exe).
type Command struct {
	Argv  []string
	Shell string
}

// String renders the command line as it would be typed.
func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// WithJobs returns a copy of c with "<flag> <n>" appended to its arguments.
func (c Command) WithJobs(flag string, n int) Command {
	if flag == "" {
		flag = DefaultJobsFlag
	}
	argv := make([]string, 0, len(c.Argv)+2)
	argv = append(argv, c.Argv...)
	argv = append(argv, flag, strconv.Itoa(n))
	return Command{Argv: argv, Shell: c.Shell}
}

// Runner executes commands with inherited standard streams by default.
type Runner struct {
	clock     clockwork.Clock
	logger    logging.Logger
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	env       []string
	waitDelay time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the clock used to time the child.
func WithClock(c clockwork.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithLogger sets the runner's logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithStdio replaces the inherited standard streams. A nil stream is
// connected to the null device.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdin, r.stdout, r.stderr = stdin, stdout, stderr
	}
}

// WithEnv appends KEY=VALUE entries to the inherited environment.
func WithEnv(env ...string) Option {
	return func(r *Runner) { r.env = append(r.env, env...) }
}

// WithWaitDelay bounds how long the child may take to exit after it has been
// interrupted on context cancellation before it is killed.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) { r.waitDelay = d }
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		clock:     clockwork.NewRealClock(),
		logger:    logging.Nop(),
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		waitDelay: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts cmd and blocks until it exits. A failure to start is returned as
// an apperrors.SpawnError. A non-zero exit status is not an error: it is
// reported in the result. If ctx ends first the child is interrupted, and the
// result is returned together with ctx.Err(). A child that exits on its own is
// never reported as interrupted, even if ctx is done by the time it is reaped.
func (r *Runner) Run(ctx context.Context, cmd Command) (profile.CommandResult, error) {
	if len(cmd.Argv) == 0 {
		return profile.CommandResult{}, apperrors.SpawnError{Cause: errEmptyCommand}
	}

	var interrupted atomic.Bool
	c := r.build(ctx, cmd, &interrupted)
	before := childUsage()
	start := r.clock.Now()
	if err := c.Start(); err != nil {
		return profile.CommandResult{}, apperrors.SpawnError{Command: cmd.Argv, Cause: err}
	}
	r.logger.Debug("command started", logging.Strings("argv", cmd.Argv), logging.Int("pid", c.Process.Pid))

	waitErr := c.Wait()
	elapsed := r.clock.Since(start)

	res := profile.CommandResult{
		ExitCode: exitCode(c.ProcessState),
		Elapsed:  elapsed,
		Rusage:   collectUsage(before, c.ProcessState),
	}

	if err := runError(ctx, interrupted.Load(), waitErr, cmd); err != nil {
		return res, err
	}
	if sig, ok := terminatingSignal(c.ProcessState); ok {
		r.logger.Warn("command terminated by signal", logging.String("signal", sig))
	}
	return res, nil
}

// runError decides what Run reports besides the result. ctx.Err() is returned
// only when the child was actually signalled because ctx ended.
func runError(ctx context.Context, interrupted bool, waitErr error, cmd Command) error {
	var exitErr *exec.ExitError
	switch {
	case interrupted && ctx.Err() != nil:
		return ctx.Err()
	case waitErr != nil && !errors.As(waitErr, &exitErr):
		// I/O copy failures on non-file streams.
		return apperrors.WrapError(waitErr, "waiting for %q", cmd.String())
	}
	return nil
}

// build prepares the child. interrupted is set once the child has been sent
// the interrupt signal on ctx cancellation.
func (r *Runner) build(ctx context.Context, cmd Command, interrupted *atomic.Bool) *exec.Cmd {
	var c *exec.Cmd
	if cmd.Shell != "" {
		c = exec.CommandContext(ctx, cmd.Shell, shellFlag(cmd.Shell), cmd.String())
	} else {
		c = exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	}
	c.Stdin = r.stdin
	c.Stdout = r.stdout
	c.Stderr = r.stderr
	if len(r.env) > 0 {
		c.Env = append(os.Environ(), r.env...)
	}
	c.Cancel = func() error {
		err := c.Process.Signal(os.Interrupt)
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			// No SIGINT on this platform.
			err = c.Process.Kill()
		}
		if err == nil {
			interrupted.Store(true)
		}
		return err
	}
	c.WaitDelay = r.waitDelay
	return c
}

func exitCode(ps *os.ProcessState) int {
	if ps == nil {
		return -1
	}
	if code := ps.ExitCode(); code >= 0 {
		return code
	}
	if sig, ok := signalNumber(ps); ok {
		return 128 + sig
	}
	return -1
}

func shellFlag(shell string) string {
	base := strings.ToLower(filepath.Base(shell))
	if base == "cmd" || base == "cmd.exe" {
		return "/C"
	}
	return "-c"
}
