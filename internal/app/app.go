package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/mpsm/bsprof/internal/cli"
	"github.com/mpsm/bsprof/internal/config"
	apperrors "github.com/mpsm/bsprof/internal/errors"
	"github.com/mpsm/bsprof/internal/logging"
	"github.com/mpsm/bsprof/internal/metrics"
	"github.com/mpsm/bsprof/internal/orchestration"
	"github.com/mpsm/bsprof/internal/profile"
	"github.com/mpsm/bsprof/internal/report"
	"github.com/mpsm/bsprof/internal/runner"
	"github.com/mpsm/bsprof/internal/sampler"
	"github.com/mpsm/bsprof/internal/server"
	"github.com/mpsm/bsprof/internal/sysmon"
	"github.com/mpsm/bsprof/internal/ui"
)

// Application represents the bsprof application instance.
type Application struct {
	Config    config.AppConfig
	ErrWriter io.Writer

	source     sampler.Source
	systemInfo orchestration.SystemInfoFunc
	stdin      io.Reader
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithSource replaces the system metrics source, mainly for tests.
func WithSource(s sampler.Source) AppOption {
	return func(a *Application) { a.source = s }
}

// WithSystemInfo replaces the host description provider.
func WithSystemInfo(f orchestration.SystemInfoFunc) AppOption {
	return func(a *Application) { a.systemInfo = f }
}

// WithStdin sets the standard input passed to the profiled command.
func WithStdin(r io.Reader) AppOption {
	return func(a *Application) { a.stdin = r }
}

// New creates a new Application instance by parsing command-line arguments.
// args[0] is the program name.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter, stdin: os.Stdin}
	for _, opt := range opts {
		opt(app)
	}
	if app.source == nil {
		app.source = sysmon.NewSource()
	}
	if app.systemInfo == nil {
		app.systemInfo = sysmon.CaptureSystemInfo
	}

	programName := "bsprof"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}
	app.Config = cfg
	return app, nil
}

// Run profiles the configured command and writes the report. The child's
// stdout and the progress display share out. The returned value is the
// process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	if a.Config.ShowVersion {
		PrintVersion(out)
		return apperrors.ExitSuccess
	}

	switch {
	case a.Config.Verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case a.Config.Quiet:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	ui.InitTheme(a.Config.NoColor, a.Config.Theme)

	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	logger := a.newLogger()
	recorder := metrics.NewPrometheus()
	coord := a.newCoordinator(out, logger, recorder)

	if a.Config.MetricsAddr != "" {
		srv := server.New(a.Config.MetricsAddr, recorder, server.WithLogger(logger))
		if err := srv.Start(); err != nil {
			fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
			return apperrors.ExitCodeFor(err)
		}
		defer func() {
			if err := srv.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Error("metrics server shutdown failed", err)
			}
		}()
	}

	if !a.Config.Quiet {
		cli.DisplaySystemInfo(out, coord.SystemInfo(ctx))
	}

	rep, err := coord.Sweep(ctx, a.command(), orchestration.SweepOptions{
		Jobs:     a.Config.Jobs,
		JobsFlag: a.Config.JobsFlag,
		Interval: a.Config.Interval,
		Warmup:   a.Config.Warmup,
		Cooldown: a.Config.Cooldown,
	})
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
	}
	if rep == nil {
		return apperrors.ExitCodeFor(err)
	}

	if !a.Config.Quiet {
		cli.DisplaySweepTable(out, rep)
	}
	if saveErr := a.saveReport(ctx, out, logger, rep); saveErr != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", saveErr)
		if err == nil {
			return apperrors.ExitErrorGeneric
		}
	}
	if a.Config.MetricsFile != "" {
		if mErr := recorder.WriteTextfile(a.Config.MetricsFile); mErr != nil {
			logger.Error("writing metrics textfile failed", mErr, logging.String("path", a.Config.MetricsFile))
		}
	}
	return apperrors.ExitCodeFor(err)
}

func (a *Application) newLogger() logging.Logger {
	if a.Config.LogJSON {
		return logging.NewLogger(a.ErrWriter, "bsprof")
	}
	return logging.NewDefaultLogger(a.ErrWriter, a.Config.NoColor)
}

func (a *Application) newCoordinator(out io.Writer, logger logging.Logger, recorder metrics.Recorder) *orchestration.Coordinator {
	newSampler := func() orchestration.Sampler {
		return sampler.New(a.source,
			sampler.WithLogger(logger),
			sampler.WithRecorder(recorder),
			sampler.WithMaxSamples(a.Config.MaxSamples))
	}
	run := runner.New(
		runner.WithLogger(logger),
		runner.WithStdio(a.stdin, out, a.ErrWriter))

	var observer orchestration.Observer = orchestration.NullObserver{}
	if !a.Config.Quiet {
		observer = cli.NewObserver(out, a.ErrWriter)
	}
	return orchestration.New(run, newSampler,
		orchestration.WithSystemInfo(a.systemInfo),
		orchestration.WithLogger(logger),
		orchestration.WithObserver(observer),
		orchestration.WithRecorder(recorder),
		orchestration.WithTimeout(a.Config.Timeout))
}

func (a *Application) command() runner.Command {
	return runner.Command{Argv: a.Config.Command, Shell: a.Config.Shell}
}

// saveReport writes the report file and, when configured, appends every run
// to the history database.
func (a *Application) saveReport(ctx context.Context, out io.Writer, logger logging.Logger, rep *profile.Report) error {
	title := a.Config.Title
	if title == "" {
		title = a.command().String()
	}
	if err := report.WriteFile(a.Config.OutputFile, a.Config.ReportFormat(), title, rep); err != nil {
		return err
	}
	if !a.Config.Quiet {
		cli.DisplayReportSaved(out, a.Config.OutputFile)
	}

	if a.Config.DBPath == "" {
		return nil
	}
	store, err := report.OpenSQLiteStore(a.Config.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	// The runs are already on disk; a cancelled run must still be recorded.
	ctx = context.WithoutCancel(ctx)
	for _, rec := range rep.Results {
		id, err := store.SaveRecord(ctx, rec)
		if err != nil {
			return err
		}
		logger.Debug("run saved to history", logging.Int64("id", id), logging.String("db", a.Config.DBPath))
	}
	return nil
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
