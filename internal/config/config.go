// Package config defines the command-line configuration of bsprof. Values
// come from flags, then from BSPROF_* environment variables for flags that
// were not given, then from defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	apperrors "github.com/mpsm/bsprof/internal/errors"
	"github.com/mpsm/bsprof/internal/report"
	"github.com/mpsm/bsprof/internal/ui"
)

// EnvPrefix is prepended to every environment variable read by the config.
const EnvPrefix = "BSPROF_"

// Defaults.
const (
	DefaultInterval   = time.Second
	DefaultOutputFile = "report.json"
	DefaultJobsFlag   = "-j"
	DefaultFormat     = string(report.FormatJSON)
)

// ErrNoCommand is returned when no command to profile was given.
var ErrNoCommand = errors.New("no command specified")

// AppConfig holds the parsed configuration.
type AppConfig struct {
	// Command is the argv to profile: everything after the first non-flag argument.
	Command []string

	Interval time.Duration
	Warmup   time.Duration
	Cooldown time.Duration
	Timeout  time.Duration

	// JobsSpec is the raw -jobs value; Jobs is its parsed form.
	JobsSpec string
	Jobs     []int
	JobsFlag string

	OutputFile  string
	Format      string
	Title       string
	DBPath      string
	MetricsFile string
	MetricsAddr string
	Shell       string
	MaxSamples  int

	Quiet       bool
	Verbose     bool
	NoColor     bool
	Theme       string
	LogJSON     bool
	ShowVersion bool
}

// ParseConfig parses args (without the program name). Parsing stops at the
// first non-flag argument, which starts the command line to profile. Usage
// and flag errors are written to errWriter.
func ParseConfig(programName string, args []string, errWriter io.Writer) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errWriter)

	cfg := AppConfig{}
	fs.DurationVar(&cfg.Interval, "interval", DefaultInterval, "Sampling interval.")
	fs.DurationVar(&cfg.Interval, "i", DefaultInterval, "Sampling interval (shorthand).")
	fs.DurationVar(&cfg.Warmup, "warmup", 0, "Idle pause before each run.")
	fs.DurationVar(&cfg.Warmup, "w", 0, "Idle pause before each run (shorthand).")
	fs.DurationVar(&cfg.Cooldown, "cooldown", 0, "Idle pause after each run.")
	fs.DurationVar(&cfg.Cooldown, "c", 0, "Idle pause after each run (shorthand).")
	fs.StringVar(&cfg.JobsSpec, "jobs", "", "Comma-separated jobs levels to sweep (e.g. 1,2,4,8), or 'auto'.")
	fs.StringVar(&cfg.JobsSpec, "j", "", "Jobs levels to sweep (shorthand).")
	fs.StringVar(&cfg.JobsFlag, "jobs-flag", DefaultJobsFlag, "Flag placed before the jobs count on the command line.")
	fs.StringVar(&cfg.OutputFile, "output", DefaultOutputFile, "Report file path.")
	fs.StringVar(&cfg.OutputFile, "o", DefaultOutputFile, "Report file path (shorthand).")
	fs.StringVar(&cfg.Format, "format", DefaultFormat, "Report format: json or text.")
	fs.StringVar(&cfg.Title, "title", "", "Title of the text report (defaults to the command line).")
	fs.StringVar(&cfg.DBPath, "db", "", "Append runs to this SQLite history database.")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile.")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while profiling (e.g. :9100).")
	fs.StringVar(&cfg.Shell, "shell", "", "Run the command line through this shell (e.g. /bin/sh).")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "Maximum run time per command (0 = unlimited).")
	fs.IntVar(&cfg.MaxSamples, "max-samples", 0, "Keep only the most recent N samples per run (0 = all).")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "Only print warnings and errors.")
	fs.BoolVar(&cfg.Quiet, "q", false, "Only print warnings and errors (shorthand).")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging.")
	fs.BoolVar(&cfg.Verbose, "v", false, "Enable debug logging (shorthand).")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output.")
	fs.BoolVar(&cfg.LogJSON, "log-json", false, "Write log lines to stderr as JSON.")
	fs.StringVar(&cfg.Theme, "theme", "dark", "Color theme: "+strings.Join(ui.ThemeNames(), ", ")+".")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version information and exit.")

	fs.Usage = func() {
		fmt.Fprintf(errWriter, "Usage: %s [flags] <command> [args...]\n\nFlags:\n", programName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}
	applyEnvOverrides(&cfg, fs)

	cfg.Command = fs.Args()
	if cfg.ShowVersion {
		return cfg, nil
	}
	if len(cfg.Command) == 0 {
		fs.Usage()
		return AppConfig{}, ErrNoCommand
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(errWriter, "Error:", err)
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks the configuration and fills Jobs from JobsSpec. It returns
// an apperrors.ConfigError (or ValidationError for -jobs) describing the first
// problem found.
func (c *AppConfig) Validate() error {
	if c.Interval <= 0 {
		return apperrors.NewConfigError("interval must be positive, got %s", c.Interval)
	}
	if c.Warmup < 0 {
		return apperrors.NewConfigError("warmup must not be negative, got %s", c.Warmup)
	}
	if c.Cooldown < 0 {
		return apperrors.NewConfigError("cooldown must not be negative, got %s", c.Cooldown)
	}
	if c.Timeout < 0 {
		return apperrors.NewConfigError("timeout must not be negative, got %s", c.Timeout)
	}
	if c.MaxSamples < 0 {
		return apperrors.NewConfigError("max-samples must not be negative, got %d", c.MaxSamples)
	}
	if c.Quiet && c.Verbose {
		return apperrors.NewConfigError("quiet and verbose are mutually exclusive")
	}
	if _, err := report.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, ok := ui.LookupTheme(c.Theme); !ok {
		return apperrors.NewConfigError("unknown theme %q (valid: %s)", c.Theme, strings.Join(ui.ThemeNames(), ", "))
	}
	if c.OutputFile == "" {
		return apperrors.NewConfigError("output path must not be empty")
	}

	jobs, err := ParseJobs(c.JobsSpec, 0)
	if err != nil {
		return err
	}
	c.Jobs = jobs
	return nil
}

// ReportFormat returns the validated report format.
func (c AppConfig) ReportFormat() report.Format {
	f, err := report.ParseFormat(c.Format)
	if err != nil {
		return report.FormatJSON
	}
	return f
}
