// Environment variable overrides.

package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// isFlagSet checks if a flag was explicitly set on the command line.
// This is used to determine whether to apply environment variable overrides.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// This is useful for aliased flags where either the short or long form may be used.
func isFlagSetAny(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if isFlagSet(fs, name) {
			return true
		}
	}
	return false
}

// envOverride declares a single environment variable override.
// Each entry maps an env key (without the BSPROF_ prefix) to the CLI flag
// name(s) it corresponds to and a function that applies the env value.
type envOverride struct {
	envKey string
	flags  []string
	apply  func(*AppConfig, string)
}

// envOverrides is the declarative table of all environment variable overrides.
// Malformed values are ignored and the flag default is kept.
var envOverrides = []envOverride{
	// Duration overrides
	{"INTERVAL", []string{"interval", "i"}, func(c *AppConfig, v string) {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.Interval = parsed
		}
	}},
	{"WARMUP", []string{"warmup", "w"}, func(c *AppConfig, v string) {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.Warmup = parsed
		}
	}},
	{"COOLDOWN", []string{"cooldown", "c"}, func(c *AppConfig, v string) {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.Cooldown = parsed
		}
	}},
	{"TIMEOUT", []string{"timeout"}, func(c *AppConfig, v string) {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.Timeout = parsed
		}
	}},

	// Numeric overrides
	{"MAX_SAMPLES", []string{"max-samples"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.MaxSamples = parsed
		}
	}},

	// String overrides
	{"JOBS", []string{"jobs", "j"}, func(c *AppConfig, v string) {
		c.JobsSpec = v
	}},
	{"JOBS_FLAG", []string{"jobs-flag"}, func(c *AppConfig, v string) {
		c.JobsFlag = v
	}},
	{"OUTPUT", []string{"output", "o"}, func(c *AppConfig, v string) {
		c.OutputFile = v
	}},
	{"FORMAT", []string{"format"}, func(c *AppConfig, v string) {
		c.Format = v
	}},
	{"TITLE", []string{"title"}, func(c *AppConfig, v string) {
		c.Title = v
	}},
	{"DB", []string{"db"}, func(c *AppConfig, v string) {
		c.DBPath = v
	}},
	{"METRICS_FILE", []string{"metrics-file"}, func(c *AppConfig, v string) {
		c.MetricsFile = v
	}},
	{"METRICS_ADDR", []string{"metrics-addr"}, func(c *AppConfig, v string) {
		c.MetricsAddr = v
	}},
	{"THEME", []string{"theme"}, func(c *AppConfig, v string) {
		c.Theme = v
	}},
	{"SHELL", []string{"shell"}, func(c *AppConfig, v string) {
		c.Shell = v
	}},

	// Boolean overrides
	{"QUIET", []string{"quiet", "q"}, func(c *AppConfig, v string) {
		c.Quiet = parseBoolEnv(v, c.Quiet)
	}},
	{"VERBOSE", []string{"verbose", "v"}, func(c *AppConfig, v string) {
		c.Verbose = parseBoolEnv(v, c.Verbose)
	}},
	{"NO_COLOR", []string{"no-color"}, func(c *AppConfig, v string) {
		c.NoColor = parseBoolEnv(v, c.NoColor)
	}},
	{"LOG_JSON", []string{"log-json"}, func(c *AppConfig, v string) {
		c.LogJSON = parseBoolEnv(v, c.LogJSON)
	}},
}

// parseBoolEnv parses a boolean environment variable value.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
// Returns defaultVal if the value is not recognized.
func parseBoolEnv(val string, defaultVal bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// This implements the priority: CLI flags > Environment variables > Defaults.
//
// Supported environment variables (all prefixed with BSPROF_):
//   - INTERVAL, WARMUP, COOLDOWN, TIMEOUT, MAX_SAMPLES, JOBS, JOBS_FLAG,
//     OUTPUT, FORMAT, TITLE, DB, METRICS_FILE, SHELL, QUIET, VERBOSE, NO_COLOR
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) {
	for _, o := range envOverrides {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			o.apply(config, val)
		}
	}
}
