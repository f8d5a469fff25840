// Package profile defines the domain types shared by the sampler, the command
// runner, the coordinator and the report writers: samples, the sample series,
// the command result with its resource usage, and the per-run report record.
package profile

import (
	"time"
)

// LoadAvg holds the 1, 5 and 15 minute system load averages.
type LoadAvg struct {
	Load1  float64
	Load5  float64
	Load15 float64
}

// Sample is one timestamped system-metric snapshot. It is immutable once
// appended to a Series.
type Sample struct {
	// Timestamp is the wall-clock instant the sample was taken.
	Timestamp time.Time
	// Elapsed is the offset of Timestamp from the start of sampling.
	Elapsed time.Duration
	// LoadAvg is nil when the platform does not report load averages.
	LoadAvg *LoadAvg
	// CPUUsage is the system-wide CPU utilization in percent (0..100).
	CPUUsage float64
	// MemoryUsed is the amount of memory in use, in bytes.
	MemoryUsed uint64
	// CPUsUtilization holds one utilization percentage per logical core.
	CPUsUtilization []float64
}

// Series is the ordered sequence of samples collected during one run.
// Insertion order is temporal order.
type Series struct {
	// Start is the instant sampling began. Sample.Elapsed is relative to it.
	Start time.Time
	// Interval is the sampling cadence the series was collected with.
	Interval time.Duration
	// Samples in the order they were taken.
	Samples []Sample
	// Dropped counts samples evicted because the series was bounded.
	Dropped int
	// Skipped counts ticks on which no sample could be read.
	Skipped int
}

// Len returns the number of samples held by the series.
func (s Series) Len() int { return len(s.Samples) }

// Last returns the most recent sample and whether one exists.
func (s Series) Last() (Sample, bool) {
	if len(s.Samples) == 0 {
		return Sample{}, false
	}
	return s.Samples[len(s.Samples)-1], true
}

// CPUUsage returns the total CPU usage column of the series.
func (s Series) CPUUsage() []float64 {
	out := make([]float64, len(s.Samples))
	for i, smp := range s.Samples {
		out[i] = smp.CPUUsage
	}
	return out
}

// Rusage holds the resource-usage counters of a terminated child process.
type Rusage struct {
	UserTime   time.Duration
	SystemTime time.Duration
	// MaxRSS is the peak resident set size in kilobytes on every platform.
	MaxRSS                 int64
	MinorFaults            int64
	MajorFaults            int64
	InBlock                int64
	OutBlock               int64
	VoluntaryCtxSwitches   int64
	InvoluntaryCtxSwitches int64
}

// CommandResult describes a completed child process.
type CommandResult struct {
	ExitCode int
	Elapsed  time.Duration
	Rusage   Rusage
}

// ElapsedSeconds returns the wall-clock run time in seconds.
func (r CommandResult) ElapsedSeconds() float64 { return r.Elapsed.Seconds() }

// UserSeconds returns the child's user CPU time in seconds.
func (r CommandResult) UserSeconds() float64 { return r.Rusage.UserTime.Seconds() }

// SystemSeconds returns the child's system CPU time in seconds.
func (r CommandResult) SystemSeconds() float64 { return r.Rusage.SystemTime.Seconds() }

// CPUPercent returns (user+system)/elapsed as a percentage, the figure GNU
// time reports as "%P". It may exceed 100 for parallel workloads.
func (r CommandResult) CPUPercent() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return (r.Rusage.UserTime + r.Rusage.SystemTime).Seconds() / r.Elapsed.Seconds() * 100
}

// Succeeded reports whether the child exited with status zero.
func (r CommandResult) Succeeded() bool { return r.ExitCode == 0 }

// SystemInfo describes the host. It is captured once per process.
type SystemInfo struct {
	NumCPUs     int
	CPUName     string
	TotalMemory uint64
	OS          string
}

// Record is one profiled command invocation: the unit persisted and consumed
// by report rendering.
type Record struct {
	SystemInfo SystemInfo
	Command    []string
	// Jobs is the run parameter of a sweep (0 when the run was not part of one).
	Jobs   int
	Result CommandResult
	Series Series
}

// Settings are the profiling parameters shared by every run of a report.
type Settings struct {
	Interval time.Duration
	Warmup   time.Duration
	Cooldown time.Duration
}

// Report is an ordered collection of records sharing one system description,
// typically one record per jobs level of a sweep.
type Report struct {
	SystemInfo SystemInfo
	Settings   Settings
	Results    []Record
}

// NewReport creates an empty report for the given host and settings.
func NewReport(info SystemInfo, settings Settings) *Report {
	return &Report{SystemInfo: info, Settings: settings}
}

// AddResult appends a record to the report.
func (r *Report) AddResult(rec Record) {
	r.Results = append(r.Results, rec)
}
