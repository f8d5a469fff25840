// Package sysmon reads system-wide resource usage: per-core and total CPU
// utilization, memory in use and load averages. It also describes the host
// once per process.
package sysmon

import (
	"context"
	"errors"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	apperrors "github.com/mpsm/bsprof/internal/errors"
	"github.com/mpsm/bsprof/internal/profile"
)

var errNoCPUData = errors.New("no per-core CPU data reported")

// Source takes instantaneous system snapshots. The zero value is not usable;
// create one with NewSource.
type Source struct {
	cpuPercent    func(ctx context.Context, percpu bool) ([]float64, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	loadAvg       func(ctx context.Context) (*load.AvgStat, error)
}

// NewSource returns a Source backed by gopsutil.
func NewSource() *Source {
	return &Source{
		// interval=0 reports the delta since the previous call, so reads never block.
		cpuPercent: func(ctx context.Context, percpu bool) ([]float64, error) {
			return cpu.PercentWithContext(ctx, 0, percpu)
		},
		virtualMemory: mem.VirtualMemoryWithContext,
		loadAvg:       load.AvgWithContext,
	}
}

// Read collects one snapshot. CPU and memory readings are required; a failure
// of either yields a SampleUnavailableError. Load averages are optional and
// left nil where the platform does not provide them.
//
// The returned sample carries no timestamp; the caller stamps it.
func (s *Source) Read(ctx context.Context) (profile.Sample, error) {
	var smp profile.Sample

	perCore, err := s.cpuPercent(ctx, true)
	if err != nil {
		return profile.Sample{}, apperrors.SampleUnavailableError{Metric: "cpu", Cause: err}
	}
	if len(perCore) == 0 {
		return profile.Sample{}, apperrors.SampleUnavailableError{Metric: "cpu", Cause: errNoCPUData}
	}
	smp.CPUsUtilization = perCore
	smp.CPUUsage = mean(perCore)

	vmem, err := s.virtualMemory(ctx)
	if err != nil {
		return profile.Sample{}, apperrors.SampleUnavailableError{Metric: "memory", Cause: err}
	}
	if vmem != nil {
		smp.MemoryUsed = vmem.Used
	}

	if avg, err := s.loadAvg(ctx); err == nil && avg != nil {
		smp.LoadAvg = &profile.LoadAvg{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	}
	return smp, nil
}

func mean(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
