package sysmon

import (
	"context"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/mpsm/bsprof/internal/profile"
)

const unknown = "Unknown"

// CaptureSystemInfo describes the host. It never fails: fields that cannot be
// read are left at zero or "Unknown".
func CaptureSystemInfo(ctx context.Context) profile.SystemInfo {
	info := profile.SystemInfo{
		NumCPUs: runtime.NumCPU(),
		CPUName: unknown,
		OS:      unknown,
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		info.NumCPUs = n
	}
	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUName = cpuName(cpus[0])
	}
	if vmem, err := mem.VirtualMemoryWithContext(ctx); err == nil && vmem != nil {
		info.TotalMemory = vmem.Total
	}
	if h, err := host.InfoWithContext(ctx); err == nil && h != nil {
		info.OS = osName(h.Platform, h.PlatformVersion, h.KernelVersion)
	}
	return info
}

func cpuName(c cpu.InfoStat) string {
	switch {
	case c.VendorID != "" && c.ModelName != "":
		return c.VendorID + " / " + c.ModelName
	case c.ModelName != "":
		return c.ModelName
	case c.VendorID != "":
		return c.VendorID
	}
	return unknown
}

// osName formats "name version (kernel)", dropping the parts that are empty.
func osName(name, version, kernel string) string {
	if name == "" {
		return unknown
	}
	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		b.WriteString(" " + version)
	}
	if kernel != "" {
		b.WriteString(" (" + kernel + ")")
	}
	return b.String()
}
