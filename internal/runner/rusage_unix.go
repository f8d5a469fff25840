//go:build unix

package runner

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mpsm/bsprof/internal/profile"
)

// childUsage returns the accumulated usage of all waited-for children of this
// process.
func childUsage() *unix.Rusage {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &ru); err != nil {
		return nil
	}
	return &ru
}

// collectUsage computes the usage of the child that just exited as the growth
// of the RUSAGE_CHILDREN counters across its lifetime. That includes
// grandchildren reaped by the child, which a build driver such as make spawns
// in bulk. Peak RSS is not additive and comes from the child's own wait status.
func collectUsage(before *unix.Rusage, ps *os.ProcessState) profile.Rusage {
	var out profile.Rusage
	if ps != nil {
		if sys, ok := ps.SysUsage().(*syscall.Rusage); ok && sys != nil {
			out.MaxRSS = maxRSSKilobytes(int64(sys.Maxrss))
		}
	}
	after := childUsage()
	if before == nil || after == nil {
		return out
	}
	out.UserTime = timeval(after.Utime) - timeval(before.Utime)
	out.SystemTime = timeval(after.Stime) - timeval(before.Stime)
	out.MinorFaults = int64(after.Minflt - before.Minflt)
	out.MajorFaults = int64(after.Majflt - before.Majflt)
	out.InBlock = int64(after.Inblock - before.Inblock)
	out.OutBlock = int64(after.Oublock - before.Oublock)
	out.VoluntaryCtxSwitches = int64(after.Nvcsw - before.Nvcsw)
	out.InvoluntaryCtxSwitches = int64(after.Nivcsw - before.Nivcsw)
	return out
}

func timeval(tv unix.Timeval) time.Duration {
	return time.Duration(tv.Nano())
}

func signalNumber(ps *os.ProcessState) (int, bool) {
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return int(ws.Signal()), true
}

func terminatingSignal(ps *os.ProcessState) (string, bool) {
	n, ok := signalNumber(ps)
	if !ok {
		return "", false
	}
	if name := unix.SignalName(syscall.Signal(n)); name != "" {
		return name, true
	}
	return syscall.Signal(n).String(), true
}
