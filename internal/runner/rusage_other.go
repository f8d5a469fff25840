//go:build !unix

package runner

import (
	"os"

	"github.com/mpsm/bsprof/internal/profile"
)

func childUsage() *struct{} { return nil }

func collectUsage(_ *struct{}, ps *os.ProcessState) profile.Rusage {
	if ps == nil {
		return profile.Rusage{}
	}
	return profile.Rusage{UserTime: ps.UserTime(), SystemTime: ps.SystemTime()}
}

func signalNumber(*os.ProcessState) (int, bool) { return 0, false }

func terminatingSignal(*os.ProcessState) (string, bool) { return "", false }
