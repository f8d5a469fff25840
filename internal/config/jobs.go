package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	apperrors "github.com/mpsm/bsprof/internal/errors"
)

// AutoJobsLevels returns the jobs levels swept by "-jobs auto": powers of two
// up to the number of logical CPUs, then the CPU count itself and twice it to
// show the effect of oversubscription.
func AutoJobsLevels(numCPU int) []int {
	if numCPU < 1 {
		numCPU = 1
	}
	var levels []int
	for n := 1; n < numCPU; n *= 2 {
		levels = append(levels, n)
	}
	return append(levels, numCPU, 2*numCPU)
}

// ParseJobs parses a comma-separated list of positive jobs counts. An empty
// spec yields nil (a single run without a jobs flag). "auto" expands to
// AutoJobsLevels(numCPU), using runtime.NumCPU when numCPU is zero. Bad
// entries are reported as an apperrors.ValidationError on the "jobs" field.
func ParseJobs(spec string, numCPU int) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	if strings.EqualFold(spec, "auto") {
		if numCPU <= 0 {
			numCPU = runtime.NumCPU()
		}
		return AutoJobsLevels(numCPU), nil
	}

	parts := strings.Split(spec, ",")
	jobs := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, apperrors.ValidationError{Field: "jobs", Message: fmt.Sprintf("invalid jobs value %q in %q", p, spec)}
		}
		if n <= 0 {
			return nil, apperrors.ValidationError{Field: "jobs", Message: fmt.Sprintf("must be positive, got %d", n)}
		}
		jobs = append(jobs, n)
	}
	return jobs, nil
}
