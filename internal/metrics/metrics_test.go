package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	apperrors "github.com/mpsm/bsprof/internal/errors"
	"github.com/mpsm/bsprof/internal/profile"
)

// TestPrometheus_SampleTaken tests the sample counter and snapshot gauges.
func TestPrometheus_SampleTaken(t *testing.T) {
	p := NewPrometheus()

	p.SampleTaken(profile.Sample{CPUUsage: 42, MemoryUsed: 1024, LoadAvg: &profile.LoadAvg{Load1: 1.5}})
	p.SampleTaken(profile.Sample{CPUUsage: 17, MemoryUsed: 2048})

	if got := testutil.ToFloat64(p.samplesTotal); got != 2 {
		t.Errorf("samples_total = %f, want 2", got)
	}
	if got := testutil.ToFloat64(p.cpuUsage); got != 17 {
		t.Errorf("cpu_usage_percent = %f, want 17", got)
	}
	if got := testutil.ToFloat64(p.memoryUsed); got != 2048 {
		t.Errorf("memory_used_bytes = %f, want 2048", got)
	}
	// A sample without load averages keeps the previous value.
	if got := testutil.ToFloat64(p.load1); got != 1.5 {
		t.Errorf("load1 = %f, want 1.5", got)
	}
}

// TestPrometheus_SampleSkipped tests labelling of skipped ticks.
func TestPrometheus_SampleSkipped(t *testing.T) {
	p := NewPrometheus()

	p.SampleSkipped(apperrors.SampleUnavailableError{Metric: "cpu", Cause: errors.New("x")})
	p.SampleSkipped(apperrors.SampleUnavailableError{Metric: "cpu", Cause: errors.New("y")})
	p.SampleSkipped(errors.New("opaque"))

	if got := testutil.ToFloat64(p.samplesSkipped.WithLabelValues("cpu")); got != 2 {
		t.Errorf("skipped{metric=cpu} = %f, want 2", got)
	}
	if got := testutil.ToFloat64(p.samplesSkipped.WithLabelValues("unknown")); got != 1 {
		t.Errorf("skipped{metric=unknown} = %f, want 1", got)
	}
}

// TestPrometheus_WritePrometheus tests the exposition endpoint.
func TestPrometheus_WritePrometheus(t *testing.T) {
	p := NewPrometheus()
	p.SampleTaken(profile.Sample{CPUUsage: 10})
	p.CommandFinished(4, profile.CommandResult{
		ExitCode: 2,
		Elapsed:  3 * time.Second,
		Rusage:   profile.Rusage{UserTime: 5 * time.Second, SystemTime: time.Second},
	})

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	p.WritePrometheus(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"bsprof_samples_total 1",
		`bsprof_command_exit_code{jobs="4"} 2`,
		`bsprof_command_user_cpu_seconds{jobs="4"} 5`,
		`bsprof_command_duration_seconds_count{jobs="4"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output should contain %q, got:\n%s", want, body)
		}
	}
}

// TestPrometheus_WriteTextfile tests dumping the registry for the textfile collector.
func TestPrometheus_WriteTextfile(t *testing.T) {
	p := NewPrometheus()
	p.SampleTaken(profile.Sample{CPUUsage: 99})

	path := filepath.Join(t.TempDir(), "bsprof.prom")
	if err := p.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	if !strings.Contains(string(data), "bsprof_cpu_usage_percent 99") {
		t.Errorf("textfile missing cpu gauge:\n%s", data)
	}
}

// TestRecorderInterface verifies both recorders implement Recorder.
func TestRecorderInterface(t *testing.T) {
	var _ Recorder = Nop{}
	var _ Recorder = NewPrometheus()
}
