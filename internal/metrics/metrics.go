// Package metrics exposes profiling activity as Prometheus metrics: sampler
// ticks, skipped readings, the latest system snapshot and per-run command
// accounting. The registry can be served over HTTP or dumped to a node
// exporter textfile at the end of a run.
package metrics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/mpsm/bsprof/internal/errors"
	"github.com/mpsm/bsprof/internal/profile"
)

const namespace = "bsprof"

// Recorder receives profiling events. Implementations must be safe for use
// from the sampler goroutine and the caller goroutine concurrently.
type Recorder interface {
	SampleTaken(s profile.Sample)
	SampleSkipped(err error)
	CommandFinished(jobs int, res profile.CommandResult)
}

// Nop is a Recorder that discards all events.
type Nop struct{}

// SampleTaken does nothing.
func (Nop) SampleTaken(profile.Sample) {}

// SampleSkipped does nothing.
func (Nop) SampleSkipped(error) {}

// CommandFinished does nothing.
func (Nop) CommandFinished(int, profile.CommandResult) {}

// Prometheus records events into a private Prometheus registry.
type Prometheus struct {
	registry *prometheus.Registry
	handler  http.Handler

	samplesTotal   prometheus.Counter
	samplesSkipped *prometheus.CounterVec
	cpuUsage       prometheus.Gauge
	memoryUsed     prometheus.Gauge
	load1          prometheus.Gauge

	commandDuration *prometheus.HistogramVec
	userSeconds     *prometheus.GaugeVec
	systemSeconds   *prometheus.GaugeVec
	exitCode        *prometheus.GaugeVec
	maxRSS          *prometheus.GaugeVec
}

// NewPrometheus creates a recorder backed by a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		samplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Number of system samples collected.",
		}),
		samplesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_skipped_total",
			Help:      "Number of sampler ticks skipped because a reading was unavailable.",
		}, []string{"metric"}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cpu_usage_percent",
			Help:      "System-wide CPU usage at the last sample.",
		}),
		memoryUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_used_bytes",
			Help:      "Memory in use at the last sample.",
		}),
		load1: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load1",
			Help:      "One minute load average at the last sample.",
		}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Wall-clock duration of profiled commands.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14),
		}, []string{"jobs"}),
		userSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "command_user_cpu_seconds",
			Help:      "User CPU time consumed by the last profiled command.",
		}, []string{"jobs"}),
		systemSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "command_system_cpu_seconds",
			Help:      "System CPU time consumed by the last profiled command.",
		}, []string{"jobs"}),
		exitCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "command_exit_code",
			Help:      "Exit code of the last profiled command.",
		}, []string{"jobs"}),
		maxRSS: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "command_max_rss_kilobytes",
			Help:      "Peak resident set size of the last profiled command tree.",
		}, []string{"jobs"}),
	}
	reg.MustRegister(
		p.samplesTotal, p.samplesSkipped, p.cpuUsage, p.memoryUsed, p.load1,
		p.commandDuration, p.userSeconds, p.systemSeconds, p.exitCode, p.maxRSS,
	)
	p.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return p
}

// Registry returns the underlying registry for embedding in other exporters.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// SampleTaken updates the sample counter and the latest-snapshot gauges.
func (p *Prometheus) SampleTaken(s profile.Sample) {
	p.samplesTotal.Inc()
	p.cpuUsage.Set(s.CPUUsage)
	p.memoryUsed.Set(float64(s.MemoryUsed))
	if s.LoadAvg != nil {
		p.load1.Set(s.LoadAvg.Load1)
	}
}

// SampleSkipped counts a skipped tick, labelled by the failing metric.
func (p *Prometheus) SampleSkipped(err error) {
	metric := "unknown"
	var unavailable apperrors.SampleUnavailableError
	if errors.As(err, &unavailable) && unavailable.Metric != "" {
		metric = unavailable.Metric
	}
	p.samplesSkipped.WithLabelValues(metric).Inc()
}

// CommandFinished records the accounting of a completed command.
func (p *Prometheus) CommandFinished(jobs int, res profile.CommandResult) {
	label := strconv.Itoa(jobs)
	p.commandDuration.WithLabelValues(label).Observe(res.ElapsedSeconds())
	p.userSeconds.WithLabelValues(label).Set(res.UserSeconds())
	p.systemSeconds.WithLabelValues(label).Set(res.SystemSeconds())
	p.exitCode.WithLabelValues(label).Set(float64(res.ExitCode))
	p.maxRSS.WithLabelValues(label).Set(float64(res.Rusage.MaxRSS))
}

// WritePrometheus serves the registry in the Prometheus exposition format.
func (p *Prometheus) WritePrometheus(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// WriteTextfile writes the registry to path in the text exposition format,
// suitable for the node exporter textfile collector.
func (p *Prometheus) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}
