package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mpsm/bsprof/internal/profile"
)

type jsonDuration struct {
	Secs  uint64 `json:"secs"`
	Nanos uint32 `json:"nanos"`
}

func toJSONDuration(d time.Duration) jsonDuration {
	if d < 0 {
		d = 0
	}
	return jsonDuration{Secs: uint64(d / time.Second), Nanos: uint32(d % time.Second)}
}

func (d jsonDuration) duration() time.Duration {
	return time.Duration(d.Secs)*time.Second + time.Duration(d.Nanos)
}

type jsonSystemInfo struct {
	NumCPUs     int    `json:"num_cpus"`
	CPUName     string `json:"cpu_name"`
	TotalMemory uint64 `json:"total_memory"`
	OS          string `json:"os"`
}

type jsonRusage struct {
	UserTime   jsonDuration `json:"user_time"`
	SystemTime jsonDuration `json:"system_time"`
	MaxRSS     int64        `json:"max_rss"`
	MinFlt     int64        `json:"minflt"`
	MajFlt     int64        `json:"majflt"`
	InBlock    int64        `json:"inblock"`
	OuBlock    int64        `json:"oublock"`
	NVCSw      int64        `json:"nvcsw"`
	NIVCSw     int64        `json:"nivcsw"`
}

type jsonDatapoint struct {
	Elapsed         float64   `json:"elapsed"`
	CPUUsage        float64   `json:"cpu_usage"`
	MemoryUsage     float64   `json:"memory_usage"`
	CPUsUtilization []float64 `json:"cpus_utilization"`
	LoadAvg         []float64 `json:"load_avg,omitempty"`
}

// jsonRun is one profiled invocation. SystemInfo is only set when the run is
// written on its own; inside a full report the host is described once.
type jsonRun struct {
	SystemInfo     *jsonSystemInfo `json:"system_info,omitempty"`
	Command        []string        `json:"command"`
	StartedAt      time.Time       `json:"started_at"`
	ElapsedTime    float64         `json:"elapsed_time"`
	ExitCode       int             `json:"exit_code"`
	Rusage         jsonRusage      `json:"rusage"`
	Jobs           int             `json:"jobs"`
	IntervalMs     int64           `json:"interval_ms"`
	SamplesSkipped int             `json:"samples_skipped"`
	SamplesDropped int             `json:"samples_dropped"`
	Datapoints     []jsonDatapoint `json:"datapoints"`
}

type jsonSettings struct {
	IntervalMs int64 `json:"interval_ms"`
	WarmupMs   int64 `json:"warmup_ms"`
	CooldownMs int64 `json:"cooldown_ms"`
}

type jsonReport struct {
	SystemInfo     jsonSystemInfo `json:"system_info"`
	Settings       jsonSettings   `json:"profile_settings"`
	ProfileResults []jsonRun      `json:"profile_results"`
}

func toJSONSystemInfo(info profile.SystemInfo) jsonSystemInfo {
	return jsonSystemInfo{
		NumCPUs:     info.NumCPUs,
		CPUName:     info.CPUName,
		TotalMemory: info.TotalMemory,
		OS:          info.OS,
	}
}

func (j jsonSystemInfo) systemInfo() profile.SystemInfo {
	return profile.SystemInfo{NumCPUs: j.NumCPUs, CPUName: j.CPUName, TotalMemory: j.TotalMemory, OS: j.OS}
}

func toJSONRun(rec profile.Record) jsonRun {
	ru := rec.Result.Rusage
	run := jsonRun{
		Command:     rec.Command,
		StartedAt:   rec.Series.Start,
		ElapsedTime: rec.Result.Elapsed.Seconds(),
		ExitCode:    rec.Result.ExitCode,
		Rusage: jsonRusage{
			UserTime:   toJSONDuration(ru.UserTime),
			SystemTime: toJSONDuration(ru.SystemTime),
			MaxRSS:     ru.MaxRSS,
			MinFlt:     ru.MinorFaults,
			MajFlt:     ru.MajorFaults,
			InBlock:    ru.InBlock,
			OuBlock:    ru.OutBlock,
			NVCSw:      ru.VoluntaryCtxSwitches,
			NIVCSw:     ru.InvoluntaryCtxSwitches,
		},
		Jobs:           rec.Jobs,
		IntervalMs:     rec.Series.Interval.Milliseconds(),
		SamplesSkipped: rec.Series.Skipped,
		SamplesDropped: rec.Series.Dropped,
		Datapoints:     make([]jsonDatapoint, 0, rec.Series.Len()),
	}
	if run.Command == nil {
		run.Command = []string{}
	}
	for _, smp := range rec.Series.Samples {
		dp := jsonDatapoint{
			Elapsed:         smp.Elapsed.Seconds(),
			CPUUsage:        smp.CPUUsage,
			MemoryUsage:     float64(smp.MemoryUsed),
			CPUsUtilization: smp.CPUsUtilization,
		}
		if dp.CPUsUtilization == nil {
			dp.CPUsUtilization = []float64{}
		}
		if smp.LoadAvg != nil {
			dp.LoadAvg = []float64{smp.LoadAvg.Load1, smp.LoadAvg.Load5, smp.LoadAvg.Load15}
		}
		run.Datapoints = append(run.Datapoints, dp)
	}
	return run
}

func (j jsonRun) record(info profile.SystemInfo) profile.Record {
	rec := profile.Record{
		SystemInfo: info,
		Command:    j.Command,
		Jobs:       j.Jobs,
		Result: profile.CommandResult{
			ExitCode: j.ExitCode,
			Elapsed:  seconds(j.ElapsedTime),
			Rusage: profile.Rusage{
				UserTime:               j.Rusage.UserTime.duration(),
				SystemTime:             j.Rusage.SystemTime.duration(),
				MaxRSS:                 j.Rusage.MaxRSS,
				MinorFaults:            j.Rusage.MinFlt,
				MajorFaults:            j.Rusage.MajFlt,
				InBlock:                j.Rusage.InBlock,
				OutBlock:               j.Rusage.OuBlock,
				VoluntaryCtxSwitches:   j.Rusage.NVCSw,
				InvoluntaryCtxSwitches: j.Rusage.NIVCSw,
			},
		},
		Series: profile.Series{
			Start:    j.StartedAt,
			Interval: time.Duration(j.IntervalMs) * time.Millisecond,
			Skipped:  j.SamplesSkipped,
			Dropped:  j.SamplesDropped,
			Samples:  make([]profile.Sample, 0, len(j.Datapoints)),
		},
	}
	for _, dp := range j.Datapoints {
		elapsed := seconds(dp.Elapsed)
		smp := profile.Sample{
			Elapsed:         elapsed,
			CPUUsage:        dp.CPUUsage,
			MemoryUsed:      uint64(max(dp.MemoryUsage, 0)),
			CPUsUtilization: dp.CPUsUtilization,
		}
		if !j.StartedAt.IsZero() {
			smp.Timestamp = j.StartedAt.Add(elapsed)
		}
		if len(dp.LoadAvg) == 3 {
			smp.LoadAvg = &profile.LoadAvg{Load1: dp.LoadAvg[0], Load5: dp.LoadAvg[1], Load15: dp.LoadAvg[2]}
		}
		rec.Series.Samples = append(rec.Series.Samples, smp)
	}
	return rec
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRecordJSON writes a single run, including the host description, as an
// indented JSON document.
func WriteRecordJSON(w io.Writer, rec profile.Record) error {
	run := toJSONRun(rec)
	info := toJSONSystemInfo(rec.SystemInfo)
	run.SystemInfo = &info
	if err := encode(w, run); err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	return nil
}

// WriteReportJSON writes a full report: the host description, the profile
// settings and one entry per run in the order they were added.
func WriteReportJSON(w io.Writer, rep *profile.Report) error {
	doc := jsonReport{
		SystemInfo: toJSONSystemInfo(rep.SystemInfo),
		Settings: jsonSettings{
			IntervalMs: rep.Settings.Interval.Milliseconds(),
			WarmupMs:   rep.Settings.Warmup.Milliseconds(),
			CooldownMs: rep.Settings.Cooldown.Milliseconds(),
		},
		ProfileResults: make([]jsonRun, 0, len(rep.Results)),
	}
	for _, rec := range rep.Results {
		doc.ProfileResults = append(doc.ProfileResults, toJSONRun(rec))
	}
	if err := encode(w, doc); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// ReadReportJSON parses a document written by WriteReportJSON. Unknown keys
// are ignored.
func ReadReportJSON(r io.Reader) (*profile.Report, error) {
	var doc jsonReport
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	info := doc.SystemInfo.systemInfo()
	rep := profile.NewReport(info, profile.Settings{
		Interval: time.Duration(doc.Settings.IntervalMs) * time.Millisecond,
		Warmup:   time.Duration(doc.Settings.WarmupMs) * time.Millisecond,
		Cooldown: time.Duration(doc.Settings.CooldownMs) * time.Millisecond,
	})
	for _, run := range doc.ProfileResults {
		rep.AddResult(run.record(info))
	}
	return rep, nil
}
