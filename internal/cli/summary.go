package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mpsm/bsprof/internal/format"
	"github.com/mpsm/bsprof/internal/profile"
	"github.com/mpsm/bsprof/internal/ui"
)

// SparklineWidth is the number of cells of the CPU usage sparkline.
const SparklineWidth = 48

type summaryStyles struct {
	box     lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	chart   lipgloss.Style
	dim     lipgloss.Style
}

func newSummaryStyles(p ui.Palette) summaryStyles {
	return summaryStyles{
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		title:   lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		label:   lipgloss.NewStyle().Foreground(p.Dim).Width(12),
		value:   lipgloss.NewStyle().Foreground(p.Text),
		success: lipgloss.NewStyle().Foreground(p.Success),
		warning: lipgloss.NewStyle().Bold(true).Foreground(p.Warning),
		chart:   lipgloss.NewStyle().Foreground(p.Chart),
		dim:     lipgloss.NewStyle().Foreground(p.Dim),
	}
}

// FormatRunSummary renders the summary panel of a finished run: exit status,
// timings, CPU utilization, peak memory and a sparkline of system CPU usage.
func FormatRunSummary(rec profile.Record) string {
	st := newSummaryStyles(ui.GetCurrentPalette())
	res := rec.Result
	sum := rec.Series.Summarize()

	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, st.label.Render(label), st.value.Render(value))
	}

	status := st.success.Render("✓ exit status 0")
	if !res.Succeeded() {
		status = st.warning.Render(fmt.Sprintf("⚠ command exited with status %d", res.ExitCode))
	}

	rows := []string{
		st.title.Render(joinArgs(rec.Command)),
		status,
		"",
		row("Elapsed", format.FormatExecutionDuration(res.Elapsed)),
		row("User", format.FormatSeconds(res.Rusage.UserTime)),
		row("System", format.FormatSeconds(res.Rusage.SystemTime)),
		row("CPU", format.FormatPercent(res.CPUPercent())),
		row("Max RSS", format.FormatKilobytes(res.Rusage.MaxRSS)),
		"",
		row("Samples", samplesLabel(rec.Series)),
	}
	if sum.Count > 0 {
		rows = append(rows,
			row("Avg CPU", format.FormatPercent(sum.AvgCPU)),
			row("Peak CPU", format.FormatPercent(sum.PeakCPU)),
			row("Peak mem", format.FormatBytes(sum.PeakMemory)),
		)
		if sum.HasLoadAvgs {
			rows = append(rows, row("Peak load1", fmt.Sprintf("%.2f", sum.PeakLoad1)))
		}
		rows = append(rows, row("CPU usage", st.chart.Render(ui.RenderSparkline(rec.Series.CPUUsage(), SparklineWidth))))
	}
	return st.box.Render(strings.Join(rows, "\n"))
}

func samplesLabel(s profile.Series) string {
	label := fmt.Sprintf("%d every %s", s.Len(), format.FormatExecutionDuration(s.Interval))
	var extra []string
	if s.Skipped > 0 {
		extra = append(extra, fmt.Sprintf("%d skipped", s.Skipped))
	}
	if s.Dropped > 0 {
		extra = append(extra, fmt.Sprintf("%d dropped", s.Dropped))
	}
	if len(extra) > 0 {
		label += " (" + strings.Join(extra, ", ") + ")"
	}
	return label
}
