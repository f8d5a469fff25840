// # Naming Conventions
//
// Functions in this package follow consistent naming patterns based on their behavior:
//
//   - Display* functions write formatted output to an [io.Writer].
//     They handle presentation logic and colorization.
//     Examples: [DisplaySystemInfo], [DisplayRunSummary], [DisplaySweepTable].
//
//   - Format* functions return a formatted string without performing I/O.
//     They are pure functions suitable for composition.
//     Examples: [FormatRunSummary], [FormatExitStatus].

package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mpsm/bsprof/internal/format"
	"github.com/mpsm/bsprof/internal/profile"
	"github.com/mpsm/bsprof/internal/ui"
)

// DisplaySystemInfo prints the host description shown before profiling.
func DisplaySystemInfo(out io.Writer, info profile.SystemInfo) {
	fmt.Fprintf(out, "%sSystem%s\n", ui.ColorBold(), ui.ColorReset())
	fmt.Fprintf(out, "  OS:     %s%s%s\n", ui.ColorCyan(), info.OS, ui.ColorReset())
	fmt.Fprintf(out, "  CPU:    %s%s%s (%d logical cores)\n", ui.ColorCyan(), info.CPUName, ui.ColorReset(), info.NumCPUs)
	fmt.Fprintf(out, "  Memory: %s%d MB%s\n", ui.ColorCyan(), info.TotalMemory/(1024*1024), ui.ColorReset())
}

// DisplayRunHeader announces a run before it starts.
func DisplayRunHeader(out io.Writer, jobs int, cmdline string) {
	label := "Profiling"
	if jobs > 0 {
		label = fmt.Sprintf("Profiling with %d jobs", jobs)
	}
	fmt.Fprintf(out, "\n%s▶ %s:%s %s\n", ui.ColorBold(), label, ui.ColorReset(), cmdline)
}

// FormatExitStatus describes the command's exit status. A non-zero status is
// rendered as a warning.
func FormatExitStatus(code int) string {
	if code == 0 {
		return fmt.Sprintf("%s✓ exit status 0%s", ui.ColorGreen(), ui.ColorReset())
	}
	return fmt.Sprintf("%s⚠ command exited with status %d%s", ui.ColorYellow(), code, ui.ColorReset())
}

// DisplayRunSummary prints the styled summary of a finished run.
func DisplayRunSummary(out io.Writer, rec profile.Record) {
	fmt.Fprintln(out, FormatRunSummary(rec))
}

// DisplayReportSaved confirms where the report was written.
func DisplayReportSaved(out io.Writer, path string) {
	fmt.Fprintf(out, "\n%s✓ Report saved to: %s%s%s\n", ui.ColorGreen(), ui.ColorCyan(), path, ui.ColorReset())
}

// DisplaySweepTable prints one row per run of a multi-run report.
func DisplaySweepTable(out io.Writer, rep *profile.Report) {
	if len(rep.Results) < 2 {
		return
	}
	fmt.Fprintf(out, "\n--- Sweep Summary ---\n")
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "  %sJobs%s\t%sElapsed%s\t%sUser%s\t%sSystem%s\t%sCPU%s\t%sExit%s\n",
		ui.ColorUnderline(), ui.ColorReset(), ui.ColorUnderline(), ui.ColorReset(),
		ui.ColorUnderline(), ui.ColorReset(), ui.ColorUnderline(), ui.ColorReset(),
		ui.ColorUnderline(), ui.ColorReset(), ui.ColorUnderline(), ui.ColorReset())
	best := fastestRun(rep.Results)
	for i, rec := range rep.Results {
		res := rec.Result
		highlight := ""
		if i == best {
			highlight = fmt.Sprintf(" %s(fastest)%s", ui.ColorGreen(), ui.ColorReset())
		}
		exit := fmt.Sprintf("%d", res.ExitCode)
		if !res.Succeeded() {
			exit = fmt.Sprintf("%s%d%s", ui.ColorYellow(), res.ExitCode, ui.ColorReset())
		}
		fmt.Fprintf(tw, "  %d\t%s%s\t%s\t%s\t%s\t%s\n",
			rec.Jobs,
			format.FormatSeconds(res.Elapsed), highlight,
			format.FormatSeconds(res.Rusage.UserTime),
			format.FormatSeconds(res.Rusage.SystemTime),
			format.FormatPercent(res.CPUPercent()),
			exit)
	}
	tw.Flush()
}

// fastestRun returns the index of the successful run with the shortest
// elapsed time, or -1.
func fastestRun(recs []profile.Record) int {
	best := -1
	for i, rec := range recs {
		if !rec.Result.Succeeded() {
			continue
		}
		if best < 0 || rec.Result.Elapsed < recs[best].Result.Elapsed {
			best = i
		}
	}
	return best
}

func joinArgs(argv []string) string { return strings.Join(argv, " ") }
