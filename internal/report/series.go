package report

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/mpsm/bsprof/internal/profile"
)

// WriteSeriesText writes the report in the series text format: the title on
// the first line, then for each run a "#<jobs>" line followed by
// "@<elapsed>,<system>,<user>,<cpu>%" where times are in seconds and cpu is
// (user+system)/elapsed as an integer percentage.
func WriteSeriesText(w io.Writer, title string, rep *profile.Report) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, title)
	for _, rec := range rep.Results {
		res := rec.Result
		fmt.Fprintf(bw, "#%d\n", rec.Jobs)
		fmt.Fprintf(bw, "@%.2f,%.2f,%.2f,%d%%\n",
			res.ElapsedSeconds(), res.SystemSeconds(), res.UserSeconds(),
			int(math.Round(res.CPUPercent())))
	}
	return bw.Flush()
}
