package format

import "fmt"

var byteUnits = []string{"KiB", "MiB", "GiB", "TiB", "PiB"}

// FormatBytes renders a byte count with a binary unit, e.g. "1.5 GiB".
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit && exp < len(byteUnits)-1; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), byteUnits[exp])
}

// FormatKilobytes renders a size given in kilobytes, as getrusage reports
// peak RSS.
func FormatKilobytes(kb int64) string {
	if kb < 0 {
		kb = 0
	}
	return FormatBytes(uint64(kb) * 1024)
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
