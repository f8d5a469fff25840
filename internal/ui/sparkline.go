package ui

// sparklineChars maps values 0..7 to Unicode block elements ▁▂▃▄▅▆▇█.
var sparklineChars = [8]rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderSparkline converts percentages (0..100) into a sparkline string using
// Unicode blocks. When there are more values than width, consecutive values
// are grouped and each group is drawn at its peak so short spikes stay
// visible. A width of zero or less draws one block per value.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}
	if width > 0 && len(values) > width {
		values = downsampleMax(values, width)
	}
	runes := make([]rune, len(values))
	for i, v := range values {
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		idx := int(v / 100.0 * 7.0)
		if idx > 7 {
			idx = 7
		}
		runes[i] = sparklineChars[idx]
	}
	return string(runes)
}

// downsampleMax splits values into width contiguous buckets and keeps the
// maximum of each.
func downsampleMax(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	for b := range width {
		lo := b * n / width
		hi := (b + 1) * n / width
		peak := values[lo]
		for _, v := range values[lo+1 : hi] {
			peak = max(peak, v)
		}
		out[b] = peak
	}
	return out
}
