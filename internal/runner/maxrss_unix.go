//go:build unix && !darwin

package runner

// maxRSSKilobytes converts ru_maxrss to KiB, the unit Linux and the BSDs
// already report it in.
func maxRSSKilobytes(v int64) int64 { return v }
