//go:build darwin

package runner

// maxRSSKilobytes converts ru_maxrss to KiB. Darwin reports it in bytes.
func maxRSSKilobytes(v int64) int64 { return v / 1024 }
