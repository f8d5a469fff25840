// Package ui provides theme and color support for the terminal output: ANSI
// color schemes for plain text, matching lipgloss palettes for styled panels,
// and a Unicode sparkline renderer for sample series.
package ui
