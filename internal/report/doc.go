// Package report serializes profiling records.
//
// Three sinks are provided: the JSON document consumed by the plotting tools
// (one record, or a full report with its profile settings and one result per
// run), the line-oriented series text format used to plot build time against
// the number of jobs, and an SQLite history that accumulates runs across
// invocations.
package report
