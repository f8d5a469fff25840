// Package orchestration drives a profiling run: it starts the background
// sampler, runs the command in the foreground, always stops and joins the
// sampler, and assembles the resulting record. It also sweeps a command over
// several jobs levels with idle pauses between runs. Presentation is kept out
// of this package behind the Observer interface.
package orchestration
