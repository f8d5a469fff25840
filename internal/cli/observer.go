package cli

import (
	"io"
	"time"

	"github.com/mpsm/bsprof/internal/orchestration"
	"github.com/mpsm/bsprof/internal/profile"
	"github.com/mpsm/bsprof/internal/runner"
)

// Observer presents run progress on the terminal. Run headers and summaries
// go to out; the pause spinner goes to status, usually stderr.
type Observer struct {
	out   io.Writer
	pause *PauseIndicator
}

// NewObserver creates an Observer.
func NewObserver(out, status io.Writer) *Observer {
	return &Observer{out: out, pause: NewPauseIndicator(status)}
}

// RunStarted prints the run header.
func (o *Observer) RunStarted(jobs int, cmd runner.Command) {
	DisplayRunHeader(o.out, jobs, cmd.String())
}

// CommandExited prints the run summary.
func (o *Observer) CommandExited(rec profile.Record) {
	DisplayRunSummary(o.out, rec)
}

// PauseStarted shows the pause spinner.
func (o *Observer) PauseStarted(phase orchestration.Phase, d time.Duration) {
	o.pause.Start(phase.String(), d)
}

// PauseFinished hides the pause spinner.
func (o *Observer) PauseFinished(orchestration.Phase) {
	o.pause.Stop()
}

var _ orchestration.Observer = (*Observer)(nil)
