package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/mpsm/bsprof/internal/format"
)

// PauseRefreshRate is the spinner animation interval.
const PauseRefreshRate = 100 * time.Millisecond

// Spinner is an interface that abstracts the behavior of a terminal spinner.
// It defines the essential controls for a spinner: starting, stopping, and
// updating its status message.
type Spinner interface {
	// Start begins the spinner animation.
	Start()
	// Stop halts the spinner animation.
	Stop()
	// UpdateSuffix sets the text that is displayed after the spinner.
	UpdateSuffix(suffix string)
}

// realSpinner adapts spinner.Spinner to the Spinner interface.
type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() { rs.s.Start() }

func (rs *realSpinner) Stop() { rs.s.Stop() }

func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(out io.Writer) Spinner {
	s := spinner.New(spinner.CharSets[11], PauseRefreshRate, spinner.WithWriter(out), spinner.WithHiddenCursor(true))
	return &realSpinner{s}
}

// PauseIndicator shows a spinner with a countdown while bsprof idles between
// runs. The spinner writes to its own stream so the report output stays clean.
type PauseIndicator struct {
	out io.Writer
	now func() time.Time

	mu      sync.Mutex
	spin    Spinner
	stop    chan struct{}
	stopped chan struct{}
}

// NewPauseIndicator creates an indicator drawing to out.
func NewPauseIndicator(out io.Writer) *PauseIndicator {
	return &PauseIndicator{out: out, now: time.Now}
}

// Start shows the spinner labelled with the phase and a countdown of d.
// A running indicator is stopped first.
func (p *PauseIndicator) Start(label string, d time.Duration) {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.spin = newSpinner(p.out)
	p.stop = make(chan struct{})
	p.stopped = make(chan struct{})

	deadline := p.now().Add(d)
	p.spin.UpdateSuffix(pauseSuffix(label, d))
	p.spin.Start()

	go func(spin Spinner, stop, stopped chan struct{}) {
		defer close(stopped)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				spin.UpdateSuffix(pauseSuffix(label, deadline.Sub(p.now())))
			}
		}
	}(p.spin, p.stop, p.stopped)
}

// Stop hides the spinner. It is a no-op when nothing is shown.
func (p *PauseIndicator) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spin == nil {
		return
	}
	close(p.stop)
	<-p.stopped
	p.spin.Stop()
	p.spin = nil
}

// pauseSuffix returns the text shown next to the spinner.
func pauseSuffix(label string, remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf(" %s: %s remaining", label, format.FormatSeconds(remaining.Round(time.Second)))
}
