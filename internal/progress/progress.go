// Package progress provides terminal progress reporting for export runs:
// a spinner for the metadata and query phases and a bar over attachment tasks.
package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter reports progress of a single phase whose length is unknown.
type Reporter interface {
	Start(description string)
	Finish()
	Error(err error)
}

// NewPhaseReporter returns a spinner on a terminal and a no-op reporter otherwise.
func NewPhaseReporter() Reporter {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return NewNoOpProgress()
	}
	return NewCLIProgress()
}

// CLIProgress implements Reporter with an indeterminate spinner on stderr.
type CLIProgress struct {
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a new CLI progress reporter.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{}
}

// Start shows a spinner with the given description.
func (p *CLIProgress) Start(description string) {
	enableWindowsANSI(os.Stderr)
	p.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Finish stops and clears the spinner.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// Error stops the spinner and prints err.
func (p *CLIProgress) Error(err error) {
	p.Finish()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

// NoOpProgress is a progress reporter that does nothing.
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

// Start does nothing.
func (p *NoOpProgress) Start(description string) {}

// Finish does nothing.
func (p *NoOpProgress) Finish() {}

// Error does nothing.
func (p *NoOpProgress) Error(err error) {}
