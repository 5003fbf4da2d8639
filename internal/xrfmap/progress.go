package xrfmap

import (
	"fmt"
	"io"
	"os"
)

// ProgressReporter receives completion updates while a map is processed.
// Report is called with completed == total when every block succeeded;
// Finish is called regardless of outcome and must not imply completion.
type ProgressReporter interface {
	Start(total int)
	Report(completed, total int)
	Finish()
}

// TerminalProgress prints percent progress to a terminal, rewriting the
// current line on each update.
type TerminalProgress struct {
	Title string
	Out   io.Writer

	lastPercent int
}

// NewTerminalProgress returns a reporter writing to stderr.
func NewTerminalProgress(title string) *TerminalProgress {
	return &TerminalProgress{Title: title, Out: os.Stderr, lastPercent: -1}
}

func (p *TerminalProgress) Start(total int) {
	p.lastPercent = -1
	p.print(0)
}

func (p *TerminalProgress) Report(completed, total int) {
	percent := 100
	if total > 0 {
		percent = completed * 100 / total
	}
	if percent != p.lastPercent {
		p.print(percent)
	}
}

// Finish terminates the progress line at the last reported percent. An
// operation that failed mid-way keeps showing how far it actually got.
func (p *TerminalProgress) Finish() {
	fmt.Fprintln(p.out())
}

func (p *TerminalProgress) print(percent int) {
	p.lastPercent = percent
	fmt.Fprintf(p.out(), "\r%s %d%%", p.Title, percent)
}

func (p *TerminalProgress) out() io.Writer {
	if p.Out == nil {
		return os.Stderr
	}
	return p.Out
}
