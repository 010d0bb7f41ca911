// Package progress renders a one-line status while a run waits for the
// daemon's output.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Status is a snapshot of a running scenario.
type Status struct {
	Elapsed  time.Duration
	Timeout  time.Duration
	Sent     int
	Steps    int
	Pending  int
	Arrivals int
}

type Progress struct {
	quiet  bool
	output io.Writer
	dirty  bool
	mu     sync.Mutex
}

func NewProgress(quiet bool) *Progress {
	return &Progress{
		quiet:  quiet,
		output: os.Stderr,
	}
}

func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

// Report overwrites the status line with s.
func (p *Progress) Report(s Status) {
	if p.quiet {
		return
	}
	elapsed := s.Elapsed.Round(time.Second)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	p.mu.Lock()
	fmt.Fprintf(p.output, "\r\033[K[%02d:%02d/%v] Sent: %d/%d | Pending: %d | Arrivals: %d",
		mins, secs, s.Timeout, s.Sent, s.Steps, s.Pending, s.Arrivals)
	p.dirty = true
	p.mu.Unlock()
}

// Clear erases the status line if one was drawn.
func (p *Progress) Clear() {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty {
		fmt.Fprintf(p.output, "\r\033[K")
		p.dirty = false
	}
}

func (p *Progress) Print(message string) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\r\033[K%s\n", message)
	p.dirty = false
	p.mu.Unlock()
}

func (p *Progress) Printf(format string, args ...interface{}) {
	p.Print(fmt.Sprintf(format, args...))
}
