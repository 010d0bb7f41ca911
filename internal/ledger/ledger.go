// Package ledger holds the outputs a daemon is predicted to produce and
// reconciles them against what it actually produces on its two output
// channels.
//
// A Ledger is owned by one goroutine. It implements simulator.Sink, so a
// simulator can record its predictions straight into it.
package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hulu/statsd-aggregator/internal/simulator"
)

// ErrUnknownChannel is returned by Notify for an arrival on a channel the
// ledger does not track.
var ErrUnknownChannel = errors.New("unknown channel")

// Channel identifies one of the daemon's output streams.
type Channel int

const (
	// Network is the downstream UDP flush stream.
	Network Channel = iota
	// Diagnostics is the daemon's stdout log.
	Diagnostics
)

func (c Channel) String() string {
	switch c {
	case Network:
		return "network"
	case Diagnostics:
		return "diagnostics"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// Event is one predicted output. Text holds the diagnostic message for
// Diagnostics events and the rendered lines for Network events.
type Event struct {
	ID      uint64
	Channel Channel
	Text    string
	Batch   simulator.Batch
}

// Arrival is a chunk of output observed on a channel.
type Arrival struct {
	Channel Channel
	Data    []byte
}

type Ledger struct {
	logger  *zap.Logger
	nextID  uint64
	pending []Event
	buffer  []byte
}

// New creates an empty ledger. A nil logger disables event tracing.
func New(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{logger: logger}
}

// Expect records an event predicted on channel.
func (l *Ledger) Expect(ch Channel, text string, batch simulator.Batch) Event {
	l.nextID++
	ev := Event{ID: l.nextID, Channel: ch, Text: text, Batch: batch}
	l.pending = append(l.pending, ev)
	l.logger.Debug("expected",
		zap.Uint64("id", ev.ID), zap.Stringer("channel", ch), zap.String("payload", text))
	return ev
}

// Diagnostic implements simulator.Sink.
func (l *Ledger) Diagnostic(d simulator.Diagnostic) {
	l.Expect(Diagnostics, d.Message(), nil)
}

// Flush implements simulator.Sink.
func (l *Ledger) Flush(b simulator.Batch) {
	l.Expect(Network, strings.Join(b.Lines(), "\n"), b)
}

// Notify reconciles an arrival against the pending expectations. A chunk
// that matches nothing is kept (Diagnostics) or ignored (Network); only an
// unknown channel is an error.
func (l *Ledger) Notify(a Arrival) error {
	l.logger.Debug("got",
		zap.Stringer("channel", a.Channel), zap.ByteString("payload", a.Data))

	switch a.Channel {
	case Diagnostics:
		l.buffer = append(l.buffer, a.Data...)
		l.matchDiagnostics()
	case Network:
		l.matchNetwork(a.Data)
	default:
		return fmt.Errorf("notify %s: %w", a.Channel, ErrUnknownChannel)
	}
	return nil
}

// matchDiagnostics consumes complete buffered lines for as long as each one
// ends with the oldest pending diagnostic.
func (l *Ledger) matchDiagnostics() {
	for {
		nl := bytes.IndexByte(l.buffer, '\n')
		if nl < 0 {
			return
		}
		idx := l.firstPending(Diagnostics)
		if idx < 0 {
			return
		}
		line := l.buffer[:nl]
		if !bytes.HasSuffix(line, []byte(l.pending[idx].Text)) {
			return
		}
		l.logger.Debug("matched",
			zap.Uint64("id", l.pending[idx].ID), zap.Stringer("channel", Diagnostics))
		l.buffer = l.buffer[nl+1:]
		l.remove(idx)
	}
}

func (l *Ledger) matchNetwork(data []byte) {
	got := sortedLines(string(data))
	for i, ev := range l.pending {
		if ev.Channel != Network {
			continue
		}
		if equalLines(got, sortedLines(ev.Text)) {
			l.logger.Debug("matched", zap.Uint64("id", ev.ID), zap.Stringer("channel", Network))
			l.remove(i)
			return
		}
	}
}

func (l *Ledger) firstPending(ch Channel) int {
	for i, ev := range l.pending {
		if ev.Channel == ch {
			return i
		}
	}
	return -1
}

func (l *Ledger) remove(i int) {
	l.pending = append(l.pending[:i], l.pending[i+1:]...)
}

// Complete reports whether every expectation has been met and no
// unexplained diagnostic output is buffered.
func (l *Ledger) Complete() bool {
	return len(l.pending) == 0 && len(l.buffer) == 0
}

// Expected returns how many events have been predicted so far.
func (l *Ledger) Expected() int {
	return int(l.nextID)
}

// Pending returns the outstanding expectations, oldest first.
func (l *Ledger) Pending() []Event {
	out := make([]Event, len(l.pending))
	copy(out, l.pending)
	return out
}

// Buffered returns the diagnostic output received but not yet explained.
func (l *Ledger) Buffered() string {
	return string(l.buffer)
}

func sortedLines(s string) []string {
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	sort.Strings(lines)
	return lines
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
