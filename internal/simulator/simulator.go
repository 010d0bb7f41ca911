// Package simulator reproduces the aggregation performed by the statsd
// aggregator daemon: slot assignment, type tracking, buffer packing, counter
// aggregation and flush triggering.
//
// A Simulator is not safe for concurrent use. It is driven from a single
// goroutine, and every result is pushed synchronously into its Sink.
package simulator

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hulu/statsd-aggregator/internal/numeric"
)

// Kind is the type a slot is locked to by its first accepted token.
type Kind int

const (
	KindUnknown Kind = iota
	KindCounter
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// Limits bound accepted record lengths and the size of one flush.
type Limits struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// DefaultLimits are the daemon's record length bounds. Max is also the
// capacity of one outgoing datagram.
var DefaultLimits = Limits{Min: 6, Max: 1450}

// Slot aggregates the values seen for one metric name since the last flush.
type Slot struct {
	Name    string
	Kind    Kind
	Counter float64
	Values  []string
}

// Stats is a snapshot of the simulator's accounting.
type Stats struct {
	Slots        int
	ActiveBuffer int
}

type Simulator struct {
	sink   Sink
	limits Limits
	logger *zap.Logger

	slots  []*Slot
	byName map[string]*Slot
	active int
}

// New creates a simulator reporting into sink. A zero Limits selects
// DefaultLimits; a nil logger disables tracing.
func New(sink Sink, limits Limits, logger *zap.Logger) *Simulator {
	if limits == (Limits{}) {
		limits = DefaultLimits
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		sink:   sink,
		limits: limits,
		logger: logger,
		byName: make(map[string]*Slot),
	}
}

// Limits returns the bounds the simulator was created with.
func (s *Simulator) Limits() Limits {
	return s.limits
}

// Stats returns the current slot count and ActiveBuffer.
func (s *Simulator) Stats() Stats {
	return Stats{Slots: len(s.slots), ActiveBuffer: s.active}
}

// Ingest processes a payload exactly as it is sent to the daemon: one
// record per line.
func (s *Simulator) Ingest(payload string) {
	for _, line := range splitFields(payload, "\n") {
		s.ingestLine(line)
	}
}

func (s *Simulator) ingestLine(line string) {
	if n := len(line); n < s.limits.Min || n > s.limits.Max {
		s.sink.Diagnostic(Diagnostic{Kind: InvalidLength, Line: line, Length: n})
		return
	}

	parts := splitFields(line, ":")
	if len(parts) < 2 {
		s.sink.Diagnostic(Diagnostic{Kind: MissingValue, Line: line})
		return
	}

	name := parts[0]
	s.insertValues(s.findSlot(name), name, parts[1:])
}

func (s *Simulator) findSlot(name string) *Slot {
	if slot, ok := s.byName[name]; ok {
		return slot
	}
	if s.active+len(name)+1 > s.limits.Max {
		s.logger.Debug("forced flush before new slot",
			zap.String("name", name), zap.Int("active_buffer", s.active))
		s.Flush()
	}
	return s.openSlot(name, KindUnknown)
}

func (s *Simulator) openSlot(name string, kind Kind) *Slot {
	slot := &Slot{Name: name, Kind: kind}
	s.slots = append(s.slots, slot)
	s.byName[name] = slot
	s.active += len(name) + 1
	return slot
}

func (s *Simulator) insertValues(slot *Slot, name string, tokens []string) {
	for _, token := range tokens {
		parts := splitFields(token, "|")
		if len(parts) < 2 {
			s.sink.Diagnostic(Diagnostic{Kind: MalformedToken, Token: token})
			continue
		}

		kind := KindOther
		if parts[1] == "c" {
			kind = KindCounter
		}
		if slot.Kind == KindUnknown {
			slot.Kind = kind
		} else if slot.Kind != kind {
			s.sink.Diagnostic(Diagnostic{Kind: TypeMismatch, Name: name})
			continue
		}

		if s.active+len(token)+1 > s.limits.Max {
			s.logger.Debug("forced flush before token",
				zap.String("name", name), zap.String("token", token), zap.Int("active_buffer", s.active))
			s.Flush()
			slot = s.openSlot(name, kind)
		}

		if kind == KindCounter {
			s.addCounter(slot, token, parts)
			continue
		}
		slot.Values = append(slot.Values, token)
		s.active += len(token) + 1
	}
}

func (s *Simulator) addCounter(slot *Slot, token string, parts []string) {
	rate := 1.0
	if len(parts) > 2 && strings.HasPrefix(parts[2], "@") {
		if r, ok := numeric.Parse(parts[2][1:]); ok && r != 0 {
			rate = r
		}
	}

	value, ok := numeric.Parse(parts[0])
	if !ok {
		s.sink.Diagnostic(Diagnostic{Kind: NonNumericCounterValue, Token: token})
		return
	}

	if len(slot.Values) > 0 {
		s.active -= len(slot.Values[0]) + 1
	}
	slot.Counter += value / rate
	formatted := FormatCounter(slot.Counter)
	slot.Values = append(slot.Values[:0], formatted)
	s.active += len(formatted) + 1
}

// Flush emits every slot holding data as one batch, then clears all slots.
// Without data nothing is emitted, but the state is still reset.
func (s *Simulator) Flush() {
	var batch Batch
	for _, slot := range s.slots {
		if len(slot.Values) == 0 {
			continue
		}
		values := make([]string, len(slot.Values))
		copy(values, slot.Values)
		batch = append(batch, Entry{Name: slot.Name, Values: values})
	}
	if len(batch) > 0 {
		s.sink.Flush(batch)
	}

	s.slots = nil
	s.byName = make(map[string]*Slot)
	s.active = 0
}

// FormatCounter renders a counter total with 15 significant digits and the
// counter type suffix.
func FormatCounter(total float64) string {
	return strconv.FormatFloat(total, 'g', 15, 64) + "|c"
}

// splitFields splits s around sep and drops trailing empty fields, so a
// terminating separator never yields an extra empty record or token.
func splitFields(s, sep string) []string {
	fields := strings.Split(s, sep)
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}
