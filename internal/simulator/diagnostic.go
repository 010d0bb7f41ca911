package simulator

import (
	"fmt"
	"strings"
)

// DiagnosticKind classifies a malformed-input condition detected while ingesting.
type DiagnosticKind int

const (
	// InvalidLength: record shorter or longer than the configured Limits.
	InvalidLength DiagnosticKind = iota
	// MissingValue: record without any ':'-separated value token.
	MissingValue
	// MalformedToken: value token without a '|'-delimited type.
	MalformedToken
	// TypeMismatch: token kind conflicts with the slot's established kind.
	TypeMismatch
	// NonNumericCounterValue: counter token whose value is not numeric.
	NonNumericCounterValue
)

var diagnosticKindNames = map[DiagnosticKind]string{
	InvalidLength:          "invalid_length",
	MissingValue:           "missing_value",
	MalformedToken:         "malformed_token",
	TypeMismatch:           "type_mismatch",
	NonNumericCounterValue: "non_numeric_counter_value",
}

func (k DiagnosticKind) String() string {
	if name, ok := diagnosticKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("DiagnosticKind(%d)", int(k))
}

// Diagnostic is one malformed-input condition. Only the fields relevant to
// Kind are set.
type Diagnostic struct {
	Kind   DiagnosticKind
	Line   string
	Length int
	Token  string
	Name   string
}

// Message renders the diagnostic the way the daemon prints it at the end of
// its log line.
func (d Diagnostic) Message() string {
	switch d.Kind {
	case InvalidLength:
		return fmt.Sprintf("invalid length %d of metric %s", d.Length, d.Line)
	case MissingValue:
		return "invalid metric " + d.Line
	case MalformedToken:
		return `invalid metric data "` + d.Token + `"`
	case TypeMismatch:
		return `got improper metric type for "` + d.Name + `"`
	case NonNumericCounterValue:
		return `invalid value in counter data "` + d.Token + `"`
	default:
		return d.Kind.String()
	}
}

// Entry is one slot as it appears in a flush: a name and its values.
type Entry struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Line renders the entry in the flush output protocol: name:v1[:v2...].
func (e Entry) Line() string {
	return e.Name + ":" + strings.Join(e.Values, ":")
}

// Batch is the content of one flush, in slot creation order.
type Batch []Entry

// Lines returns the rendered entries. Order follows the batch.
func (b Batch) Lines() []string {
	lines := make([]string, len(b))
	for i, e := range b {
		lines[i] = e.Line()
	}
	return lines
}

// Size is the number of bytes the batch occupies on the wire, one newline
// per entry.
func (b Batch) Size() int {
	n := 0
	for _, e := range b {
		n += len(e.Line()) + 1
	}
	return n
}

// Payload renders the batch as a datagram body.
func (b Batch) Payload() []byte {
	var sb strings.Builder
	for _, e := range b {
		sb.WriteString(e.Line())
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

// Sink receives everything the simulator emits.
type Sink interface {
	Diagnostic(Diagnostic)
	Flush(Batch)
}
