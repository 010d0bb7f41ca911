// Package report renders the verdict of a scenario run and the predictions
// of a dry run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Verdict string

const (
	Passed Verdict = "passed"
	Failed Verdict = "failed"
)

// Reason explains a Failed verdict.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonTimeout        Reason = "timeout"
	ReasonDaemonExited   Reason = "daemon exited"
	ReasonUnknownChannel Reason = "unknown channel"
	ReasonInterrupted    Reason = "interrupted"
)

// Expectation is a predicted output as it appears in a report.
type Expectation struct {
	ID      uint64 `json:"id"`
	Channel string `json:"channel"`
	Payload string `json:"payload"`
}

// Result is the outcome of one scenario run.
type Result struct {
	RunID              string        `json:"runId"`
	Scenario           string        `json:"scenario"`
	Verdict            Verdict       `json:"verdict"`
	Reason             Reason        `json:"reason,omitempty"`
	Detail             string        `json:"detail,omitempty"`
	Duration           time.Duration `json:"-"`
	Steps              int           `json:"steps"`
	Expected           int           `json:"expected"`
	Arrivals           int           `json:"arrivals"`
	Pending            []Expectation `json:"pending,omitempty"`
	PendingDiagnostics string        `json:"pendingDiagnostics,omitempty"`
}

// NewRunID returns a unique identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

func (r Result) Passed() bool { return r.Verdict == Passed }

// FormatText writes the result in human-readable format.
func FormatText(w io.Writer, r Result) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "statsd-oracle - Scenario Results")
	fmt.Fprintln(w, "================================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Scenario:  %s\n", r.Scenario)
	fmt.Fprintf(w, "Run ID:    %s\n", r.RunID)
	verdict := strings.ToUpper(string(r.Verdict))
	if r.Reason != ReasonNone {
		verdict += " (" + string(r.Reason) + ")"
	}
	fmt.Fprintf(w, "Verdict:   %s\n", verdict)
	if r.Detail != "" {
		fmt.Fprintf(w, "Detail:    %s\n", r.Detail)
	}
	fmt.Fprintf(w, "Duration:  %v\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Steps:     %d\n", r.Steps)
	fmt.Fprintf(w, "Expected:  %d events, %d arrivals\n", r.Expected, r.Arrivals)

	if len(r.Pending) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Pending expectations:")
		writeExpectations(w, r.Pending)
	}

	if r.PendingDiagnostics != "" {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Unmatched diagnostics output:")
		for _, line := range strings.Split(strings.TrimSuffix(r.PendingDiagnostics, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

// FormatJSON writes the result in JSON format.
func FormatJSON(w io.Writer, r Result) {
	output := struct {
		Result
		Duration string `json:"duration"`
	}{
		Result:   r,
		Duration: r.Duration.Round(time.Millisecond).String(),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output) // stdout errors are unrecoverable
}

// FormatPredictionText writes the outputs a scenario is expected to produce.
func FormatPredictionText(w io.Writer, scenario string, expected []Expectation) {
	fmt.Fprintf(w, "Scenario %s: %d expected events\n", scenario, len(expected))
	if len(expected) == 0 {
		return
	}
	fmt.Fprintln(w, "")
	writeExpectations(w, expected)
}

// FormatPredictionJSON writes the expected outputs in JSON format.
func FormatPredictionJSON(w io.Writer, scenario string, expected []Expectation) {
	if expected == nil {
		expected = []Expectation{}
	}
	output := struct {
		Scenario string        `json:"scenario"`
		Expected []Expectation `json:"expected"`
	}{scenario, expected}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output)
}

func writeExpectations(w io.Writer, list []Expectation) {
	for _, e := range list {
		lines := strings.Split(e.Payload, "\n")
		fmt.Fprintf(w, "  #%-4d %-12s %s\n", e.ID, e.Channel, lines[0])
		for _, l := range lines[1:] {
			fmt.Fprintf(w, "  %-5s %-12s %s\n", "", "", l)
		}
	}
}
