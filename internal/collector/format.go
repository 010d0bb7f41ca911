package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// FormatText writes the suite summary in human-readable format.
func FormatText(w io.Writer, s *Summary) {
	if s.Runs == 0 {
		fmt.Fprintln(w, "No scenarios run")
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "statsd-oracle - Suite Summary")
	fmt.Fprintln(w, "=============================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Scenarios: %d\n", s.Runs)
	fmt.Fprintf(w, "Passed:    %d\n", s.Passed)
	fmt.Fprintf(w, "Failed:    %d\n", s.Failed)
	fmt.Fprintf(w, "Duration:  %v total, %v min, %v avg, %v max\n",
		s.Duration.Total.Round(time.Millisecond),
		s.Duration.Min.Round(time.Millisecond),
		s.Duration.Avg.Round(time.Millisecond),
		s.Duration.Max.Round(time.Millisecond))

	if len(s.Failures) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Failures:")
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  ✗ %-20s %s (%d pending)\n", f.Scenario, f.Reason, f.Pending)
		}
	}
}

// FormatJSON writes the suite summary in JSON format.
func FormatJSON(w io.Writer, s *Summary) {
	failures := s.Failures
	if failures == nil {
		failures = []Failure{}
	}
	output := struct {
		Runs      int               `json:"runs"`
		Passed    int               `json:"passed"`
		Failed    int               `json:"failed"`
		Durations map[string]string `json:"durations"`
		Failures  []Failure         `json:"failures"`
	}{
		Runs:   s.Runs,
		Passed: s.Passed,
		Failed: s.Failed,
		Durations: map[string]string{
			"total": s.Duration.Total.Round(time.Millisecond).String(),
			"min":   s.Duration.Min.Round(time.Millisecond).String(),
			"avg":   s.Duration.Avg.Round(time.Millisecond).String(),
			"max":   s.Duration.Max.Round(time.Millisecond).String(),
		},
		Failures: failures,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output) // stdout errors are unrecoverable
}
