// Package collector gathers the results of a suite of scenario runs and
// summarizes them.
package collector

import (
	"sort"
	"sync"
	"time"

	"github.com/hulu/statsd-aggregator/internal/report"
)

// Collector records run results in completion order. Safe for concurrent
// use.
type Collector struct {
	mu      sync.Mutex
	results []report.Result
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Add(r report.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// Results returns a copy of the recorded results.
func (c *Collector) Results() []report.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]report.Result, len(c.results))
	copy(out, c.results)
	return out
}

// Compute summarizes everything recorded so far.
func (c *Collector) Compute() *Summary {
	return ComputeSummary(c.Results())
}

// Failure names one failed run.
type Failure struct {
	Scenario string        `json:"scenario"`
	RunID    string        `json:"runId"`
	Reason   report.Reason `json:"reason"`
	Pending  int           `json:"pending"`
}

// DurationMetrics describes how long runs took.
type DurationMetrics struct {
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
	Total time.Duration
}

type Summary struct {
	Runs     int
	Passed   int
	Failed   int
	Duration DurationMetrics
	Failures []Failure
}

// AllPassed reports whether every run passed. An empty suite passes.
func (s *Summary) AllPassed() bool {
	return s.Failed == 0
}

// ComputeSummary computes a summary from results. Pure function, no side
// effects.
func ComputeSummary(results []report.Result) *Summary {
	s := &Summary{Runs: len(results)}
	if len(results) == 0 {
		return s
	}

	durations := make([]time.Duration, 0, len(results))
	for _, r := range results {
		durations = append(durations, r.Duration)
		if r.Passed() {
			s.Passed++
			continue
		}
		s.Failed++
		s.Failures = append(s.Failures, Failure{
			Scenario: r.Scenario,
			RunID:    r.RunID,
			Reason:   r.Reason,
			Pending:  len(r.Pending),
		})
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	for _, d := range durations {
		s.Duration.Total += d
	}
	s.Duration.Min = durations[0]
	s.Duration.Max = durations[len(durations)-1]
	s.Duration.Avg = s.Duration.Total / time.Duration(len(durations))
	return s
}
