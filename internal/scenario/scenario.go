// Package scenario describes what a test run sends to the daemon.
package scenario

import (
	"errors"
	"fmt"
	"time"

	"github.com/hulu/statsd-aggregator/internal/config"
	"github.com/hulu/statsd-aggregator/internal/core"
	"github.com/hulu/statsd-aggregator/internal/data"
	"github.com/hulu/statsd-aggregator/internal/template"
)

// ErrUnknownStep is returned for a declared step with no recognised kind.
var ErrUnknownStep = errors.New("unknown step kind")

// StepKind enumerates the actions a scenario can take.
type StepKind int

const (
	// StepSend transmits a payload to the daemon's data port.
	StepSend StepKind = iota
)

func (k StepKind) String() string {
	switch k {
	case StepSend:
		return "send"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// Step is one scenario action.
type Step struct {
	Kind    StepKind
	Payload string
}

// Scenario is an ordered list of steps plus the run's deadline.
type Scenario struct {
	Name     string
	Timeout  time.Duration
	SendRate float64
	Steps    []Step
}

// New starts a scenario with the default timeout.
func New(name string) *Scenario {
	return &Scenario{Name: name, Timeout: config.DefaultTimeout}
}

func (s *Scenario) WithTimeout(d time.Duration) *Scenario {
	s.Timeout = d
	return s
}

// WithSendRate paces sends to perSecond datagrams per second.
func (s *Scenario) WithSendRate(perSecond float64) *Scenario {
	s.SendRate = perSecond
	return s
}

// Send appends a step that transmits payload verbatim.
func (s *Scenario) Send(payload string) *Scenario {
	s.Steps = append(s.Steps, Step{Kind: StepSend, Payload: payload})
	return s
}

// Payloads returns the payloads of all send steps in order.
func (s *Scenario) Payloads() []string {
	var out []string
	for _, st := range s.Steps {
		if st.Kind == StepSend {
			out = append(out, st.Payload)
		}
	}
	return out
}

// FromConfig builds a scenario from its YAML declaration, expanding payload
// templates against the declared vars. A step with foreach is expanded once
// per row of its data file, with the row's fields bound as
// ${data.<name>.<field>}.
func FromConfig(sc config.ScenarioConfig) (*Scenario, error) {
	if len(sc.Steps) == 0 {
		return nil, config.ErrNoSteps
	}

	tables := make(map[string]*data.Table, len(sc.Data))
	for name, path := range sc.Data {
		t, err := data.LoadFile(name, path, "")
		if err != nil {
			return nil, fmt.Errorf("data %s: %w", name, err)
		}
		tables[name] = t
	}

	s := New(sc.Name).WithSendRate(sc.SendRate)
	if sc.Timeout > 0 {
		s.WithTimeout(sc.Timeout)
	}

	var errs []error
	for i, st := range sc.Steps {
		if st.Send == nil {
			return nil, fmt.Errorf("step %d: %w", i+1, ErrUnknownStep)
		}

		if st.ForEach == "" {
			payload, err := template.Substitute(*st.Send, core.VariablesFrom(sc.Vars))
			if err != nil {
				errs = append(errs, fmt.Errorf("step %d: %w", i+1, err))
				continue
			}
			s.Send(payload)
			continue
		}

		t, ok := tables[st.ForEach]
		if !ok {
			return nil, fmt.Errorf("step %d: foreach names unknown data %q", i+1, st.ForEach)
		}
		for row := 0; row < t.Len(); row++ {
			vars := core.VariablesFrom(sc.Vars)
			t.Bind(row, vars)
			payload, err := template.Substitute(*st.Send, vars)
			if err != nil {
				errs = append(errs, fmt.Errorf("step %d row %d: %w", i+1, row+1, err))
				break
			}
			s.Send(payload)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("expanding payloads: %w", errors.Join(errs...))
	}
	return s, nil
}
