// Package config handles YAML configuration parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hulu/statsd-aggregator/internal/simulator"
)

// ErrNoSteps is returned by Validate for a scenario without steps.
var ErrNoSteps = errors.New("scenario has no steps")

const (
	DefaultHost           = "127.0.0.1"
	DefaultDataPort       = 9000
	DefaultDownstreamPort = 9100
	DefaultFlushInterval  = 2 * time.Second
	DefaultLogLevel       = 4
	DefaultStartupDelay   = time.Second
	DefaultTimeout        = 20 * time.Second
	DefaultConfigPath     = "/tmp/statsd-aggregator.conf"
)

// Config is the root configuration structure.
type Config struct {
	Daemon   DaemonConfig   `yaml:"daemon"`
	Scenario ScenarioConfig `yaml:"scenario"`
	Output   OutputConfig   `yaml:"output,omitempty"`
}

// DaemonConfig describes how to launch the daemon under test and the
// settings written into its configuration file.
type DaemonConfig struct {
	Executable     string           `yaml:"executable"`
	Args           []string         `yaml:"args,omitempty"`
	ConfigPath     string           `yaml:"config_path"`
	Host           string           `yaml:"host"`
	DataPort       int              `yaml:"data_port"`
	DownstreamPort int              `yaml:"downstream_port"`
	FlushInterval  time.Duration    `yaml:"flush_interval"`
	LogLevel       int              `yaml:"log_level"`
	StartupDelay   time.Duration    `yaml:"startup_delay"`
	Limits         simulator.Limits `yaml:"limits,omitempty"`
}

// ScenarioConfig declares one scenario.
type ScenarioConfig struct {
	Name     string            `yaml:"name"`
	Timeout  time.Duration     `yaml:"timeout"`
	SendRate float64           `yaml:"send_rate"` // datagrams per second, 0 = unpaced
	Vars     map[string]string `yaml:"vars,omitempty"`
	// Data names CSV or JSON files that steps can iterate with foreach.
	Data  map[string]string `yaml:"data,omitempty"`
	Steps []StepConfig      `yaml:"steps"`
}

// StepConfig is one scenario step. Exactly one kind field is set. ForEach
// repeats the step once per row of the named data file.
type StepConfig struct {
	Send    *string `yaml:"send,omitempty"`
	ForEach string  `yaml:"foreach,omitempty"`
}

// OutputConfig selects how the verdict is reported.
type OutputConfig struct {
	Format   string        `yaml:"format"` // text or json
	Progress time.Duration `yaml:"progress,omitempty"`
}

// LoadConfig reads and parses a YAML configuration file and applies
// defaults for every unset field.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.ApplyDefaults()

	// Data files are relative to the config file.
	dir := filepath.Dir(path)
	for name, file := range cfg.Scenario.Data {
		if !filepath.IsAbs(file) {
			cfg.Scenario.Data[name] = filepath.Join(dir, file)
		}
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied and no steps.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	d := &c.Daemon
	if d.ConfigPath == "" {
		d.ConfigPath = DefaultConfigPath
	}
	if d.Host == "" {
		d.Host = DefaultHost
	}
	if d.DataPort == 0 {
		d.DataPort = DefaultDataPort
	}
	if d.DownstreamPort == 0 {
		d.DownstreamPort = DefaultDownstreamPort
	}
	if d.FlushInterval == 0 {
		d.FlushInterval = DefaultFlushInterval
	}
	if d.LogLevel == 0 {
		d.LogLevel = DefaultLogLevel
	}
	if d.StartupDelay == 0 {
		d.StartupDelay = DefaultStartupDelay
	}
	if d.Limits == (simulator.Limits{}) {
		d.Limits = simulator.DefaultLimits
	}

	if c.Scenario.Timeout == 0 {
		c.Scenario.Timeout = DefaultTimeout
	}
	if c.Output.Format == "" {
		c.Output.Format = "text"
	}
}

// Validate checks the configuration for values no run could succeed with.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	d := c.Daemon
	if d.DataPort <= 0 || d.DataPort > 65535 {
		errs = append(errs, fmt.Errorf("daemon.data_port %d out of range", d.DataPort))
	}
	if d.DownstreamPort < 0 || d.DownstreamPort > 65535 {
		errs = append(errs, fmt.Errorf("daemon.downstream_port %d out of range", d.DownstreamPort))
	}
	if d.FlushInterval < 0 {
		errs = append(errs, fmt.Errorf("daemon.flush_interval must not be negative"))
	}
	if d.StartupDelay < 0 {
		errs = append(errs, fmt.Errorf("daemon.startup_delay must not be negative"))
	}
	if d.Limits.Min < 0 || d.Limits.Max < d.Limits.Min {
		errs = append(errs, fmt.Errorf("daemon.limits: invalid bounds %d..%d", d.Limits.Min, d.Limits.Max))
	}

	s := c.Scenario
	if s.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("scenario.timeout must be positive"))
	}
	if s.SendRate < 0 {
		errs = append(errs, fmt.Errorf("scenario.send_rate must not be negative"))
	}
	if len(s.Steps) == 0 {
		errs = append(errs, ErrNoSteps)
	}
	for i, st := range s.Steps {
		if st.ForEach == "" {
			continue
		}
		if _, ok := s.Data[st.ForEach]; !ok {
			errs = append(errs, fmt.Errorf("scenario.steps[%d]: foreach names unknown data %q", i, st.ForEach))
		}
	}

	switch c.Output.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("output.format %q: must be text or json", c.Output.Format))
	}

	return errors.Join(errs...)
}
