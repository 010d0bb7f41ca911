// Package daemon generates the aggregator's configuration file and manages
// the daemon process under test.
package daemon

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults the daemon applies to keys missing from its configuration file.
const (
	DefaultLogLevel            = 0
	DefaultDNSRefreshInterval  = 60 * time.Second
	DefaultHealthCheckInterval = time.Second
)

// Settings is the content of the daemon's key=value configuration file.
type Settings struct {
	LogLevel            int
	DataPort            int
	FlushInterval       time.Duration
	Downstream          string // host:port
	DNSRefreshInterval  time.Duration
	HealthCheckInterval time.Duration
}

// Render produces the configuration file body. Optional intervals are only
// written when set.
func (s Settings) Render() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "log_level=%d\n", s.LogLevel)
	fmt.Fprintf(&b, "data_port=%d\n", s.DataPort)
	fmt.Fprintf(&b, "downstream_flush_interval=%s\n", seconds(s.FlushInterval))
	if s.DNSRefreshInterval > 0 {
		fmt.Fprintf(&b, "dns_refresh_interval=%d\n", int(s.DNSRefreshInterval/time.Second))
	}
	if s.HealthCheckInterval > 0 {
		fmt.Fprintf(&b, "downstream_health_check_interval=%s\n", seconds(s.HealthCheckInterval))
	}
	fmt.Fprintf(&b, "downstream=%s\n", s.Downstream)
	return b.Bytes()
}

// WriteConfig renders s to path, replacing any previous file.
func WriteConfig(path string, s Settings) error {
	if err := os.WriteFile(path, s.Render(), 0644); err != nil {
		return fmt.Errorf("writing daemon config: %w", err)
	}
	return nil
}

// ParseConfig reads a configuration file body. Blank lines and lines
// starting with '#' are skipped. Every bad line is reported.
func ParseConfig(r io.Reader) (Settings, error) {
	s := Settings{
		LogLevel:            DefaultLogLevel,
		DNSRefreshInterval:  DefaultDNSRefreshInterval,
		HealthCheckInterval: DefaultHealthCheckInterval,
	}

	var errs []error
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.apply(line); err != nil {
			errs = append(errs, err)
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("reading config: %w", err))
	}
	if len(errs) > 0 {
		return Settings{}, errors.Join(errs...)
	}
	return s, nil
}

// LoadConfig parses the configuration file at path.
func LoadConfig(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

func (s *Settings) apply(line string) error {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return fmt.Errorf("bad line in config %q", line)
	}

	var err error
	switch key {
	case "data_port":
		s.DataPort, err = strconv.Atoi(value)
	case "log_level":
		s.LogLevel, err = strconv.Atoi(value)
	case "downstream_flush_interval":
		s.FlushInterval, err = parseSeconds(value)
	case "dns_refresh_interval":
		var n int
		n, err = strconv.Atoi(value)
		s.DNSRefreshInterval = time.Duration(n) * time.Second
	case "downstream_health_check_interval":
		s.HealthCheckInterval, err = parseSeconds(value)
	case "downstream":
		if _, _, splitErr := net.SplitHostPort(value); splitErr != nil {
			return fmt.Errorf("no data port for %s", value)
		}
		s.Downstream = value
	default:
		return fmt.Errorf("unknown parameter %q", key)
	}
	if err != nil {
		return fmt.Errorf("parameter %q: %w", key, err)
	}
	return nil
}

func seconds(d time.Duration) string {
	out := strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

func parseSeconds(s string) (time.Duration, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(v * float64(time.Second)), nil
}
