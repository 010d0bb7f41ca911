package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Render(t *testing.T) {
	s := Settings{
		LogLevel:      4,
		DataPort:      9000,
		FlushInterval: 2 * time.Second,
		Downstream:    "127.0.0.1:9100",
	}

	want := "log_level=4\n" +
		"data_port=9000\n" +
		"downstream_flush_interval=2.0\n" +
		"downstream=127.0.0.1:9100\n"
	assert.Equal(t, want, string(s.Render()))
}

func TestSettings_RenderOptionalIntervals(t *testing.T) {
	s := Settings{
		FlushInterval:       1500 * time.Millisecond,
		DNSRefreshInterval:  30 * time.Second,
		HealthCheckInterval: 250 * time.Millisecond,
		Downstream:          "localhost:8125",
	}

	out := string(s.Render())
	assert.Contains(t, out, "downstream_flush_interval=1.5\n")
	assert.Contains(t, out, "dns_refresh_interval=30\n")
	assert.Contains(t, out, "downstream_health_check_interval=0.25\n")
}

func TestParseConfig_RoundTrip(t *testing.T) {
	s := Settings{
		LogLevel:            3,
		DataPort:            9001,
		FlushInterval:       500 * time.Millisecond,
		Downstream:          "127.0.0.1:9101",
		DNSRefreshInterval:  10 * time.Second,
		HealthCheckInterval: 2 * time.Second,
	}

	got, err := ParseConfig(strings.NewReader(string(s.Render())))
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestParseConfig_DefaultsAndComments(t *testing.T) {
	body := "# generated\n\ndata_port=9000\ndownstream=127.0.0.1:9100\n"

	got, err := ParseConfig(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, DefaultLogLevel, got.LogLevel)
	assert.Equal(t, DefaultDNSRefreshInterval, got.DNSRefreshInterval)
	assert.Equal(t, DefaultHealthCheckInterval, got.HealthCheckInterval)
	assert.Equal(t, 9000, got.DataPort)
}

func TestParseConfig_Errors(t *testing.T) {
	body := "no-equals-sign\nfoo=bar\ndownstream=127.0.0.1\ndata_port=abc\n"

	_, err := ParseConfig(strings.NewReader(body))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `bad line in config "no-equals-sign"`)
	assert.Contains(t, msg, `unknown parameter "foo"`)
	assert.Contains(t, msg, "no data port for 127.0.0.1")
	assert.Contains(t, msg, `parameter "data_port"`)
}

func TestWriteConfigAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statsd-aggregator.conf")
	s := Settings{LogLevel: 4, DataPort: 9000, FlushInterval: 2 * time.Second, Downstream: "127.0.0.1:9100"}

	require.NoError(t, WriteConfig(path, s))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s.Render(), data)

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, loaded.DataPort)
	assert.Equal(t, 2*time.Second, loaded.FlushInterval)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.conf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening config file")
}
