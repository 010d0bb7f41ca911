// Package testdaemon is a reference statsd aggregator daemon built on the
// simulator. It reads the same configuration file as the real daemon, so the
// oracle can be exercised end to end without it.
package testdaemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hulu/statsd-aggregator/internal/core"
	"github.com/hulu/statsd-aggregator/internal/daemon"
	"github.com/hulu/statsd-aggregator/internal/simulator"
)

// maxDatagram is the receive buffer size of the data socket.
const maxDatagram = 4096

// Server aggregates metrics received on the data port and flushes them to
// the downstream.
type Server struct {
	settings daemon.Settings
	limits   simulator.Limits
	log      *zap.SugaredLogger
	clock    core.Clock

	conn net.PacketConn
	down net.Conn
	sim  *simulator.Simulator

	received atomic.Int64
	flushed  atomic.Int64
}

// NewServer creates a server. Listen must be called before Serve.
func NewServer(settings daemon.Settings, limits simulator.Limits, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{settings: settings, limits: limits, log: log, clock: core.RealClock{}}
	s.sim = simulator.New(s, limits, nil)
	return s
}

// SetClock replaces the clock driving periodic flushes.
func (s *Server) SetClock(c core.Clock) { s.clock = c }

// Listen binds the data port and connects to the downstream.
func (s *Server) Listen() error {
	conn, err := net.ListenPacket("udp", net.JoinHostPort("", strconv.Itoa(s.settings.DataPort)))
	if err != nil {
		s.log.Errorf("main: bind() failed %v", err)
		return fmt.Errorf("binding data port: %w", err)
	}
	down, err := net.Dial("udp", s.settings.Downstream)
	if err != nil {
		conn.Close()
		s.log.Errorf("init_downstream: failed to initialize sockaddr_in structures")
		return fmt.Errorf("connecting downstream: %w", err)
	}
	s.conn, s.down = conn, down
	return nil
}

// Addr returns the bound data address.
func (s *Server) Addr() net.Addr { return s.conn.LocalAddr() }

// Received returns the number of datagrams processed so far.
func (s *Server) Received() int64 { return s.received.Load() }

// Flushed returns the number of datagrams sent downstream so far.
func (s *Server) Flushed() int64 { return s.flushed.Load() }

// Serve processes datagrams until ctx is done. Aggregation happens on the
// calling goroutine only.
func (s *Server) Serve(ctx context.Context) error {
	packets := make(chan []byte, 64)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, maxDatagram)
		for {
			n, _, err := s.conn.ReadFrom(buf)
			if err != nil {
				readErr <- err
				return
			}
			packet := append([]byte(nil), buf[:n]...)
			select {
			case packets <- packet:
			case <-ctx.Done():
				return
			}
		}
	}()

	var ticks <-chan time.Time
	if s.settings.FlushInterval > 0 {
		ticker := s.clock.NewTicker(s.settings.FlushInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Infof("on_sigint: sigint received")
			return nil
		case err := <-readErr:
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Errorf("udp_read_cb: read() failed %v", err)
			return fmt.Errorf("reading data port: %w", err)
		case packet := <-packets:
			s.log.Debugf("udp_read_cb: got packet %s", packet)
			s.sim.Ingest(string(packet))
			s.received.Add(1)
		case <-ticks:
			if s.sim.Stats().ActiveBuffer > 0 {
				s.sim.Flush()
			}
		}
	}
}

func (s *Server) Close() error {
	return errors.Join(s.conn.Close(), s.down.Close())
}

// Diagnostic implements simulator.Sink by logging the condition the way the
// daemon does.
func (s *Server) Diagnostic(d simulator.Diagnostic) {
	s.log.Errorf("%s: %s", origin(d.Kind), d.Message())
}

// Flush implements simulator.Sink by sending the batch downstream.
func (s *Server) Flush(b simulator.Batch) {
	payload := b.Payload()
	s.log.Debugf("downstream_schedule_flush: flushing buffer: %q", payload)
	if _, err := s.down.Write(payload); err != nil {
		s.log.Errorf("downstream_flush_cb: sendto() failed %v", err)
		return
	}
	s.flushed.Add(1)
}

// origin names the daemon routine that reports each kind of diagnostic.
func origin(k simulator.DiagnosticKind) string {
	switch k {
	case simulator.InvalidLength:
		return "udp_read_cb"
	case simulator.MissingValue:
		return "process_data_line"
	default:
		return "insert_values_into_slot"
	}
}

// Run loads the configuration file at path and serves until ctx is done.
// The log goes to stdout.
func Run(ctx context.Context, path string, limits simulator.Limits, stdout io.Writer) error {
	settings, err := daemon.LoadConfig(path)
	if err != nil {
		log := NewLogger(stdout, LevelError)
		log.Errorf("init_config: %v", err)
		return err
	}

	log := NewLogger(stdout, settings.LogLevel)
	defer log.Sync()

	srv := NewServer(settings, limits, log)
	if err := srv.Listen(); err != nil {
		return err
	}
	defer srv.Close()

	log.Infof("main: listening on %s, downstream %s", srv.Addr(), settings.Downstream)
	return srv.Serve(ctx)
}
