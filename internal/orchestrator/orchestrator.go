// Package orchestrator drives one differential test run: it launches the
// daemon, replays a scenario against both the daemon and the simulator, and
// reconciles the daemon's output with the simulator's predictions until
// everything predicted has been observed or the run times out.
//
// All reconciliation happens on the goroutine calling Run. Output from the
// daemon is read on helper goroutines and handed over through a channel.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hulu/statsd-aggregator/internal/config"
	"github.com/hulu/statsd-aggregator/internal/core"
	"github.com/hulu/statsd-aggregator/internal/daemon"
	"github.com/hulu/statsd-aggregator/internal/ledger"
	"github.com/hulu/statsd-aggregator/internal/progress"
	"github.com/hulu/statsd-aggregator/internal/ratelimit"
	"github.com/hulu/statsd-aggregator/internal/report"
	"github.com/hulu/statsd-aggregator/internal/scenario"
	"github.com/hulu/statsd-aggregator/internal/simulator"
)

const (
	defaultProgressInterval = time.Second
	defaultStopGrace        = 2 * time.Second

	arrivalBuffer = 1024
	maxDatagram   = 65536
)

// State is the lifecycle stage of a run.
type State int

const (
	Starting State = iota
	Running
	Passed
	Failed
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configure an Orchestrator.
type Options struct {
	Daemon config.DaemonConfig
	// Env is appended to the daemon's environment.
	Env []string

	Clock            core.Clock
	Logger           *zap.Logger
	Progress         *progress.Progress
	ProgressInterval time.Duration
	// StopGrace is how long the daemon gets to exit after SIGINT before it
	// is killed.
	StopGrace time.Duration
}

type Orchestrator struct {
	opts Options
}

func New(opts Options) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = core.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = defaultProgressInterval
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = defaultStopGrace
	}
	if opts.Daemon.Limits == (simulator.Limits{}) {
		opts.Daemon.Limits = simulator.DefaultLimits
	}
	return &Orchestrator{opts: opts}
}

// Run executes sc against a freshly started daemon. A returned error means
// the run could not be carried out at all; a completed run reports its
// verdict in the Result.
func (o *Orchestrator) Run(ctx context.Context, sc *scenario.Scenario) (report.Result, error) {
	runID := report.NewRunID()
	ctx = core.ContextWithRunID(ctx, runID)
	logger := o.opts.Logger.With(zap.String("run_id", core.RunIDFromContext(ctx)), zap.String("scenario", sc.Name))
	clock := o.opts.Clock
	d := o.opts.Daemon

	result := report.Result{RunID: runID, Scenario: sc.Name, Steps: len(sc.Steps)}

	downstream, err := net.ListenPacket("udp", net.JoinHostPort(d.Host, strconv.Itoa(d.DownstreamPort)))
	if err != nil {
		return result, fmt.Errorf("listening for downstream flushes: %w", err)
	}
	defer downstream.Close()
	downstreamPort := downstream.LocalAddr().(*net.UDPAddr).Port

	settings := daemon.Settings{
		LogLevel:      d.LogLevel,
		DataPort:      d.DataPort,
		FlushInterval: d.FlushInterval,
		Downstream:    net.JoinHostPort(d.Host, strconv.Itoa(downstreamPort)),
	}
	if err := daemon.WriteConfig(d.ConfigPath, settings); err != nil {
		return result, err
	}

	send, err := net.Dial("udp", net.JoinHostPort(d.Host, strconv.Itoa(d.DataPort)))
	if err != nil {
		return result, fmt.Errorf("connecting to data port: %w", err)
	}
	defer send.Close()

	arrivals := make(chan ledger.Arrival, arrivalBuffer)
	stop := make(chan struct{})
	stopped := false
	closeStop := func() {
		if !stopped {
			stopped = true
			close(stop)
		}
	}
	defer closeStop()

	go readDatagrams(downstream, &channelWriter{ch: ledger.Network, out: arrivals, stop: stop})

	cmd := daemon.Command{Executable: d.Executable, Args: d.Args, ConfigPath: d.ConfigPath, Env: o.opts.Env}
	proc, err := daemon.Start(ctx, cmd, &channelWriter{ch: ledger.Diagnostics, out: arrivals, stop: stop}, logger)
	if err != nil {
		return result, err
	}
	defer func() {
		// Unblock the stdout copy before waiting for the daemon to exit.
		closeStop()
		if err := proc.Stop(o.opts.StopGrace); err != nil {
			logger.Warn("stopping daemon", zap.Error(err))
		}
	}()

	l := ledger.New(logger)
	r := &run{
		ctx:      ctx,
		logger:   logger,
		clock:    clock,
		timeout:  sc.Timeout,
		ledger:   l,
		sim:      simulator.New(l, d.Limits, logger),
		arrivals: arrivals,
		exited:   proc.Exited(),
		proc:     proc,
		progress: o.opts.Progress,
		steps:    len(sc.Steps),
		start:    clock.Now(),
	}
	r.deadline = clock.NewTimer(sc.Timeout)
	defer r.deadline.Stop()
	if r.progress != nil {
		ticker := clock.NewTicker(o.opts.ProgressInterval)
		defer ticker.Stop()
		r.ticks = ticker.C
		defer r.progress.Clear()
	}

	r.execute(sc, send, d.StartupDelay)

	result.Verdict = report.Passed
	if r.state == Failed {
		result.Verdict = report.Failed
	}
	result.Reason = r.reason
	result.Detail = r.detail
	result.Duration = clock.Since(r.start)
	result.Expected = l.Expected()
	result.Arrivals = r.arrived
	result.Pending = Expectations(l.Pending())
	result.PendingDiagnostics = l.Buffered()

	logger.Info("run finished",
		zap.String("verdict", string(result.Verdict)),
		zap.String("reason", string(result.Reason)),
		zap.Int("pending", len(result.Pending)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// Predict replays sc through a simulator alone and returns every output the
// daemon is expected to produce, final flush included.
func Predict(sc *scenario.Scenario, limits simulator.Limits, logger *zap.Logger) []report.Expectation {
	l := ledger.New(logger)
	sim := simulator.New(l, limits, logger)
	for _, p := range sc.Payloads() {
		sim.Ingest(p)
	}
	sim.Flush()
	return Expectations(l.Pending())
}

// Expectations converts ledger events for reporting.
func Expectations(events []ledger.Event) []report.Expectation {
	if len(events) == 0 {
		return nil
	}
	out := make([]report.Expectation, len(events))
	for i, ev := range events {
		out[i] = report.Expectation{ID: ev.ID, Channel: ev.Channel.String(), Payload: ev.Text}
	}
	return out
}

type run struct {
	ctx    context.Context
	logger *zap.Logger
	clock  core.Clock

	timeout  time.Duration
	deadline *core.Timer
	ticks    <-chan time.Time
	progress *progress.Progress

	ledger   *ledger.Ledger
	sim      *simulator.Simulator
	arrivals <-chan ledger.Arrival
	exited   <-chan struct{}
	proc     *daemon.Process

	state      State
	reason     report.Reason
	detail     string
	replayDone bool
	steps      int
	sent       int
	arrived    int
	start      time.Time
}

var fired = func() chan time.Time {
	c := make(chan time.Time)
	close(c)
	return c
}()

func (r *run) execute(sc *scenario.Scenario, send io.Writer, startupDelay time.Duration) {
	if startupDelay > 0 {
		delay := r.clock.NewTimer(startupDelay)
		r.wait(delay.C)
		delay.Stop()
		if r.finished() {
			return
		}
	}
	r.setState(Running)

	var limiter *ratelimit.RateLimiter
	if sc.SendRate > 0 {
		limiter = ratelimit.NewRateLimiter(sc.SendRate)
	}

	for _, st := range sc.Steps {
		if limiter != nil {
			if err := limiter.Wait(r.ctx); err != nil {
				r.fail(report.ReasonInterrupted, err.Error())
				return
			}
		}

		r.sim.Ingest(st.Payload)
		if _, err := send.Write([]byte(st.Payload)); err != nil {
			r.logger.Warn("sending datagram", zap.Int("step", r.sent+1), zap.Error(err))
		}
		r.sent++

		r.wait(fired)
		if r.finished() {
			return
		}
	}

	r.sim.Flush()
	r.replayDone = true
	r.logger.Debug("replay done",
		zap.Int("sent", r.sent), zap.Int("expected", r.ledger.Expected()))
	if r.ledger.Complete() {
		r.setState(Passed)
		return
	}
	r.wait(nil)
}

// wait reconciles arrivals until the run finishes or until fires.
func (r *run) wait(until <-chan time.Time) {
	for !r.finished() {
		select {
		case a := <-r.arrivals:
			r.notify(a)
		case <-r.deadline.C:
			r.fail(report.ReasonTimeout,
				fmt.Sprintf("%d expectations pending after %v", len(r.ledger.Pending()), r.timeout))
		case <-r.exited:
			r.daemonExited()
		case <-r.ctx.Done():
			r.fail(report.ReasonInterrupted, r.ctx.Err().Error())
		case <-r.ticks:
			r.report()
		case <-until:
			return
		}
	}
}

func (r *run) notify(a ledger.Arrival) {
	r.arrived++
	if err := r.ledger.Notify(a); err != nil {
		r.fail(report.ReasonUnknownChannel, err.Error())
		return
	}
	if r.replayDone && r.ledger.Complete() {
		r.setState(Passed)
	}
}

// daemonExited settles the run once the daemon is gone. Its stdout has been
// fully delivered by then, so whatever is queued is reconciled first.
func (r *run) daemonExited() {
drain:
	for {
		select {
		case a := <-r.arrivals:
			r.notify(a)
			if r.finished() {
				return
			}
		default:
			break drain
		}
	}

	if r.ctx.Err() != nil {
		r.fail(report.ReasonInterrupted, r.ctx.Err().Error())
		return
	}
	if r.replayDone && r.ledger.Complete() {
		r.setState(Passed)
		return
	}
	detail := "daemon exited"
	if err := r.proc.Err(); err != nil {
		detail = fmt.Sprintf("daemon exited: %v", err)
	}
	r.fail(report.ReasonDaemonExited, detail)
}

func (r *run) report() {
	r.progress.Report(progress.Status{
		Elapsed:  r.clock.Since(r.start),
		Timeout:  r.timeout,
		Sent:     r.sent,
		Steps:    r.steps,
		Pending:  len(r.ledger.Pending()),
		Arrivals: r.arrived,
	})
}

func (r *run) finished() bool {
	return r.state == Passed || r.state == Failed
}

func (r *run) fail(reason report.Reason, detail string) {
	r.reason = reason
	r.detail = detail
	r.setState(Failed)
}

func (r *run) setState(s State) {
	if r.state == s {
		return
	}
	r.logger.Debug("state", zap.Stringer("from", r.state), zap.Stringer("to", s))
	r.state = s
}

// channelWriter forwards every write as an Arrival on ch. Writes fail once
// stop is closed.
type channelWriter struct {
	ch   ledger.Channel
	out  chan<- ledger.Arrival
	stop <-chan struct{}
}

func (w *channelWriter) Write(p []byte) (int, error) {
	data := append([]byte(nil), p...)
	select {
	case w.out <- ledger.Arrival{Channel: w.ch, Data: data}:
		return len(p), nil
	case <-w.stop:
		return 0, io.ErrClosedPipe
	}
}

func readDatagrams(conn net.PacketConn, w io.Writer) {
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return
		}
	}
}
