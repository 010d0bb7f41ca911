package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Command describes how to launch the daemon. The configuration file path
// is passed as the last argument.
type Command struct {
	Executable string
	Args       []string
	ConfigPath string
	Env        []string
}

// Process is a running daemon.
type Process struct {
	cmd    *exec.Cmd
	logger *zap.Logger
	exited chan struct{}
	err    error
}

// Start launches the daemon with its stdout copied into stdout. Writes to
// stdout happen on a goroutine owned by the process; a write error stops the
// copy.
func Start(ctx context.Context, c Command, stdout io.Writer, logger *zap.Logger) (*Process, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.Executable == "" {
		return nil, errors.New("starting daemon: no executable configured")
	}

	args := append(append([]string{}, c.Args...), c.ConfigPath)
	cmd := exec.CommandContext(ctx, c.Executable, args...)
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), c.Env...)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting daemon: %w", err)
	}
	logger.Info("daemon started",
		zap.String("executable", c.Executable), zap.Int("pid", cmd.Process.Pid))

	p := &Process{cmd: cmd, logger: logger, exited: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		logger.Debug("daemon exited", zap.Int("pid", cmd.Process.Pid), zap.Error(p.err))
		close(p.exited)
	}()
	return p, nil
}

func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Exited is closed once the process has terminated and its output has been
// fully copied.
func (p *Process) Exited() <-chan struct{} { return p.exited }

// Err returns the exit status. Only valid after Exited is closed.
func (p *Process) Err() error { return p.err }

// Stop interrupts the daemon and kills it if it is still running after
// grace.
func (p *Process) Stop(grace time.Duration) error {
	select {
	case <-p.exited:
		return nil
	default:
	}

	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		p.logger.Debug("interrupt failed, killing daemon", zap.Error(err))
		_ = p.cmd.Process.Kill()
	}

	select {
	case <-p.exited:
		return nil
	case <-time.After(grace):
	}

	p.logger.Warn("daemon ignored interrupt, killing", zap.Int("pid", p.Pid()))
	if err := p.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("killing daemon: %w", err)
	}
	<-p.exited
	return nil
}
