package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hulu/statsd-aggregator/internal/config"
)

const (
	ExitSuccess = 0
	ExitFailed  = 1
	ExitError   = 2
)

// errScenarioFailed makes Execute exit with ExitFailed without printing an
// error; the report already explains the failure.
var errScenarioFailed = errors.New("scenario failed")

var (
	configPaths []string
	outputFlag  string
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:           "statsd-oracle",
	Short:         "Differential tester for the statsd aggregator",
	Long:          "statsd-oracle replays scenarios against the statsd aggregator daemon and a simulator of it, and checks that the daemon produces exactly the predicted output.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	err := rootCmd.Execute()
	switch {
	case err == nil:
		os.Exit(ExitSuccess)
	case errors.Is(err, errScenarioFailed):
		os.Exit(ExitFailed)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&configPaths, "config", nil, "path to YAML scenario file, repeat to run a suite (required)")
	rootCmd.PersistentFlags().StringVar(&outputFlag, "output", "", "output format: text, json (default from config, else text)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress progress output")
	rootCmd.MarkPersistentFlagRequired("config")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(predictCmd)
}

// loadConfig reads a scenario file and applies the flags the user set.
// Flags only override file values when given explicitly.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Format = outputFlag
	}
	if flags.Changed("executable") {
		cfg.Daemon.Executable = executable
	}
	if flags.Changed("timeout") {
		cfg.Scenario.Timeout = timeout
	}
	if flags.Changed("data-port") {
		cfg.Daemon.DataPort = dataPort
	}
	if flags.Changed("downstream-port") {
		cfg.Daemon.DownstreamPort = downstreamPort
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func newLogger() *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}
