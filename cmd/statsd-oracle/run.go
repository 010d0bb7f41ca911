package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hulu/statsd-aggregator/internal/collector"
	"github.com/hulu/statsd-aggregator/internal/orchestrator"
	"github.com/hulu/statsd-aggregator/internal/progress"
	"github.com/hulu/statsd-aggregator/internal/report"
	"github.com/hulu/statsd-aggregator/internal/scenario"
)

var (
	executable     string
	timeout        time.Duration
	dataPort       int
	downstreamPort int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run scenarios against the daemon",
	Long:  "run starts the daemon, replays the scenario against it and the simulator, and reports whether the daemon's output matched the prediction. Several --config files run one after another as a suite.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		prog := progress.NewProgress(quiet)
		coll := collector.NewCollector()
		format := "text"

		for _, path := range configPaths {
			if ctx.Err() != nil {
				break
			}
			result, f, err := runScenario(ctx, cmd, path, prog, logger)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			format = f
			coll.Add(result)
		}

		summary := coll.Compute()
		if len(configPaths) > 1 {
			if format == "json" {
				collector.FormatJSON(os.Stdout, summary)
			} else {
				collector.FormatText(os.Stdout, summary)
			}
		}
		if !summary.AllPassed() || ctx.Err() != nil {
			return errScenarioFailed
		}
		return nil
	},
}

// runScenario runs the scenario declared in one config file and prints its
// report. It returns the output format the file selected.
func runScenario(ctx context.Context, cmd *cobra.Command, path string, prog *progress.Progress, logger *zap.Logger) (report.Result, string, error) {
	cfg, err := loadConfig(cmd, path)
	if err != nil {
		return report.Result{}, "", err
	}
	if cfg.Daemon.Executable == "" {
		return report.Result{}, "", fmt.Errorf("no daemon executable: set daemon.executable or --executable")
	}
	sc, err := scenario.FromConfig(cfg.Scenario)
	if err != nil {
		return report.Result{}, "", err
	}

	o := orchestrator.New(orchestrator.Options{
		Daemon:           cfg.Daemon,
		Logger:           logger,
		Progress:         prog,
		ProgressInterval: cfg.Output.Progress,
	})

	prog.Printf("statsd-oracle: scenario %q, %d steps, timeout %v", sc.Name, len(sc.Steps), sc.Timeout)
	result, err := o.Run(ctx, sc)
	if err != nil {
		return report.Result{}, "", err
	}

	if cfg.Output.Format == "json" {
		report.FormatJSON(os.Stdout, result)
	} else {
		report.FormatText(os.Stdout, result)
	}
	return result, cfg.Output.Format, nil
}

func init() {
	runCmd.Flags().StringVar(&executable, "executable", "", "path to the daemon binary (overrides daemon.executable)")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "scenario timeout (overrides scenario.timeout)")
	runCmd.Flags().IntVar(&dataPort, "data-port", 0, "daemon data port (overrides daemon.data_port)")
	runCmd.Flags().IntVar(&downstreamPort, "downstream-port", 0, "downstream port the oracle listens on, 0 for any (overrides daemon.downstream_port)")
}
