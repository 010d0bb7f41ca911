package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hulu/statsd-aggregator/internal/orchestrator"
	"github.com/hulu/statsd-aggregator/internal/report"
	"github.com/hulu/statsd-aggregator/internal/scenario"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Print the output a scenario should produce",
	Long:  "predict replays the scenario through the simulator only and prints every diagnostic and flush the daemon is expected to produce.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer logger.Sync()

		for _, path := range configPaths {
			cfg, err := loadConfig(cmd, path)
			if err != nil {
				return err
			}
			sc, err := scenario.FromConfig(cfg.Scenario)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			expected := orchestrator.Predict(sc, cfg.Daemon.Limits, logger)
			if cfg.Output.Format == "json" {
				report.FormatPredictionJSON(os.Stdout, sc.Name, expected)
			} else {
				report.FormatPredictionText(os.Stdout, sc.Name, expected)
			}
		}
		return nil
	},
}
