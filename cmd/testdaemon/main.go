// Command testdaemon runs the reference statsd aggregator.
//
// Usage:
//
//	testdaemon [flags] CONFIG_FILE
//
// It reads the same key=value configuration file as the real daemon and logs
// to stdout. SIGINT stops it with exit code 0.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hulu/statsd-aggregator/internal/simulator"
	"github.com/hulu/statsd-aggregator/internal/testdaemon"
)

func main() {
	limits := simulator.DefaultLimits

	cmd := &cobra.Command{
		Use:           "testdaemon CONFIG_FILE",
		Short:         "Reference statsd aggregator",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return testdaemon.Run(ctx, args[0], limits, os.Stdout)
		},
	}
	cmd.Flags().IntVar(&limits.Min, "min-length", limits.Min, "shortest accepted metric line")
	cmd.Flags().IntVar(&limits.Max, "max-length", limits.Max, "longest accepted metric line and flush capacity")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
