// Package main is signalctl, the command line companion of the tradesignal service.
// It validates strategy files, lists directives and runs one-off scoring batches
// against the same databases the service uses.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/tradesignal/pkg/logger"
)

var (
	strategyFile string
	logLevel     string
	log          zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "signalctl",
	Short: "Inspect and run tradesignal strategies",
	Long: `signalctl validates strategy files, lists the built-in directives and runs
scoring batches from the command line.

Configuration is read from the environment (.env is honoured) exactly like the service.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logger.New(logger.Config{Level: logLevel, Pretty: true, Output: os.Stderr})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "file", os.Getenv("STRATEGY_FILE"), "strategy file (YAML); built-in defaults when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
