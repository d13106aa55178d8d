package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/tradesignal/internal/config"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/aristath/tradesignal/internal/modules/scoring/directives"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a strategy file",
	Long: `Parse the strategy file and load every strategy into a scratch registry, the
same way the service does at startup. Nothing is written to the databases.

Examples:
  signalctl validate --file strategies.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	sf, err := config.LoadStrategyFile(strategyFile)
	if err != nil {
		return err
	}
	registry, err := loadRegistry(sf, log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range registry.Strategies() {
		fmt.Fprintf(out, "ok  %-16s %d directives, threshold %.1f, min change %.1f\n",
			s.ID, len(s.Weights), s.Thresholds.ScoreThreshold, s.Thresholds.MinChange)
	}
	return nil
}

// loadRegistry builds a registry holding the file's directives and strategies.
func loadRegistry(sf config.StrategyFile, log zerolog.Logger) (*scoring.Registry, error) {
	registry := scoring.NewRegistry(directives.Builtins(), log)
	if err := registry.RegisterBuiltins(sf.Directives...); err != nil {
		return nil, fmt.Errorf("failed to register directives: %w", err)
	}
	for _, s := range sf.Strategies {
		if _, err := registry.PutStrategy(s); err != nil {
			return nil, fmt.Errorf("failed to load strategy %s: %w", s.ID, err)
		}
	}
	return registry, nil
}
