package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/tradesignal/internal/config"
	"github.com/aristath/tradesignal/internal/di"
	"github.com/aristath/tradesignal/internal/modules/pipeline"
)

var scoreCmd = &cobra.Command{
	Use:   "score [SYMBOL...]",
	Short: "Run one scoring batch",
	Long: `Score symbols with a strategy, run the signal engine and the risk stage, and
print the outcome. Results are persisted and published like a scheduled batch.

Without symbols the configured SYMBOLS universe is used.

Examples:
  signalctl score AAPL MSFT
  signalctl score --strategy swing --json`,
	RunE: runScore,
}

var (
	scoreStrategy string
	scoreJSON     bool
)

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scoreStrategy, "strategy", "default", "strategy id")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print the batch as JSON")
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if strategyFile != "" {
		cfg.StrategyFile = strategyFile
	}
	sf, err := config.LoadStrategyFile(cfg.StrategyFile)
	if err != nil {
		return err
	}

	container, err := di.Wire(ctx, cfg, sf, log)
	if err != nil {
		return err
	}
	defer container.Close()

	symbols := container.Symbols
	if len(args) > 0 {
		symbols = make([]string, 0, len(args))
		for _, a := range args {
			symbols = append(symbols, strings.ToUpper(strings.TrimSpace(a)))
		}
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols given and SYMBOLS is empty")
	}

	batch, err := container.Runner.Run(ctx, scoreStrategy, symbols)
	if err != nil {
		return err
	}

	if scoreJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	}
	return printBatch(cmd.OutOrStdout(), batch)
}

// printBatch writes one row per symbol followed by a summary line.
func printBatch(w io.Writer, batch pipeline.BatchResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tSCORE\tDELTA\tSIGNAL\tRISK\tNOTE")
	for _, r := range batch.Results {
		if r.Failed() {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%s: %s\n", r.Symbol, r.Stage, r.Error)
			continue
		}

		delta := "-"
		if d := r.Score.Delta(); d != nil {
			delta = fmt.Sprintf("%+.2f", *d)
		}
		signalCol, note := "-", ""
		if r.Decision != nil {
			if r.Decision.Signal != nil {
				signalCol = fmt.Sprintf("%s (%.2f)", r.Decision.Signal.Action, r.Decision.Signal.Confidence)
			} else {
				note = strings.Join(r.Decision.Suppressed, ", ")
			}
		}
		if r.Error != "" {
			note = r.Stage + ": " + r.Error
		}
		riskCol := "-"
		if r.Risk != nil {
			riskCol = fmt.Sprintf("%s/%s", r.Risk.Level, r.Risk.Action)
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\t%s\n", r.Symbol, r.Score.Score, delta, signalCol, riskCol, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nbatch %s: %d scored, %d fired, %d failed, %d not started in %s\n",
		batch.ID, batch.Scored, batch.Fired, batch.Failed, len(batch.NotStarted), batch.Duration().Round(time.Millisecond))
	return err
}
