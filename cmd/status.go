package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cryptopairs/pairtrader/internal/live"
	"github.com/cryptopairs/pairtrader/pkg/formatters"
)

var (
	statusRuns   int
	statusTrades bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show saved paper trading state and recent backtest runs",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().IntVar(&statusRuns, "runs", 5, "recent backtest runs to list (0 to skip)")
	statusCmd.Flags().BoolVar(&statusTrades, "trades", false, "also print the saved trade log")
}

func runStatus(cmd *cobra.Command, args []string) error {
	defer db.Close()

	state, err := live.LoadState(cfg.StateFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Printf("No trading state at %s yet, run \"pairtrader trade\" first.\n", cfg.StateFile)
	case err != nil:
		return fmt.Errorf("reading state file: %w", err)
	default:
		fmt.Println(formatters.FormatState(state, cfg.Symbol1, cfg.Symbol2))
		if statusTrades {
			fmt.Println(formatters.FormatTradesTable(state.Trades))
		}
	}

	if statusRuns > 0 {
		runs, err := db.ListBacktestRuns(cmd.Context(), cfg.Symbol1, cfg.Symbol2, statusRuns)
		if err != nil {
			return fmt.Errorf("listing backtest runs: %w", err)
		}
		fmt.Println(formatters.FormatRunsTable(runs))
	}

	return nil
}
