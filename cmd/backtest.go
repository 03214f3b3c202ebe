package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cryptopairs/pairtrader/internal/backtest"
	"github.com/cryptopairs/pairtrader/internal/models"
	"github.com/cryptopairs/pairtrader/internal/store"
	"github.com/cryptopairs/pairtrader/pkg/formatters"
)

var (
	backtestDays   int
	backtestJSON   bool
	backtestTrades bool
	backtestRecord bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the pair strategy against stored candles",
	Long: `Replays stored candles for the configured pair through the
mean-reversion strategy and prints a performance report. Candles must
be collected first (see "pairtrader collect").`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().IntVar(&backtestDays, "days", 0, "restrict to the last N days of data (default: all)")
	backtestCmd.Flags().BoolVar(&backtestJSON, "json", false, "emit the report as JSON")
	backtestCmd.Flags().BoolVar(&backtestTrades, "trades", false, "also print the executed trades")
	backtestCmd.Flags().BoolVar(&backtestRecord, "record", true, "record the run in the database")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	defer db.Close()
	ctx := cmd.Context()

	bars1, bars2, err := loadPair(ctx, backtestDays)
	if err != nil {
		return err
	}

	bt := backtest.New(cfg.Symbol1, cfg.Symbol2, cfg.Timeframe,
		cfg.InitialCapital, cfg.LookbackPeriod, cfg.ZThreshold, cfg.TradeSizePct, logger)

	result, err := bt.Run(bars1, bars2)
	if err != nil {
		return err
	}

	report, err := backtest.Analyze(result)
	if err != nil {
		return err
	}

	if backtestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Println(formatters.FormatReport(cfg.Symbol1, cfg.Symbol2, &report))
	}

	if backtestTrades && !backtestJSON {
		fmt.Println(formatters.FormatTradesTable(result.Trades))
	}

	if backtestRecord && len(result.PortfolioValues) > 0 {
		run := store.BacktestRun{
			RunID:        store.NewRunID(),
			Created:      time.Now().UTC(),
			Symbol1:      cfg.Symbol1,
			Symbol2:      cfg.Symbol2,
			Timeframe:    cfg.Timeframe,
			Lookback:     cfg.LookbackPeriod,
			ZThreshold:   cfg.ZThreshold,
			TradeSizePct: cfg.TradeSizePct,
			Start:        result.PortfolioValues[0].Timestamp,
			End:          result.PortfolioValues[len(result.PortfolioValues)-1].Timestamp,

			InitialCapital:   report.InitialCapital,
			FinalValue:       report.FinalValue,
			TotalReturnPct:   report.TotalReturnPct,
			BuyHoldReturnPct: report.BuyHoldReturnPct,
			ExcessReturnPct:  report.ExcessReturnPct,
			VolatilityPct:    report.VolatilityPct,
			SharpeRatio:      report.SharpeRatio,
			MaxDrawdownPct:   report.MaxDrawdownPct,
			TotalTrades:      report.TotalTrades,
			WinRatePct:       report.WinRatePct,
		}
		if err := db.RecordBacktestRun(ctx, run); err != nil {
			logger.Warn("could not record run", zap.Error(err))
		} else {
			logger.Info("recorded backtest run", zap.String("run_id", run.RunID))
		}
	}

	return nil
}

// loadPair loads both legs from the store in ascending time order,
// optionally restricted to the trailing days window.
func loadPair(ctx context.Context, days int) ([]models.PriceBar, []models.PriceBar, error) {
	var start, end time.Time
	if days > 0 {
		start = time.Now().UTC().AddDate(0, 0, -days)
	}

	bars1, err := loadBarsAscending(ctx, cfg.Symbol1, start, end)
	if err != nil {
		return nil, nil, err
	}
	bars2, err := loadBarsAscending(ctx, cfg.Symbol2, start, end)
	if err != nil {
		return nil, nil, err
	}

	if len(bars1) == 0 || len(bars2) == 0 {
		return nil, nil, fmt.Errorf("no stored candles for %s/%s %s, run \"pairtrader collect\" first",
			cfg.Symbol1, cfg.Symbol2, cfg.Timeframe)
	}
	return bars1, bars2, nil
}

// loadBarsAscending flips the store's newest-first ordering around.
func loadBarsAscending(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	bars, err := db.LoadBars(ctx, symbol, cfg.Timeframe, start, end, 0)
	if err != nil {
		return nil, err
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}
