package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cryptopairs/pairtrader/internal/exchange"
	"github.com/cryptopairs/pairtrader/internal/models"
)

// pageLimit is the maximum klines Binance returns per request.
const pageLimit = 1000

var (
	collectDays    int
	collectSymbols []string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Download historical candles into the local database",
	Long: `Fetches OHLCV candles from Binance for the configured pair (or
an explicit symbol list) and upserts them into SQLite. Re-running is
safe: existing candles are overwritten in place.`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().IntVar(&collectDays, "days", 30, "days of history to fetch")
	collectCmd.Flags().StringSliceVar(&collectSymbols, "symbols", nil, "symbols to collect (default: the configured pair)")
}

func runCollect(cmd *cobra.Command, args []string) error {
	defer db.Close()

	symbols := collectSymbols
	if len(symbols) == 0 {
		symbols = []string{cfg.Symbol1, cfg.Symbol2}
	}

	ctx := cmd.Context()
	start := time.Now().UTC().AddDate(0, 0, -collectDays)

	for _, symbol := range symbols {
		n, err := collectSymbol(ctx, symbol, cfg.Timeframe, start)
		if err != nil {
			return fmt.Errorf("collecting %s: %w", symbol, err)
		}
		fmt.Printf("%s: stored %d %s candles\n", symbol, n, cfg.Timeframe)

		first, last, count, err := db.DataRange(ctx, symbol, cfg.Timeframe)
		if err == nil && count > 0 {
			fmt.Printf("%s: database now spans %s .. %s (%d candles)\n",
				symbol, first.Format(time.RFC3339), last.Format(time.RFC3339), count)
		}
	}
	return nil
}

// collectSymbol pages through klines from start until the present,
// upserting each page. NoData past the first page just means the symbol
// history is exhausted.
func collectSymbol(ctx context.Context, symbol, timeframe string, start time.Time) (int, error) {
	step, err := models.TimeframeDuration(timeframe)
	if err != nil {
		return 0, err
	}

	total := 0
	since := start
	for {
		bars, err := client.FetchOHLCV(ctx, symbol, timeframe, since, pageLimit)
		if err != nil {
			if exchange.IsNoData(err) && total > 0 {
				break
			}
			return total, err
		}
		if len(bars) == 0 {
			break
		}

		if err := db.UpsertBars(ctx, bars); err != nil {
			return total, err
		}
		total += len(bars)

		logger.Debug("stored candle page",
			zap.String("symbol", symbol),
			zap.Int("count", len(bars)),
			zap.Time("first", bars[0].Timestamp),
			zap.Time("last", bars[len(bars)-1].Timestamp))

		last := bars[len(bars)-1].Timestamp
		if len(bars) < pageLimit || !last.Add(step).Before(time.Now().UTC()) {
			break
		}
		since = last.Add(step)
	}

	gaps, err := db.MissingBars(ctx, symbol, timeframe)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("gap scan failed", zap.String("symbol", symbol), zap.Error(err))
	} else if len(gaps) > 0 {
		logger.Warn("history has gaps",
			zap.String("symbol", symbol),
			zap.Int("missing", len(gaps)),
			zap.Time("first_gap", gaps[0]))
	}

	return total, nil
}
