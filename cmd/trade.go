package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cryptopairs/pairtrader/internal/exchange"
	"github.com/cryptopairs/pairtrader/internal/live"
)

var tradeNoStream bool

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Run the live paper trading loop",
	Long: `Polls prices for the configured pair every update interval,
trades on z-score signal changes with simulated money, and saves state
to the state file after every tick. Stop with Ctrl-C; state survives
restarts.`,
	RunE: runTrade,
}

func init() {
	rootCmd.AddCommand(tradeCmd)

	tradeCmd.Flags().BoolVar(&tradeNoStream, "no-stream", false, "poll REST only, skip the websocket ticker stream")
}

func runTrade(cmd *cobra.Command, args []string) error {
	defer db.Close()

	if !cfg.PaperTrading {
		return fmt.Errorf("only paper trading is supported, set PAPER_TRADING=true")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !tradeNoStream {
		stream := exchange.NewStream(cfg, dataCache, logger, cfg.Symbol1, cfg.Symbol2)
		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("ticker stream stopped, REST polling continues", zap.Error(err))
			}
		}()
	}

	trader := live.NewTrader(cfg, client, dataCache, logger)
	trader.RestoreState()

	fmt.Printf("📈 Paper trading %s — state in %s\n",
		cfg.Symbol1+"/"+cfg.Symbol2, cfg.StateFile)

	return trader.Run(ctx)
}
