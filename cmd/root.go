package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cryptopairs/pairtrader/internal/cache"
	"github.com/cryptopairs/pairtrader/internal/config"
	"github.com/cryptopairs/pairtrader/internal/exchange"
	"github.com/cryptopairs/pairtrader/internal/store"
)

var (
	// Global instances
	cfg       *config.Config
	client    *exchange.Client
	dataCache *cache.Cache
	db        *store.Store
	logger    *zap.Logger

	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pairtrader",
	Short: "Mean-reversion pair trading for crypto",
	Long: `pairtrader backtests and paper-trades a mean-reversion strategy
on the price ratio of two crypto assets. Price data comes from Binance,
candles are stored in SQLite, and the live loop trades on z-score
signals of the rolling ratio.`,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogger)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("pair", "", "trading pair as SYMBOL1/SYMBOL2 (overrides config)")
	rootCmd.PersistentFlags().String("timeframe", "", "candle timeframe (overrides config)")
}

// initLogger configures zap: default INFO, DEBUG if DEBUG env is truthy.
func initLogger() {
	verbose := false
	if v := os.Getenv("DEBUG"); v == "true" || v == "1" || v == "yes" {
		verbose = true
	}

	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	var err error
	logger, err = zcfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
}

// initializeApp sets up all dependencies
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if pair, _ := cmd.Flags().GetString("pair"); pair != "" {
		if err := applyPairFlag(pair); err != nil {
			return err
		}
	}
	if tf, _ := cmd.Flags().GetString("timeframe"); tf != "" {
		cfg.Timeframe = tf
	}

	client = exchange.NewClient(cfg)
	dataCache = cache.NewCache(cfg.CacheTTL)

	db, err = store.NewStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	return nil
}

// applyPairFlag parses SYMBOL1/SYMBOL2 and overrides the configured legs.
func applyPairFlag(pair string) error {
	parts := strings.SplitN(pair, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] == parts[1] {
		return fmt.Errorf("invalid pair %q, expected SYMBOL1/SYMBOL2", pair)
	}
	cfg.Symbol1 = strings.ToUpper(parts[0])
	cfg.Symbol2 = strings.ToUpper(parts[1])
	return nil
}
