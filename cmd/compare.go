package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cryptopairs/pairtrader/internal/backtest"
	"github.com/cryptopairs/pairtrader/pkg/formatters"
)

var (
	comparePairsFile string
	compareDays      int
)

// pairsFile is the YAML shape of a comparison sweep definition.
type pairsFile struct {
	Pairs []struct {
		Symbol1 string `yaml:"symbol1"`
		Symbol2 string `yaml:"symbol2"`
	} `yaml:"pairs"`
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Backtest several pairs and rank them",
	Long: `Runs the strategy with identical parameters over every pair in a
YAML file and prints a ranking by excess return over buy-and-hold.

Pairs file format:

  pairs:
    - symbol1: ADAUSDT
      symbol2: BNBUSDT
    - symbol1: ETHUSDT
      symbol2: BTCUSDT`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&comparePairsFile, "pairs", "pairs.yaml", "YAML file listing pairs to compare")
	compareCmd.Flags().IntVar(&compareDays, "days", 0, "restrict to the last N days of data (default: all)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	defer db.Close()
	ctx := cmd.Context()

	raw, err := os.ReadFile(comparePairsFile)
	if err != nil {
		return fmt.Errorf("reading pairs file: %w", err)
	}
	var pf pairsFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("parsing pairs file: %w", err)
	}
	if len(pf.Pairs) == 0 {
		return fmt.Errorf("pairs file %s lists no pairs", comparePairsFile)
	}

	var rows []formatters.ComparisonRow
	for _, p := range pf.Pairs {
		if p.Symbol1 == "" || p.Symbol2 == "" || p.Symbol1 == p.Symbol2 {
			logger.Warn("skipping malformed pair entry",
				zap.String("symbol1", p.Symbol1),
				zap.String("symbol2", p.Symbol2))
			continue
		}

		cfg.Symbol1, cfg.Symbol2 = p.Symbol1, p.Symbol2
		bars1, bars2, err := loadPair(ctx, compareDays)
		if err != nil {
			logger.Warn("skipping pair",
				zap.String("pair", formatters.FormatPair(p.Symbol1, p.Symbol2)),
				zap.Error(err))
			continue
		}

		bt := backtest.New(p.Symbol1, p.Symbol2, cfg.Timeframe,
			cfg.InitialCapital, cfg.LookbackPeriod, cfg.ZThreshold, cfg.TradeSizePct, logger)
		result, err := bt.Run(bars1, bars2)
		if err != nil {
			logger.Warn("skipping pair",
				zap.String("pair", formatters.FormatPair(p.Symbol1, p.Symbol2)),
				zap.Error(err))
			continue
		}
		report, err := backtest.Analyze(result)
		if err != nil {
			return err
		}

		rows = append(rows, formatters.ComparisonRow{
			Symbol1: p.Symbol1,
			Symbol2: p.Symbol2,
			Report:  &report,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Report.ExcessReturnPct > rows[j].Report.ExcessReturnPct
	})

	fmt.Println(formatters.FormatComparisonTable(rows))
	return nil
}
