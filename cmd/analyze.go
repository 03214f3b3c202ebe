package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cryptopairs/pairtrader/internal/analytics"
	"github.com/cryptopairs/pairtrader/internal/models"
	"github.com/cryptopairs/pairtrader/internal/pair"
	"github.com/cryptopairs/pairtrader/pkg/formatters"
)

var (
	analyzeDays      int
	analyzePeriod    int
	analyzeBandWidth float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Print indicators and spread statistics for the pair",
	Long: `Computes per-leg technical indicators (SMA, EMA, RSI, Bollinger
bands) and pair-level statistics (correlation, current ratio z-score)
from stored candles.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVar(&analyzeDays, "days", 0, "restrict to the last N days of data (default: all)")
	analyzeCmd.Flags().IntVar(&analyzePeriod, "period", 14, "indicator period")
	analyzeCmd.Flags().Float64Var(&analyzeBandWidth, "band-width", 2.0, "Bollinger band width in standard deviations")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	defer db.Close()

	bars1, bars2, err := loadPair(cmd.Context(), analyzeDays)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Indicators %s / %s (period %d)", cfg.Symbol1, cfg.Symbol2, analyzePeriod)
	t.AppendHeader(table.Row{"", cfg.Symbol1, cfg.Symbol2})

	appendIndicatorRow(t, "Last Close", bars1, bars2, lastClose)
	appendIndicatorRow(t, "SMA", bars1, bars2, func(bars []models.PriceBar) (float64, error) {
		return analytics.SMA(bars, analyzePeriod)
	})
	appendIndicatorRow(t, "EMA", bars1, bars2, func(bars []models.PriceBar) (float64, error) {
		return analytics.EMA(bars, analyzePeriod)
	})
	appendIndicatorRow(t, "RSI", bars1, bars2, func(bars []models.PriceBar) (float64, error) {
		return analytics.RSI(bars, analyzePeriod)
	})
	t.AppendRow(table.Row{
		fmt.Sprintf("Volume (%d bars)", analyzePeriod),
		formatters.FormatVolume(sumVolume(bars1, analyzePeriod)),
		formatters.FormatVolume(sumVolume(bars2, analyzePeriod)),
	})

	for _, leg := range []struct {
		symbol string
		bars   []models.PriceBar
	}{{cfg.Symbol1, bars1}, {cfg.Symbol2, bars2}} {
		bands, err := analytics.Bollinger(leg.bars, analyzePeriod, analyzeBandWidth)
		if err != nil {
			logger.Warn("bollinger unavailable", zap.String("symbol", leg.symbol), zap.Error(err))
			continue
		}
		t.AppendRow(table.Row{
			"Bollinger " + leg.symbol,
			fmt.Sprintf("%.4f / %.4f / %.4f", bands.Lower, bands.Middle, bands.Upper),
			"",
		})
	}

	fmt.Println(t.Render())

	corr, err := analytics.Correlation(bars1, bars2)
	if err != nil {
		return err
	}

	series := pair.BuildSeries(bars1, bars2, cfg.LookbackPeriod)
	fmt.Printf("Correlation: %.4f over %d candles\n", corr, series.Len())
	if n := series.Len(); n > 0 {
		z := series.ZScore[n-1]
		fmt.Printf("Current ratio z-score: %.4f (signal: %s)\n",
			z, formatters.FormatSignal(pair.Classify(z, cfg.ZThreshold)))
	}

	return nil
}

func sumVolume(bars []models.PriceBar, period int) float64 {
	if period > len(bars) {
		period = len(bars)
	}
	var total float64
	for _, b := range bars[len(bars)-period:] {
		total += b.Volume
	}
	return total
}

func lastClose(bars []models.PriceBar) (float64, error) {
	if len(bars) == 0 {
		return 0, fmt.Errorf("no bars")
	}
	return bars[len(bars)-1].Close, nil
}

func appendIndicatorRow(t table.Writer, label string, bars1, bars2 []models.PriceBar, f func([]models.PriceBar) (float64, error)) {
	v1, err1 := f(bars1)
	v2, err2 := f(bars2)
	c1, c2 := "n/a", "n/a"
	if err1 == nil {
		c1 = fmt.Sprintf("%.4f", v1)
	}
	if err2 == nil {
		c2 = fmt.Sprintf("%.4f", v2)
	}
	t.AppendRow(table.Row{label, c1, c2})
}
