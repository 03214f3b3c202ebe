package formatters

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cryptopairs/pairtrader/internal/backtest"
	"github.com/cryptopairs/pairtrader/internal/live"
	"github.com/cryptopairs/pairtrader/internal/models"
	"github.com/cryptopairs/pairtrader/internal/store"
)

// Colors for different values
var (
	ColorGreen  = text.FgGreen
	ColorRed    = text.FgRed
	ColorYellow = text.FgYellow
	ColorBlue   = text.FgCyan
	ColorWhite  = text.FgWhite
	ColorGray   = text.FgHiBlack
)

// FormatPercent formats a percentage with sign and color.
func FormatPercent(percent float64) string {
	sign := ""
	if percent > 0 {
		sign = "+"
	}

	percentStr := fmt.Sprintf("%s%.2f%%", sign, percent)

	if percent > 0 {
		return ColorGreen.Sprint(percentStr)
	} else if percent < 0 {
		return ColorRed.Sprint(percentStr)
	}
	return percentStr
}

// FormatDollarAmount formats a signed dollar amount with color.
func FormatDollarAmount(amount float64) string {
	if amount < 0 {
		return ColorRed.Sprintf("-$%.2f", -amount)
	}
	return ColorGreen.Sprintf("$%.2f", amount)
}

// FormatSignal colors a spread position by direction.
func FormatSignal(signal models.Position) string {
	switch signal {
	case models.LongSpread:
		return ColorGreen.Sprint(signal.String())
	case models.ShortSpread:
		return ColorRed.Sprint(signal.String())
	default:
		return ColorGray.Sprint(signal.String())
	}
}

// FormatReport renders a backtest report as a summary table.
func FormatReport(symbol1, symbol2 string, report *backtest.Report) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Backtest %s / %s", symbol1, symbol2)

	t.AppendRow(table.Row{"Initial Capital", fmt.Sprintf("$%.2f", report.InitialCapital)})
	t.AppendRow(table.Row{"Final Value", fmt.Sprintf("$%.2f", report.FinalValue)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Total Return", FormatPercent(report.TotalReturnPct)})
	t.AppendRow(table.Row{"Buy & Hold Return", FormatPercent(report.BuyHoldReturnPct)})
	t.AppendRow(table.Row{"Excess Return", FormatPercent(report.ExcessReturnPct)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Annualized Volatility", fmt.Sprintf("%.2f%%", report.VolatilityPct)})
	t.AppendRow(table.Row{"Sharpe Ratio", fmt.Sprintf("%.2f", report.SharpeRatio)})
	t.AppendRow(table.Row{"Max Drawdown", ColorRed.Sprintf("%.2f%%", report.MaxDrawdownPct)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Total Trades", report.TotalTrades})
	t.AppendRow(table.Row{"Win Rate", fmt.Sprintf("%.2f%%", report.WinRatePct)})

	return t.Render()
}

// FormatComparisonTable renders one row per pair for a sweep, best
// excess return first.
func FormatComparisonTable(rows []ComparisonRow) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{
		"Pair", "Return", "Buy & Hold", "Excess", "Sharpe", "Max DD", "Trades", "Win Rate"})

	for _, row := range rows {
		t.AppendRow(table.Row{
			fmt.Sprintf("%s/%s", row.Symbol1, row.Symbol2),
			FormatPercent(row.Report.TotalReturnPct),
			FormatPercent(row.Report.BuyHoldReturnPct),
			FormatPercent(row.Report.ExcessReturnPct),
			fmt.Sprintf("%.2f", row.Report.SharpeRatio),
			ColorRed.Sprintf("%.2f%%", row.Report.MaxDrawdownPct),
			row.Report.TotalTrades,
			fmt.Sprintf("%.1f%%", row.Report.WinRatePct),
		})
	}

	if len(rows) == 0 {
		t.AppendRow(table.Row{"No results", "", "", "", "", "", "", ""})
	}

	return t.Render()
}

// ComparisonRow pairs a report with the legs it was run on.
type ComparisonRow struct {
	Symbol1 string
	Symbol2 string
	Report  *backtest.Report
}

// FormatTradesTable renders executed trades, most recent last.
func FormatTradesTable(trades []models.Trade) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Time", "Signal", "Portfolio Value", "Cash Change"})

	for _, trade := range trades {
		t.AppendRow(table.Row{
			trade.Timestamp.Format("2006-01-02 15:04"),
			FormatSignal(trade.Signal),
			fmt.Sprintf("$%.2f", trade.PortfolioValue),
			FormatDollarAmount(trade.CashChange),
		})
	}

	if len(trades) == 0 {
		t.AppendRow(table.Row{"No trades", "", "", ""})
	}

	return t.Render()
}

// FormatState renders a saved live trading snapshot.
func FormatState(state *live.State, symbol1, symbol2 string) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Paper Trading %s / %s", symbol1, symbol2)

	t.AppendRow(table.Row{"Position", FormatSignal(state.Position)})
	t.AppendRow(table.Row{"Cash", fmt.Sprintf("$%.2f", state.Cash)})
	for symbol, units := range state.Holdings {
		t.AppendRow(table.Row{"Holding " + symbol, fmt.Sprintf("%.6f", units)})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"Total Return", FormatPercent(state.Performance.TotalReturnPct)})
	t.AppendRow(table.Row{"Max Drawdown", ColorRed.Sprintf("%.2f%%", state.Performance.MaxDrawdownPct)})
	t.AppendRow(table.Row{"Win Rate", fmt.Sprintf("%.1f%%", state.Performance.WinRatePct)})
	t.AppendRow(table.Row{"Trades", state.TradeCount})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Last Update", ColorGray.Sprint(state.Timestamp.Format(time.RFC3339))})

	return t.Render()
}

// FormatRunsTable renders recorded backtest runs, newest first.
func FormatRunsTable(runs []store.BacktestRun) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Run", "Pair", "When", "Return", "Sharpe", "Trades"})

	for _, run := range runs {
		t.AppendRow(table.Row{
			TruncateString(run.RunID, 10),
			fmt.Sprintf("%s/%s", run.Symbol1, run.Symbol2),
			run.Created.Format("2006-01-02 15:04"),
			FormatPercent(run.TotalReturnPct),
			fmt.Sprintf("%.2f", run.SharpeRatio),
			run.TotalTrades,
		})
	}

	if len(runs) == 0 {
		t.AppendRow(table.Row{"No runs recorded", "", "", "", "", ""})
	}

	return t.Render()
}

// FormatVolume formats large numbers with K/M/B suffixes.
func FormatVolume(volume float64) string {
	if volume >= 1_000_000_000 {
		return fmt.Sprintf("%.1fB", volume/1_000_000_000)
	} else if volume >= 1_000_000 {
		return fmt.Sprintf("%.1fM", volume/1_000_000)
	} else if volume >= 1_000 {
		return fmt.Sprintf("%.1fK", volume/1_000)
	}
	return fmt.Sprintf("%.0f", volume)
}

// TruncateString truncates a string to the specified length.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// FormatPair renders a pair in uppercase SYMBOL1/SYMBOL2 form.
func FormatPair(symbol1, symbol2 string) string {
	return strings.ToUpper(symbol1) + "/" + strings.ToUpper(symbol2)
}
