package backtest

import (
	"math"

	"github.com/cryptopairs/pairtrader/internal/models"
)

// Report is the flat per-run record exposed to reporting and comparison
// tooling. The field names are a contract; renaming them breaks the
// sweep and comparison consumers.
type Report struct {
	InitialCapital   float64 `json:"initial_capital"`
	FinalValue       float64 `json:"final_value"`
	TotalReturnPct   float64 `json:"total_return_pct"`
	BuyHoldReturnPct float64 `json:"buy_hold_return_pct"`
	ExcessReturnPct  float64 `json:"excess_return_pct"`
	VolatilityPct    float64 `json:"volatility_pct"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdownPct   float64 `json:"max_drawdown_pct"`
	TotalTrades      int     `json:"total_trades"`
	WinRatePct       float64 `json:"win_rate_pct"`
}

// Analyze derives the performance report from a run result. Degenerate
// inputs produce defined zeros, never NaN or Inf: zero volatility yields
// a zero Sharpe, fewer than two trades yield a zero win rate.
func Analyze(result *Result) (Report, error) {
	if result == nil || len(result.PortfolioValues) == 0 {
		return Report{}, ErrNoData
	}

	values := result.PortfolioValues
	initial := result.InitialCapital
	final := values[len(values)-1].Value

	report := Report{
		InitialCapital: initial,
		FinalValue:     final,
		TotalTrades:    len(result.Trades),
	}
	if initial != 0 {
		report.TotalReturnPct = (final - initial) / initial * 100
	}

	report.BuyHoldReturnPct = buyHoldReturn(values)
	report.ExcessReturnPct = report.TotalReturnPct - report.BuyHoldReturnPct

	periodsPerYear, err := models.PeriodsPerYear(result.Timeframe)
	if err != nil {
		return Report{}, err
	}
	report.VolatilityPct = annualizedVolatility(values, periodsPerYear)
	if report.VolatilityPct > 0 {
		report.SharpeRatio = report.TotalReturnPct / report.VolatilityPct
	}
	report.MaxDrawdownPct = maxDrawdown(values)
	report.WinRatePct = WinRate(result.Trades)

	return report, nil
}

// buyHoldReturn is the equal-weight average of each leg's own return
// over the run, independent of the strategy.
func buyHoldReturn(values []ValuePoint) float64 {
	first, last := values[0], values[len(values)-1]
	var r1, r2 float64
	if first.Price1 != 0 {
		r1 = (last.Price1 - first.Price1) / first.Price1 * 100
	}
	if first.Price2 != 0 {
		r2 = (last.Price2 - first.Price2) / first.Price2 * 100
	}
	return (r1 + r2) / 2
}

// annualizedVolatility is the sample standard deviation of
// period-over-period returns scaled by sqrt(periods per year), as a
// percentage.
func annualizedVolatility(values []ValuePoint, periodsPerYear float64) float64 {
	var returns []float64
	for i := 1; i < len(values); i++ {
		prev := values[i-1].Value
		if prev == 0 {
			continue
		}
		returns = append(returns, (values[i].Value-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var sumSq float64
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(len(returns)-1))
	return std * math.Sqrt(periodsPerYear) * 100
}

// maxDrawdown is the largest peak-to-trough decline of the value series
// as a (negative) percentage.
func maxDrawdown(values []ValuePoint) float64 {
	var peak, worst float64
	for _, v := range values {
		if v.Value > peak {
			peak = v.Value
		}
		if peak > 0 {
			dd := (v.Value - peak) / peak * 100
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// WinRate is the percentage of consecutive trade-log entries whose
// portfolio value increased. With fewer than two trades it is 0 by
// definition.
func WinRate(trades []models.Trade) float64 {
	if len(trades) < 2 {
		return 0
	}
	wins := 0
	for i := 1; i < len(trades); i++ {
		if trades[i].PortfolioValue > trades[i-1].PortfolioValue {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)-1) * 100
}
