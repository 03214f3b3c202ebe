// Package backtest replays a historical pair series through the spread
// signal and a fixed-fraction rebalancing policy, then derives the
// performance report.
package backtest

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cryptopairs/pairtrader/internal/models"
	"github.com/cryptopairs/pairtrader/internal/pair"
	"github.com/cryptopairs/pairtrader/internal/portfolio"
)

// ErrNoData is returned when the two symbols have no overlapping bars.
var ErrNoData = errors.New("no overlapping price data for pair")

// Backtester holds the strategy parameters for one run.
//
// Its sizing policy differs from the live trader on purpose: at bar zero
// it invests half the capital in each leg and every subsequent signal
// moves a fraction of the selling leg into the other leg. It never takes
// a signed short position. The live trader flips between signed spread
// positions instead; the two policies are separate strategies, not
// variants of one.
type Backtester struct {
	Symbol1        string
	Symbol2        string
	Timeframe      string
	InitialCapital float64
	Lookback       int
	ZThreshold     float64
	TradeSizePct   float64

	logger *zap.Logger
}

// ValuePoint is one row of the portfolio value series.
type ValuePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	ZScore    float64   `json:"z_score"`
	Price1    float64   `json:"price1"`
	Price2    float64   `json:"price2"`
}

// Result carries the raw outcome of a run, ready for Analyze.
type Result struct {
	Symbol1         string
	Symbol2         string
	Timeframe       string
	InitialCapital  float64
	PortfolioValues []ValuePoint
	Trades          []models.Trade
}

// New creates a backtester with the given parameters.
func New(symbol1, symbol2, timeframe string, initialCapital float64, lookback int, zThreshold, tradeSizePct float64, logger *zap.Logger) *Backtester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backtester{
		Symbol1:        symbol1,
		Symbol2:        symbol2,
		Timeframe:      timeframe,
		InitialCapital: initialCapital,
		Lookback:       lookback,
		ZThreshold:     zThreshold,
		TradeSizePct:   tradeSizePct,
		logger:         logger.With(zap.String("component", "backtest")),
	}
}

// Run aligns the two bar series and replays them through the strategy.
// It fails with ErrNoData when the series do not overlap; an empty
// backtest must never masquerade as a flat one.
func (b *Backtester) Run(bars1, bars2 []models.PriceBar) (*Result, error) {
	series := pair.BuildSeries(bars1, bars2, b.Lookback)
	if series.Len() == 0 {
		return nil, ErrNoData
	}

	ledger := portfolio.NewLedger(b.Symbol1, b.Symbol2, b.InitialCapital, b.logger)
	ledger.InvestEqualSplit(map[string]float64{
		b.Symbol1: series.Price1[0],
		b.Symbol2: series.Price2[0],
	}, b.InitialCapital)

	result := &Result{
		Symbol1:         b.Symbol1,
		Symbol2:         b.Symbol2,
		Timeframe:       b.Timeframe,
		InitialCapital:  b.InitialCapital,
		PortfolioValues: make([]ValuePoint, 0, series.Len()),
	}

	prevSignal := models.Neutral
	for i := 0; i < series.Len(); i++ {
		prices := map[string]float64{
			b.Symbol1: series.Price1[i],
			b.Symbol2: series.Price2[i],
		}
		z := series.ZScore[i]

		result.PortfolioValues = append(result.PortfolioValues, ValuePoint{
			Timestamp: series.Timestamps[i],
			Value:     ledger.MarkToMarket(prices),
			ZScore:    z,
			Price1:    series.Price1[i],
			Price2:    series.Price2[i],
		})

		// Let the rolling statistics stabilize before trading. A zero
		// z-score is the no-signal sentinel (short history or constant
		// ratio) and never trades.
		if i < b.Lookback || z == 0 {
			continue
		}

		signal := pair.Classify(z, b.ZThreshold)
		if signal == prevSignal {
			continue
		}
		prevSignal = signal
		if signal == models.Neutral {
			continue
		}

		// Ratio rich: the first leg is overpriced, shift weight into the
		// second. Ratio cheap: the mirror move.
		var from, to string
		if signal == models.ShortSpread {
			from, to = b.Symbol1, b.Symbol2
		} else {
			from, to = b.Symbol2, b.Symbol1
		}
		if trade, ok := ledger.Rebalance(from, to, b.TradeSizePct, prices, signal, series.Timestamps[i]); ok {
			b.logger.Debug("rebalance trade",
				zap.Time("timestamp", trade.Timestamp),
				zap.String("signal", signal.String()),
				zap.Float64("z_score", z))
		}
	}

	result.Trades = ledger.Trades
	b.logger.Info("backtest complete",
		zap.Int("bars", series.Len()),
		zap.Int("trades", len(result.Trades)))
	return result, nil
}
