// Package live runs the paper trading loop: poll prices, update the
// rolling spread statistics, flip the spread position when the signal
// changes, and persist state after every tick.
package live

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cryptopairs/pairtrader/internal/backtest"
	"github.com/cryptopairs/pairtrader/internal/cache"
	"github.com/cryptopairs/pairtrader/internal/config"
	"github.com/cryptopairs/pairtrader/internal/exchange"
	"github.com/cryptopairs/pairtrader/internal/models"
	"github.com/cryptopairs/pairtrader/internal/pair"
	"github.com/cryptopairs/pairtrader/internal/portfolio"
)

const (
	// maxHistory bounds the rolling price history; the oldest sample is
	// evicted once the cap is reached.
	maxHistory = 100

	// minPortfolioValue is the floor below which sizing returns zero
	// units: trading halts rather than sizing to dust.
	minPortfolioValue = 50.0

	// tradeAllocationPct of current portfolio value is put at risk per
	// trade, split evenly between the two legs.
	tradeAllocationPct = 0.10

	// bootstrapExtra bars are fetched beyond the lookback so a few
	// incomplete or missing candles do not starve the warm-up.
	bootstrapExtra = 15

	// bootstrapTimeframe is the candle size used to warm up history.
	bootstrapTimeframe = "1m"
)

// PriceFeed is the slice of the exchange client the trader needs.
type PriceFeed interface {
	FetchTicker(ctx context.Context, symbol string) (*models.Ticker, error)
	FetchOHLCV(ctx context.Context, symbol, timeframe string, since time.Time, limit int) ([]models.PriceBar, error)
}

// Trader is the live paper trading loop for one pair. It owns its ledger
// exclusively; there is exactly one outstanding network operation at a
// time and no internal parallelism.
type Trader struct {
	symbol1    string
	symbol2    string
	lookback   int
	zThreshold float64
	interval   time.Duration
	statePath  string

	feed   PriceFeed
	cache  *cache.Cache
	ledger *portfolio.Ledger
	logger *zap.Logger

	history    map[string][]float64
	perf       Performance
	peakValue  float64
	tradeCount int
}

// NewTrader builds a trader from configuration. The cache is optional;
// when present, fresh streamed tickers save the REST call.
func NewTrader(cfg *config.Config, feed PriceFeed, dataCache *cache.Cache, logger *zap.Logger) *Trader {
	log := logger.With(zap.String("component", "live_trader"))
	return &Trader{
		symbol1:    cfg.Symbol1,
		symbol2:    cfg.Symbol2,
		lookback:   cfg.LookbackPeriod,
		zThreshold: cfg.ZThreshold,
		interval:   cfg.UpdateInterval,
		statePath:  cfg.StateFile,
		feed:       feed,
		cache:      dataCache,
		ledger:     portfolio.NewLedger(cfg.Symbol1, cfg.Symbol2, cfg.InitialCapital, log),
		logger:     log,
		history: map[string][]float64{
			cfg.Symbol1: nil,
			cfg.Symbol2: nil,
		},
	}
}

// RestoreState loads a previous snapshot from the state file. A missing
// or corrupt file is logged and leaves the trader at its defaults; it
// never crashes the process.
func (t *Trader) RestoreState() {
	state, err := LoadState(t.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.logger.Info("no previous state found, starting fresh")
		} else {
			t.logger.Error("could not load previous state, starting fresh", zap.Error(err))
		}
		return
	}

	t.ledger.Cash = state.Cash
	if state.Holdings != nil {
		for symbol, units := range state.Holdings {
			t.ledger.Holdings[symbol] = units
		}
	}
	t.ledger.Trades = state.Trades
	t.ledger.Position = state.Position
	t.perf = state.Performance
	t.tradeCount = state.TradeCount

	t.logger.Info("restored previous trading state",
		zap.Float64("cash", state.Cash),
		zap.String("position", state.Position.String()),
		zap.Int("trade_count", state.TradeCount),
		zap.Time("saved_at", state.Timestamp))
}

// Bootstrap warms the rolling history with recent 1m candles so the
// z-score is live immediately instead of after lookback ticks. Any
// failure here is non-fatal: the trader falls back to accumulating
// history tick by tick.
func (t *Trader) Bootstrap(ctx context.Context) {
	limit := t.lookback + bootstrapExtra
	for _, symbol := range []string{t.symbol1, t.symbol2} {
		bars, err := t.feed.FetchOHLCV(ctx, symbol, bootstrapTimeframe, time.Time{}, limit)
		if err != nil {
			t.logger.Warn("bootstrap fetch failed, accumulating history live",
				zap.String("symbol", symbol),
				zap.Error(err))
			continue
		}
		if len(bars) > 1 {
			// The last candle is still forming.
			bars = bars[:len(bars)-1]
		}
		closes := make([]float64, 0, len(bars))
		for _, b := range bars {
			closes = append(closes, b.Close)
		}
		if len(closes) > maxHistory {
			closes = closes[len(closes)-maxHistory:]
		}
		t.history[symbol] = closes
		t.logger.Info("bootstrapped price history",
			zap.String("symbol", symbol),
			zap.Int("samples", len(closes)))
	}
}

// Run executes the polling loop until ctx is cancelled, then performs a
// final state save. Cancellation is observed between iterations, not
// mid-fetch.
func (t *Trader) Run(ctx context.Context) error {
	t.logger.Info("starting live pair trading loop",
		zap.String("symbol1", t.symbol1),
		zap.String("symbol2", t.symbol2),
		zap.Int("lookback", t.lookback),
		zap.Float64("z_threshold", t.zThreshold),
		zap.Duration("interval", t.interval))

	t.Bootstrap(ctx)

	for {
		if ctx.Err() != nil {
			break
		}

		prices, err := t.currentPrices(ctx)
		if err != nil {
			t.logFetchFailure(err)
			if !t.sleep(ctx) {
				break
			}
			continue
		}

		t.appendHistory(prices)

		zScore := pair.RollingZScore(t.history[t.symbol1], t.history[t.symbol2], t.lookback)
		signal := pair.Classify(zScore, t.zThreshold)
		now := time.Now().UTC()

		if signal != t.ledger.Position {
			if _, ok := t.ledger.ApplyTrade(signal, prices, t.positionSizes, now); ok {
				t.tradeCount++
			}
		}

		value := t.ledger.MarkToMarket(prices)
		t.updatePerformance(value)

		if err := t.saveState(now); err != nil {
			// Losing one snapshot is acceptable; killing the session is not.
			t.logger.Error("state save failed, continuing", zap.Error(err))
		}

		t.logStatus(prices, zScore, signal, value)

		if !t.sleep(ctx) {
			break
		}
	}

	t.logger.Info("trading loop stopped, saving final state")
	if err := t.saveState(time.Now().UTC()); err != nil {
		t.logger.Error("final state save failed", zap.Error(err))
	}
	return nil
}

// currentPrices returns last prices for both legs, preferring fresh
// cached stream tickers over a REST round trip. Either leg missing makes
// the whole tick unusable.
func (t *Trader) currentPrices(ctx context.Context) (map[string]float64, error) {
	prices := make(map[string]float64, 2)
	for _, symbol := range []string{t.symbol1, t.symbol2} {
		if t.cache != nil {
			if ticker, ok := t.cache.GetTicker(symbol); ok && ticker.Last > 0 {
				prices[symbol] = ticker.Last
				continue
			}
		}
		ticker, err := t.feed.FetchTicker(ctx, symbol)
		if err != nil {
			return nil, err
		}
		prices[symbol] = ticker.Last
	}
	return prices, nil
}

func (t *Trader) logFetchFailure(err error) {
	switch {
	case exchange.IsTransient(err):
		t.logger.Warn("transient price fetch failure, retrying next tick", zap.Error(err))
	case exchange.IsNoData(err):
		t.logger.Warn("no price this tick, retrying next tick", zap.Error(err))
	default:
		t.logger.Error("price fetch failed", zap.Error(err))
	}
}

// appendHistory pushes the tick's prices onto the bounded rolling
// history, evicting the oldest sample past the cap.
func (t *Trader) appendHistory(prices map[string]float64) {
	for _, symbol := range []string{t.symbol1, t.symbol2} {
		h := append(t.history[symbol], prices[symbol])
		if len(h) > maxHistory {
			h = h[len(h)-maxHistory:]
		}
		t.history[symbol] = h
	}
}

// positionSizes implements the live sizing policy: 10% of current
// portfolio value, split evenly between the legs, at current prices.
// Below the $50 floor, or with a non-positive price, the affected leg
// sizes to zero.
func (t *Trader) positionSizes(prices map[string]float64, portfolioValue float64) map[string]float64 {
	sizes := map[string]float64{t.symbol1: 0, t.symbol2: 0}
	if len(prices) == 0 {
		return sizes
	}

	absValue := portfolioValue
	if absValue < 0 {
		absValue = -absValue
	}
	if absValue < minPortfolioValue {
		t.logger.Warn("portfolio too small to trade",
			zap.Float64("portfolio_value", portfolioValue))
		return sizes
	}

	perLeg := absValue * tradeAllocationPct / 2
	for _, symbol := range []string{t.symbol1, t.symbol2} {
		if price := prices[symbol]; price > 0 {
			sizes[symbol] = perLeg / price
		}
	}
	return sizes
}

func (t *Trader) updatePerformance(value float64) {
	initial := t.ledger.InitialCapital
	if initial != 0 {
		t.perf.TotalReturnPct = (value/initial - 1) * 100
	}
	t.perf.TotalTrades = t.tradeCount
	t.perf.WinRatePct = backtest.WinRate(t.ledger.Trades)

	if value > t.peakValue {
		t.peakValue = value
	}
	if t.peakValue > 0 {
		dd := (value - t.peakValue) / t.peakValue * 100
		if dd < t.perf.MaxDrawdownPct {
			t.perf.MaxDrawdownPct = dd
		}
	}
}

func (t *Trader) saveState(now time.Time) error {
	state := &State{
		Cash:        t.ledger.Cash,
		Holdings:    t.ledger.Holdings,
		Trades:      t.ledger.Trades,
		Performance: t.perf,
		Position:    t.ledger.Position,
		TradeCount:  t.tradeCount,
		Timestamp:   now,
	}
	return SaveState(t.statePath, state)
}

// logStatus emits the per-tick structured status line so failures are
// observable in near-real-time even though they are not fatal.
func (t *Trader) logStatus(prices map[string]float64, zScore float64, signal models.Position, value float64) {
	t.logger.Info("tick",
		zap.Float64(t.symbol1, prices[t.symbol1]),
		zap.Float64(t.symbol2, prices[t.symbol2]),
		zap.Float64("spread", pair.Spread(prices, t.symbol1, t.symbol2)),
		zap.Float64("z_score", zScore),
		zap.String("signal", signal.String()),
		zap.String("position", t.ledger.Position.String()),
		zap.Float64("portfolio_value", value),
		zap.Float64("pnl", value-t.ledger.InitialCapital),
		zap.Float64("cash", t.ledger.Cash),
		zap.Int("trades", t.tradeCount),
		zap.Int("history", len(t.history[t.symbol1])))
}

// sleep waits one interval, returning false if the context was cancelled
// while waiting.
func (t *Trader) sleep(ctx context.Context) bool {
	timer := time.NewTimer(t.interval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Ledger exposes the trader's portfolio for status reporting.
func (t *Trader) Ledger() *portfolio.Ledger { return t.ledger }

// Performance exposes the current metric snapshot.
func (t *Trader) Performance() Performance { return t.perf }
