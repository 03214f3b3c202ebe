// Package portfolio tracks cash, per-symbol unit holdings, and the trade
// log for one pair trading session. A Ledger is owned by exactly one
// backtest or live trader instance; it is never shared across control
// flows and therefore carries no locking.
package portfolio

import (
	"time"

	"go.uber.org/zap"

	"github.com/cryptopairs/pairtrader/internal/models"
)

// Sizer computes unit allocations per symbol for a new position, given
// current prices and the portfolio value after closing any prior
// position. Returning zeros for both legs means "do not trade".
type Sizer func(prices map[string]float64, portfolioValue float64) map[string]float64

// Ledger is the mutable portfolio state. The invariant
// MarkToMarket(p) == Cash + sum(Holdings[s]*p[s]) holds before and after
// every operation; fills happen at the observed close with no slippage.
type Ledger struct {
	Symbol1        string
	Symbol2        string
	InitialCapital float64
	Cash           float64
	Holdings       map[string]float64
	Trades         []models.Trade
	Position       models.Position

	logger *zap.Logger
}

// NewLedger creates a ledger holding the full initial capital in cash.
func NewLedger(symbol1, symbol2 string, initialCapital float64, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		Symbol1:        symbol1,
		Symbol2:        symbol2,
		InitialCapital: initialCapital,
		Cash:           initialCapital,
		Holdings:       map[string]float64{symbol1: 0, symbol2: 0},
		Position:       models.Neutral,
		logger:         logger.With(zap.String("component", "portfolio")),
	}
}

// MarkToMarket values the portfolio at the given prices without mutating
// anything. A held symbol with no price contributes zero and is logged,
// so a single missing quote can never push NaN into a report.
func (l *Ledger) MarkToMarket(prices map[string]float64) float64 {
	total := l.Cash
	for symbol, units := range l.Holdings {
		if units == 0 {
			continue
		}
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			l.logger.Warn("no price for held symbol, valuing leg at zero",
				zap.String("symbol", symbol),
				zap.Float64("units", units))
			continue
		}
		total += units * price
	}
	return total
}

// InvestEqualSplit spends half the given capital on each leg at current
// prices, establishing the backtester's baseline long-long position. A
// non-positive price leaves that leg empty.
func (l *Ledger) InvestEqualSplit(prices map[string]float64, capital float64) {
	half := capital / 2
	for _, symbol := range []string{l.Symbol1, l.Symbol2} {
		price := prices[symbol]
		if price <= 0 {
			l.logger.Warn("skipping initial allocation, non-positive price",
				zap.String("symbol", symbol))
			continue
		}
		units := half / price
		l.Holdings[symbol] += units
		l.Cash -= units * price
	}
	l.logger.Info("initial position established",
		zap.Float64(l.Symbol1+"_units", l.Holdings[l.Symbol1]),
		zap.Float64(l.Symbol2+"_units", l.Holdings[l.Symbol2]),
		zap.Float64("cash", l.Cash))
}

// ApplyTrade flips the portfolio to the signalled spread position: it
// liquidates any existing position at current prices, sizes the new legs
// with the supplied Sizer, and mutates cash and holdings atomically. The
// returned bool is false when no trade happened (neutral signal or zero
// sizing). A LongSpread buys symbol1 and shorts symbol2; ShortSpread is
// the mirror image.
func (l *Ledger) ApplyTrade(signal models.Position, prices map[string]float64, size Sizer, now time.Time) (models.Trade, bool) {
	if signal == models.Neutral {
		return models.Trade{}, false
	}

	if l.Position != models.Neutral {
		l.CloseAll(prices)
	}

	value := l.MarkToMarket(prices)
	sizes := size(prices, value)
	if sizes[l.Symbol1] == 0 && sizes[l.Symbol2] == 0 {
		l.logger.Info("position sizes are zero, skipping trade",
			zap.Float64("portfolio_value", value))
		return models.Trade{}, false
	}

	cost1 := sizes[l.Symbol1] * prices[l.Symbol1]
	cost2 := sizes[l.Symbol2] * prices[l.Symbol2]

	var cashChange float64
	if signal == models.LongSpread {
		l.Holdings[l.Symbol1] = sizes[l.Symbol1]
		l.Holdings[l.Symbol2] = -sizes[l.Symbol2]
		cashChange = -cost1 + cost2
	} else {
		l.Holdings[l.Symbol1] = -sizes[l.Symbol1]
		l.Holdings[l.Symbol2] = sizes[l.Symbol2]
		cashChange = cost1 - cost2
	}
	l.Cash += cashChange
	l.Position = signal

	trade := models.Trade{
		Timestamp:      now,
		Signal:         signal,
		Prices:         copyMap(prices),
		Holdings:       copyMap(l.Holdings),
		PortfolioValue: l.MarkToMarket(prices),
		CashChange:     cashChange,
	}
	l.Trades = append(l.Trades, trade)

	l.logger.Info("trade executed",
		zap.String("signal", signal.String()),
		zap.Float64("cash_change", cashChange),
		zap.Float64("portfolio_value", trade.PortfolioValue))
	return trade, true
}

// Rebalance moves fraction of the currently held units of the from leg
// into the to leg at current prices. Net cash change is zero; only the
// weight between the two simultaneously held legs shifts. Used by the
// backtest sizing policy, which never takes a signed short.
func (l *Ledger) Rebalance(from, to string, fraction float64, prices map[string]float64, signal models.Position, now time.Time) (models.Trade, bool) {
	fromPrice, toPrice := prices[from], prices[to]
	if fromPrice <= 0 || toPrice <= 0 {
		l.logger.Warn("rebalance skipped, non-positive price",
			zap.Float64("from_price", fromPrice),
			zap.Float64("to_price", toPrice))
		return models.Trade{}, false
	}

	units := l.Holdings[from] * fraction
	if units <= 0 {
		return models.Trade{}, false
	}

	preValue := l.MarkToMarket(prices)

	// Sell the from leg, buy the to leg with the proceeds.
	l.Holdings[from] -= units
	l.Cash += units * fromPrice
	bought := units * fromPrice / toPrice
	l.Holdings[to] += bought
	l.Cash -= bought * toPrice
	l.Position = signal

	trade := models.Trade{
		Timestamp:      now,
		Signal:         signal,
		Prices:         copyMap(prices),
		Holdings:       copyMap(l.Holdings),
		PortfolioValue: preValue,
		CashChange:     0,
	}
	l.Trades = append(l.Trades, trade)
	return trade, true
}

// CloseAll liquidates every holding into cash at current prices and
// resets the signal state to neutral. With an empty price map it logs a
// no-op and leaves cash untouched.
func (l *Ledger) CloseAll(prices map[string]float64) {
	if len(prices) == 0 {
		l.logger.Warn("close requested with no prices, leaving holdings in place")
		return
	}

	var recovered float64
	for symbol, units := range l.Holdings {
		if units == 0 {
			continue
		}
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			l.logger.Warn("no price for held symbol at close, dropping leg value",
				zap.String("symbol", symbol),
				zap.Float64("units", units))
			continue
		}
		recovered += units * price
	}
	l.Cash += recovered
	for symbol := range l.Holdings {
		l.Holdings[symbol] = 0
	}
	l.Position = models.Neutral

	l.logger.Info("all positions closed", zap.Float64("cash_recovered", recovered))
}

func copyMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
