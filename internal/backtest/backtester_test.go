package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptopairs/pairtrader/internal/models"
)

func hourlyBars(symbol string, start time.Time, closes []float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Timeframe: "1h",
		}
	}
	return bars
}

func TestRunNoOverlap(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars1 := hourlyBars("ADAUSDT", start, []float64{1, 2, 3})
	bars2 := hourlyBars("BNBUSDT", start.AddDate(0, 1, 0), []float64{1, 2, 3})

	bt := New("ADAUSDT", "BNBUSDT", "1h", 1000, 20, 2.0, 0.25, nil)
	_, err := bt.Run(bars1, bars2)
	require.ErrorIs(t, err, ErrNoData)
}

func TestRunFlatRatioNeverTrades(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 2.0
	}

	bt := New("ADAUSDT", "BNBUSDT", "1h", 1000, 20, 2.0, 0.25, nil)
	result, err := bt.Run(
		hourlyBars("ADAUSDT", start, closes),
		hourlyBars("BNBUSDT", start, closes),
	)
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Len(t, result.PortfolioValues, 40)
	for _, vp := range result.PortfolioValues {
		// With constant prices the initial 50/50 allocation just sits there.
		assert.InDelta(t, 1000.0, vp.Value, 1e-9)
	}
}

// A flat stretch followed by a sustained jump in one leg triggers exactly
// one rebalance: the signal change trades, the persisting signal does not.
func TestRunTradesOnSignalChangeOnly(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	closes1 := make([]float64, 30)
	closes2 := make([]float64, 30)
	for i := range closes1 {
		closes1[i] = 1.0 + 0.001*float64(i%3)
		closes2[i] = 10.0
	}
	for i := 24; i < 30; i++ {
		closes1[i] = 1.5
	}

	bt := New("ADAUSDT", "BNBUSDT", "1h", 1000, 20, 2.0, 0.25, nil)
	result, err := bt.Run(
		hourlyBars("ADAUSDT", start, closes1),
		hourlyBars("BNBUSDT", start, closes2),
	)
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, models.ShortSpread, trade.Signal)
	assert.Equal(t, start.Add(24*time.Hour), trade.Timestamp)
	assert.Zero(t, trade.CashChange)

	// The rebalance sold a quarter of the rich leg.
	assert.Greater(t, trade.Holdings["BNBUSDT"], 0.0)
	assert.Greater(t, trade.Holdings["ADAUSDT"], 0.0, "backtest policy never shorts")
}

func TestRunWarmupNeverTrades(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// Wild ratio moves, but fewer bars than the lookback window.
	closes1 := []float64{1, 5, 0.2, 8, 1, 5, 0.1, 9, 2, 6}
	closes2 := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

	bt := New("ADAUSDT", "BNBUSDT", "1h", 1000, 20, 2.0, 0.25, nil)
	result, err := bt.Run(
		hourlyBars("ADAUSDT", start, closes1),
		hourlyBars("BNBUSDT", start, closes2),
	)
	require.NoError(t, err)
	assert.Empty(t, result.Trades)
}
