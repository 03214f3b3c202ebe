package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptopairs/pairtrader/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testBar(symbol string, ts time.Time, close float64) models.PriceBar {
	return models.PriceBar{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      close - 0.01,
		High:      close + 0.02,
		Low:       close - 0.02,
		Close:     close,
		Volume:    1234.5,
		Timeframe: "1h",
	}
}

func TestUpsertBarIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertBar(ctx, testBar("ADAUSDT", ts, 0.50)))
	// Same key again with a refreshed close.
	require.NoError(t, s.UpsertBar(ctx, testBar("ADAUSDT", ts, 0.55)))

	bars, err := s.LoadBars(ctx, "ADAUSDT", "1h", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 0.55, bars[0].Close)
}

func TestUpsertBarsBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	var bars []models.PriceBar
	for i := 0; i < 10; i++ {
		bars = append(bars, testBar("ADAUSDT", start.Add(time.Duration(i)*time.Hour), 0.5+float64(i)*0.01))
	}
	require.NoError(t, s.UpsertBars(ctx, bars))

	// Overlapping re-collection must not duplicate rows.
	require.NoError(t, s.UpsertBars(ctx, bars[5:]))

	first, last, count, err := s.DataRange(ctx, "ADAUSDT", "1h")
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	assert.True(t, first.Equal(start))
	assert.True(t, last.Equal(start.Add(9*time.Hour)))
}

func TestDataRangeBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)

	// MIN/MAX over the timestamp column come back as text; the range
	// must survive the round trip through the driver.
	for _, ts := range []time.Time{last, first, first.Add(6 * time.Hour)} {
		require.NoError(t, s.UpsertBar(ctx, testBar("BNBUSDT", ts, 550)))
	}

	gotFirst, gotLast, count, err := s.DataRange(ctx, "BNBUSDT", "1h")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.True(t, gotFirst.Equal(first), "first = %s", gotFirst)
	assert.True(t, gotLast.Equal(last), "last = %s", gotLast)
}

func TestLoadBarsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.UpsertBar(ctx, testBar("ADAUSDT", start.Add(time.Duration(i)*time.Hour), 0.5)))
	}

	bars, err := s.LoadBars(ctx, "ADAUSDT", "1h", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, bars, 5)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Timestamp.Before(bars[i-1].Timestamp),
			"bars must come back newest first")
	}
}

func TestLoadBarsRangeAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 24; i++ {
		require.NoError(t, s.UpsertBar(ctx, testBar("ADAUSDT", start.Add(time.Duration(i)*time.Hour), 0.5)))
	}

	bars, err := s.LoadBars(ctx, "ADAUSDT", "1h",
		start.Add(5*time.Hour), start.Add(10*time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, bars, 6, "range bounds are inclusive")

	bars, err = s.LoadBars(ctx, "ADAUSDT", "1h", time.Time{}, time.Time{}, 3)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.True(t, bars[0].Timestamp.Equal(start.Add(23*time.Hour)),
		"limit keeps the newest bars")
}

func TestLoadBarsSeparatesTimeframes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	hourly := testBar("ADAUSDT", ts, 0.50)
	daily := testBar("ADAUSDT", ts, 0.60)
	daily.Timeframe = "1d"

	require.NoError(t, s.UpsertBar(ctx, hourly))
	require.NoError(t, s.UpsertBar(ctx, daily))

	bars, err := s.LoadBars(ctx, "ADAUSDT", "1d", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 0.60, bars[0].Close)
}

func TestMissingBars(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// Hours 0,1,2 then 5,6: hours 3 and 4 are holes.
	for _, h := range []int{0, 1, 2, 5, 6} {
		require.NoError(t, s.UpsertBar(ctx, testBar("ADAUSDT", start.Add(time.Duration(h)*time.Hour), 0.5)))
	}

	missing, err := s.MissingBars(ctx, "ADAUSDT", "1h")
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.True(t, missing[0].Equal(start.Add(3*time.Hour)))
	assert.True(t, missing[1].Equal(start.Add(4*time.Hour)))
}

func TestDataRangeEmpty(t *testing.T) {
	s := newTestStore(t)

	first, last, count, err := s.DataRange(context.Background(), "NOPE", "1h")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, first.IsZero())
	assert.True(t, last.IsZero())
}

func TestBacktestRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := BacktestRun{
		Symbol1:        "ADAUSDT",
		Symbol2:        "BNBUSDT",
		Timeframe:      "1h",
		Lookback:       20,
		ZThreshold:     2.0,
		TradeSizePct:   0.25,
		Start:          time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: 1000,
		FinalValue:     1042,
		TotalReturnPct: 4.2,
		SharpeRatio:    0.9,
		TotalTrades:    7,
	}

	for i := 0; i < 3; i++ {
		run := base
		run.RunID = NewRunID()
		run.Created = time.Date(2024, 3, 1, i, 0, 0, 0, time.UTC)
		run.TotalTrades = 7 + i
		require.NoError(t, s.RecordBacktestRun(ctx, run))
	}

	runs, err := s.ListBacktestRuns(ctx, "ADAUSDT", "BNBUSDT", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 9, runs[0].TotalTrades, "newest run first")
	assert.Equal(t, 4.2, runs[0].TotalReturnPct)

	// No filter lists everything.
	all, err := s.ListBacktestRuns(ctx, "", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Filtering on another pair finds nothing.
	none, err := s.ListBacktestRuns(ctx, "ETHUSDT", "BTCUSDT", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewRunIDUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		id := NewRunID()
		require.Len(t, id, 26)
		_, dup := seen[id]
		require.False(t, dup, "run IDs must be unique")
		seen[id] = struct{}{}
	}
}
