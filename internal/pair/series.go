package pair

import (
	"sort"
	"time"

	"github.com/cryptopairs/pairtrader/internal/models"
)

// DefaultLookback is the rolling window used for ratio statistics.
const DefaultLookback = 20

// Series is the aligned join of two symbols' close prices on their common
// timestamps, with the derived ratio columns the backtester consumes. It
// is recomputed fresh per run, never persisted.
type Series struct {
	Symbol1  string
	Symbol2  string
	Lookback int

	Timestamps []time.Time
	Price1     []float64
	Price2     []float64
	Ratio      []float64
	RatioMean  []float64
	RatioStd   []float64
	ZScore     []float64
}

// BuildSeries aligns the two bar slices on common timestamps and computes
// the price ratio with rolling mean, population standard deviation, and
// z-score over the lookback window. Input ordering does not matter; the
// store returns bars newest-first and this re-sorts ascending. ZScore is
// 0 for the first lookback-1 rows and wherever the rolling deviation is
// zero.
func BuildSeries(bars1, bars2 []models.PriceBar, lookback int) *Series {
	if lookback < 1 {
		lookback = DefaultLookback
	}

	closes2 := make(map[time.Time]float64, len(bars2))
	for _, b := range bars2 {
		closes2[b.Timestamp.UTC()] = b.Close
	}

	type row struct {
		ts     time.Time
		p1, p2 float64
	}
	rows := make([]row, 0, len(bars1))
	for _, b := range bars1 {
		ts := b.Timestamp.UTC()
		if p2, ok := closes2[ts]; ok {
			rows = append(rows, row{ts: ts, p1: b.Close, p2: p2})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	s := &Series{Lookback: lookback}
	if len(bars1) > 0 {
		s.Symbol1 = bars1[0].Symbol
	}
	if len(bars2) > 0 {
		s.Symbol2 = bars2[0].Symbol
	}

	n := len(rows)
	s.Timestamps = make([]time.Time, n)
	s.Price1 = make([]float64, n)
	s.Price2 = make([]float64, n)
	s.Ratio = make([]float64, n)
	s.RatioMean = make([]float64, n)
	s.RatioStd = make([]float64, n)
	s.ZScore = make([]float64, n)

	for i, r := range rows {
		s.Timestamps[i] = r.ts
		s.Price1[i] = r.p1
		s.Price2[i] = r.p2
		if r.p2 != 0 {
			s.Ratio[i] = r.p1 / r.p2
		}
	}

	for i := lookback - 1; i < n; i++ {
		window := s.Ratio[i-lookback+1 : i+1]
		mean, std := meanStd(window)
		s.RatioMean[i] = mean
		s.RatioStd[i] = std
		if std != 0 {
			s.ZScore[i] = (s.Ratio[i] - mean) / std
		}
	}

	return s
}

// Len reports the number of aligned rows.
func (s *Series) Len() int { return len(s.Timestamps) }
