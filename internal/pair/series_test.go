package pair

import (
	"math"
	"testing"
	"time"

	"github.com/cryptopairs/pairtrader/internal/models"
)

func barsAt(symbol string, start time.Time, step time.Duration, closes []float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * step),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Timeframe: "1h",
		}
	}
	return bars
}

func TestBuildSeriesAlignsOnCommonTimestamps(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	bars1 := barsAt("ADAUSDT", start, time.Hour, []float64{1, 2, 3, 4, 5})
	// Second leg is missing the middle hour.
	bars2 := barsAt("BNBUSDT", start, time.Hour, []float64{10, 20, 30, 40, 50})
	bars2 = append(bars2[:2], bars2[3:]...)

	s := BuildSeries(bars1, bars2, 2)
	if s.Len() != 4 {
		t.Fatalf("Len() = %d, want 4 aligned rows", s.Len())
	}
	for i, ts := range s.Timestamps {
		if ts.Equal(start.Add(2 * time.Hour)) {
			t.Errorf("row %d kept the unmatched timestamp %v", i, ts)
		}
	}
	// Ratio is p1/p2 on each surviving row.
	for i := range s.Ratio {
		want := s.Price1[i] / s.Price2[i]
		if math.Abs(s.Ratio[i]-want) > 1e-12 {
			t.Errorf("Ratio[%d] = %v, want %v", i, s.Ratio[i], want)
		}
	}
}

func TestBuildSeriesSortsDescendingInput(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars1 := barsAt("ADAUSDT", start, time.Hour, []float64{1, 2, 3})
	bars2 := barsAt("BNBUSDT", start, time.Hour, []float64{1, 1, 1})

	// Newest-first, the order the store hands out.
	rev1 := []models.PriceBar{bars1[2], bars1[1], bars1[0]}
	rev2 := []models.PriceBar{bars2[2], bars2[1], bars2[0]}

	s := BuildSeries(rev1, rev2, 2)
	for i := 1; i < s.Len(); i++ {
		if !s.Timestamps[i].After(s.Timestamps[i-1]) {
			t.Fatalf("timestamps not ascending at row %d: %v then %v",
				i, s.Timestamps[i-1], s.Timestamps[i])
		}
	}
	if s.Price1[0] != 1 || s.Price1[2] != 3 {
		t.Errorf("prices not re-sorted: %v", s.Price1)
	}
}

func TestBuildSeriesZScoreWarmupAndFlat(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 2.0
	}
	bars1 := barsAt("ADAUSDT", start, time.Hour, closes)
	bars2 := barsAt("BNBUSDT", start, time.Hour, closes)

	s := BuildSeries(bars1, bars2, 20)
	for i, z := range s.ZScore {
		if z != 0 {
			t.Errorf("ZScore[%d] = %v, want 0 for a flat ratio", i, z)
		}
	}
}

// A flat stretch followed by a jump in one leg must put the z-score at
// the jump well beyond any reasonable threshold.
func TestBuildSeriesDetectsRatioJump(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	closes1 := make([]float64, 25)
	closes2 := make([]float64, 25)
	for i := range closes1 {
		closes1[i] = 1.0 + 0.001*float64(i%3) // tiny noise so the std is non-zero
		closes2[i] = 10.0
	}
	closes1[24] = 1.5 // the first leg spikes

	s := BuildSeries(
		barsAt("ADAUSDT", start, time.Hour, closes1),
		barsAt("BNBUSDT", start, time.Hour, closes2),
		20,
	)

	z := s.ZScore[s.Len()-1]
	if z < 2.0 {
		t.Fatalf("ZScore at jump = %v, want > 2.0", z)
	}
	if Classify(z, 2.0) != models.ShortSpread {
		t.Errorf("Classify(%v, 2.0) = %v, want ShortSpread", z, Classify(z, 2.0))
	}
}
