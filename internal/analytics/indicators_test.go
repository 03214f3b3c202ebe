package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/cryptopairs/pairtrader/internal/models"
)

func barsFrom(closes []float64) []models.PriceBar {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Symbol:    "ADAUSDT",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Close:     c,
			Timeframe: "1h",
		}
	}
	return bars
}

func TestSMA(t *testing.T) {
	bars := barsFrom([]float64{1, 2, 3, 4, 5})

	got, err := SMA(bars, 3)
	if err != nil {
		t.Fatalf("SMA() error: %v", err)
	}
	if got != 4 {
		t.Errorf("SMA() = %v, want 4 (mean of last three closes)", got)
	}

	if _, err := SMA(bars, 6); err == nil {
		t.Error("SMA() should fail with too few bars")
	}
	if _, err := SMA(bars, 0); err == nil {
		t.Error("SMA() should reject a non-positive period")
	}
}

func TestEMA(t *testing.T) {
	bars := barsFrom([]float64{10, 10, 10, 10, 10})

	got, err := EMA(bars, 3)
	if err != nil {
		t.Fatalf("EMA() error: %v", err)
	}
	if got != 10 {
		t.Errorf("EMA() of a constant series = %v, want 10", got)
	}

	// A rising series pulls the EMA above the SMA seed.
	rising, err := EMA(barsFrom([]float64{1, 2, 3, 10, 20}), 3)
	if err != nil {
		t.Fatalf("EMA() error: %v", err)
	}
	if rising <= 2 {
		t.Errorf("EMA() = %v, want above the 3-bar seed", rising)
	}
}

func TestRSI(t *testing.T) {
	// Monotone rise: no losses, RSI saturates at 100.
	up, err := RSI(barsFrom([]float64{1, 2, 3, 4, 5, 6}), 5)
	if err != nil {
		t.Fatalf("RSI() error: %v", err)
	}
	if up != 100 {
		t.Errorf("RSI() of all gains = %v, want 100", up)
	}

	// Monotone fall: no gains, RSI bottoms at 0.
	down, err := RSI(barsFrom([]float64{6, 5, 4, 3, 2, 1}), 5)
	if err != nil {
		t.Fatalf("RSI() error: %v", err)
	}
	if down != 0 {
		t.Errorf("RSI() of all losses = %v, want 0", down)
	}

	// Flat: no movement reads neutral.
	flat, err := RSI(barsFrom([]float64{5, 5, 5, 5, 5, 5}), 5)
	if err != nil {
		t.Fatalf("RSI() error: %v", err)
	}
	if flat != 50 {
		t.Errorf("RSI() of a flat series = %v, want 50", flat)
	}

	if _, err := RSI(barsFrom([]float64{1, 2}), 5); err == nil {
		t.Error("RSI() should fail with too few bars")
	}
}

func TestBollinger(t *testing.T) {
	bands, err := Bollinger(barsFrom([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 8, 2)
	if err != nil {
		t.Fatalf("Bollinger() error: %v", err)
	}

	// Classic population-std example: mean 5, std 2.
	if bands.Middle != 5 {
		t.Errorf("Middle = %v, want 5", bands.Middle)
	}
	if math.Abs(bands.Upper-9) > 1e-12 || math.Abs(bands.Lower-1) > 1e-12 {
		t.Errorf("Bands = %v/%v, want 1/9", bands.Lower, bands.Upper)
	}
}

func TestCorrelation(t *testing.T) {
	x := barsFrom([]float64{1, 2, 3, 4, 5})

	perfect, err := Correlation(x, barsFrom([]float64{10, 20, 30, 40, 50}))
	if err != nil {
		t.Fatalf("Correlation() error: %v", err)
	}
	if math.Abs(perfect-1) > 1e-12 {
		t.Errorf("Correlation() = %v, want 1 for a scaled copy", perfect)
	}

	inverse, err := Correlation(x, barsFrom([]float64{5, 4, 3, 2, 1}))
	if err != nil {
		t.Fatalf("Correlation() error: %v", err)
	}
	if math.Abs(inverse+1) > 1e-12 {
		t.Errorf("Correlation() = %v, want -1 for a reversed copy", inverse)
	}

	flat, err := Correlation(x, barsFrom([]float64{3, 3, 3, 3, 3}))
	if err != nil {
		t.Fatalf("Correlation() error: %v", err)
	}
	if flat != 0 {
		t.Errorf("Correlation() with a flat leg = %v, want 0", flat)
	}

	if _, err := Correlation(x, barsFrom([]float64{1})); err == nil {
		t.Error("Correlation() should fail with fewer than two overlapping bars")
	}
}
