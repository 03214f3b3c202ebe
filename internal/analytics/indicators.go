// Package analytics provides technical indicators computed over stored
// price bars, used by the pair analysis tooling alongside the spread
// statistics.
package analytics

import (
	"fmt"
	"math"

	"github.com/cryptopairs/pairtrader/internal/models"
)

// SMA calculates the Simple Moving Average of closes for the given
// period over the most recent bars.
func SMA(bars []models.PriceBar, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) < period {
		return 0, fmt.Errorf("not enough bars: need %d, got %d", period, len(bars))
	}

	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += bars[i].Close
	}
	return sum / float64(period), nil
}

// EMA calculates the Exponential Moving Average of closes for the given
// period, seeded with the SMA of the first period bars.
func EMA(bars []models.PriceBar, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) < period {
		return 0, fmt.Errorf("not enough bars: need %d, got %d", period, len(bars))
	}

	multiplier := 2.0 / float64(period+1)

	sma := 0.0
	for i := 0; i < period; i++ {
		sma += bars[i].Close
	}
	ema := sma / float64(period)

	for i := period; i < len(bars); i++ {
		ema = (bars[i].Close-ema)*multiplier + ema
	}
	return ema, nil
}

// RSI calculates the Relative Strength Index over the most recent bars
// using Wilder's smoothing. With no losses the index saturates at 100,
// with no movement at all it reads 50.
func RSI(bars []models.PriceBar, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) < period+1 {
		return 0, fmt.Errorf("not enough bars: need %d, got %d", period+1, len(bars))
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0, nil
		}
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}

// Bands holds a Bollinger band snapshot around the period SMA.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger calculates Bollinger bands at width standard deviations
// around the period SMA of the most recent bars. The deviation is the
// population standard deviation of the window.
func Bollinger(bars []models.PriceBar, period int, width float64) (Bands, error) {
	middle, err := SMA(bars, period)
	if err != nil {
		return Bands{}, err
	}

	variance := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		d := bars[i].Close - middle
		variance += d * d
	}
	std := math.Sqrt(variance / float64(period))

	return Bands{
		Upper:  middle + width*std,
		Middle: middle,
		Lower:  middle - width*std,
	}, nil
}

// Correlation calculates the Pearson correlation of the closes of two
// aligned bar series over their overlapping tail. It needs at least two
// samples; flat series correlate as zero.
func Correlation(bars1, bars2 []models.PriceBar) (float64, error) {
	n := len(bars1)
	if len(bars2) < n {
		n = len(bars2)
	}
	if n < 2 {
		return 0, fmt.Errorf("not enough overlapping bars: got %d", n)
	}

	x := bars1[len(bars1)-n:]
	y := bars2[len(bars2)-n:]

	meanX, meanY := 0.0, 0.0
	for i := 0; i < n; i++ {
		meanX += x[i].Close
		meanY += y[i].Close
	}
	meanX /= float64(n)
	meanY /= float64(n)

	cov, varX, varY := 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		dx := x[i].Close - meanX
		dy := y[i].Close - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, nil
	}
	return cov / math.Sqrt(varX*varY), nil
}
