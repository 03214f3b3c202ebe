// Package pair holds the statistical core of the pair trading strategy:
// log-price spreads, rolling z-scores, and the threshold signal rule.
package pair

import (
	"math"

	"github.com/cryptopairs/pairtrader/internal/models"
)

// Spread returns the log-price spread ln(p1) - ln(p2) for the two legs.
// A missing or non-positive price yields exactly 0.0: the callers treat
// that as "no signal", never as a fatal condition.
func Spread(prices map[string]float64, symbol1, symbol2 string) float64 {
	if len(prices) < 2 {
		return 0.0
	}
	p1, ok1 := prices[symbol1]
	p2, ok2 := prices[symbol2]
	if !ok1 || !ok2 || p1 <= 0 || p2 <= 0 {
		return 0.0
	}
	return math.Log(p1) - math.Log(p2)
}

// RollingZScore computes the z-score of the latest spread against the
// rolling mean and standard deviation of the last lookback aligned
// spreads. It returns 0.0 when fewer than lookback aligned samples exist
// or when the standard deviation is zero; both are documented no-signal
// conditions.
//
// The standard deviation is the population one (mean of squared
// deviations, no Bessel correction). Backtest numbers depend on this
// convention; spread_test.go pins it.
func RollingZScore(history1, history2 []float64, lookback int) float64 {
	n := len(history1)
	if len(history2) < n {
		n = len(history2)
	}
	if lookback < 1 || n < lookback {
		return 0.0
	}

	spreads := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if history1[i] <= 0 || history2[i] <= 0 {
			return 0.0
		}
		spreads = append(spreads, math.Log(history1[i])-math.Log(history2[i]))
	}

	recent := spreads[len(spreads)-lookback:]
	mean, std := meanStd(recent)
	if std == 0 {
		return 0.0
	}
	current := spreads[len(spreads)-1]
	return (current - mean) / std
}

// Classify maps a z-score to a spread position. A high ratio means the
// first leg is rich relative to the second, so the spread is shorted.
// There is no hysteresis band: a z-score sitting exactly at the threshold
// can flip the signal every tick.
func Classify(zScore, threshold float64) models.Position {
	switch {
	case zScore > threshold:
		return models.ShortSpread
	case zScore < -threshold:
		return models.LongSpread
	default:
		return models.Neutral
	}
}

// meanStd returns the mean and population standard deviation of values.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(len(values)))
}
