package models

import (
	"testing"
	"time"
)

func TestTimeframeDuration(t *testing.T) {
	tests := []struct {
		timeframe string
		want      time.Duration
	}{
		{"1m", time.Minute},
		{"5m", 5 * time.Minute},
		{"15m", 15 * time.Minute},
		{"1h", time.Hour},
		{"4h", 4 * time.Hour},
		{"1d", 24 * time.Hour},
	}

	for _, tt := range tests {
		got, err := TimeframeDuration(tt.timeframe)
		if err != nil {
			t.Errorf("TimeframeDuration(%q) error: %v", tt.timeframe, err)
			continue
		}
		if got != tt.want {
			t.Errorf("TimeframeDuration(%q) = %v, want %v", tt.timeframe, got, tt.want)
		}
	}

	if _, err := TimeframeDuration("7m"); err == nil {
		t.Error("TimeframeDuration should reject unknown timeframes")
	}
}

func TestPeriodsPerYear(t *testing.T) {
	hourly, err := PeriodsPerYear("1h")
	if err != nil {
		t.Fatalf("PeriodsPerYear() error: %v", err)
	}
	if hourly != 24*365 {
		t.Errorf("PeriodsPerYear(1h) = %v, want 8760", hourly)
	}

	daily, err := PeriodsPerYear("1d")
	if err != nil {
		t.Fatalf("PeriodsPerYear() error: %v", err)
	}
	if daily != 365 {
		t.Errorf("PeriodsPerYear(1d) = %v, want 365", daily)
	}
}

func TestPositionString(t *testing.T) {
	if LongSpread.String() != "long_spread" {
		t.Errorf("LongSpread = %s", LongSpread.String())
	}
	if ShortSpread.String() != "short_spread" {
		t.Errorf("ShortSpread = %s", ShortSpread.String())
	}
	if Neutral.String() != "neutral" {
		t.Errorf("Neutral = %s", Neutral.String())
	}
}
