package formatters

import "testing"

func TestFormatVolume(t *testing.T) {
	tests := []struct {
		volume float64
		want   string
	}{
		{0, "0"},
		{999, "999"},
		{1_000, "1.0K"},
		{45_200, "45.2K"},
		{1_500_000, "1.5M"},
		{2_300_000_000, "2.3B"},
	}
	for _, tt := range tests {
		if got := FormatVolume(tt.volume); got != tt.want {
			t.Errorf("FormatVolume(%v) = %q, want %q", tt.volume, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("ADAUSDT", 10); got != "ADAUSDT" {
		t.Errorf("short string changed: %q", got)
	}
	if got := TruncateString("averylongsymbolname", 10); got != "averylo..." {
		t.Errorf("TruncateString = %q, want %q", got, "averylo...")
	}
}

func TestFormatPair(t *testing.T) {
	if got := FormatPair("adausdt", "bnbusdt"); got != "ADAUSDT/BNBUSDT" {
		t.Errorf("FormatPair = %q", got)
	}
}
