package live

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cryptopairs/pairtrader/internal/models"
)

// Performance is the rolling metric set the trader records each tick.
type Performance struct {
	TotalReturnPct float64 `json:"total_return"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdownPct float64 `json:"max_drawdown"`
	WinRatePct     float64 `json:"win_rate"`
	TotalTrades    int     `json:"total_trades"`
}

// State is the snapshot persisted after every tick so a later process
// instance of the same trader configuration can resume. The schema is
// versionless but stable within a deployment; field renames are a
// compatibility break.
type State struct {
	Cash        float64            `json:"cash"`
	Holdings    map[string]float64 `json:"holdings"`
	Trades      []models.Trade     `json:"trades"`
	Performance Performance        `json:"performance"`
	Position    models.Position    `json:"current_position"`
	TradeCount  int                `json:"trade_count"`
	Timestamp   time.Time          `json:"timestamp"`
}

// SaveState writes the snapshot to path atomically (temp file + rename)
// so a crash mid-write never leaves a truncated state file behind.
func SaveState(path string, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// LoadState reads a snapshot from path. A missing file surfaces as
// os.ErrNotExist; callers treat both that and a corrupt file as "start
// fresh", never as fatal.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}
	return &state, nil
}
