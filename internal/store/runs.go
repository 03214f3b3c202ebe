package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// BacktestRun is one persisted backtest result row. The metric field
// names mirror the report contract consumed by comparison tooling.
type BacktestRun struct {
	RunID        string
	Created      time.Time
	Symbol1      string
	Symbol2      string
	Timeframe    string
	Lookback     int
	ZThreshold   float64
	TradeSizePct float64
	Start        time.Time
	End          time.Time

	InitialCapital   float64
	FinalValue       float64
	TotalReturnPct   float64
	BuyHoldReturnPct float64
	ExcessReturnPct  float64
	VolatilityPct    float64
	SharpeRatio      float64
	MaxDrawdownPct   float64
	TotalTrades      int
	WinRatePct       float64
}

// NewRunID returns a sortable unique run identifier.
func NewRunID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// RecordBacktestRun persists a backtest result.
func (s *Store) RecordBacktestRun(ctx context.Context, r BacktestRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs
		(run_id, created, symbol1, symbol2, timeframe, lookback, z_threshold, trade_size_pct,
		 start_ts, end_ts, initial_capital, final_value, total_return_pct, buy_hold_return_pct,
		 excess_return_pct, volatility_pct, sharpe_ratio, max_drawdown_pct, total_trades, win_rate_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Symbol1, r.Symbol2, r.Timeframe, r.Lookback, r.ZThreshold, r.TradeSizePct,
		r.Start.UTC(), r.End.UTC(), r.InitialCapital, r.FinalValue, r.TotalReturnPct, r.BuyHoldReturnPct,
		r.ExcessReturnPct, r.VolatilityPct, r.SharpeRatio, r.MaxDrawdownPct, r.TotalTrades, r.WinRatePct,
	)
	if err != nil {
		return fmt.Errorf("record backtest run %s: %w", r.RunID, err)
	}
	return nil
}

// ListBacktestRuns returns runs for a pair, newest first. Empty symbols
// list every run.
func (s *Store) ListBacktestRuns(ctx context.Context, symbol1, symbol2 string, limit int) ([]BacktestRun, error) {
	query := `
		SELECT run_id, created, symbol1, symbol2, timeframe, lookback, z_threshold, trade_size_pct,
		       start_ts, end_ts, initial_capital, final_value, total_return_pct, buy_hold_return_pct,
		       excess_return_pct, volatility_pct, sharpe_ratio, max_drawdown_pct, total_trades, win_rate_pct
		FROM backtest_runs`
	var args []any
	if symbol1 != "" && symbol2 != "" {
		query += " WHERE symbol1 = ? AND symbol2 = ?"
		args = append(args, symbol1, symbol2)
	}
	query += " ORDER BY created DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []BacktestRun
	for rows.Next() {
		var r BacktestRun
		if err := rows.Scan(
			&r.RunID, &r.Created, &r.Symbol1, &r.Symbol2, &r.Timeframe, &r.Lookback, &r.ZThreshold, &r.TradeSizePct,
			&r.Start, &r.End, &r.InitialCapital, &r.FinalValue, &r.TotalReturnPct, &r.BuyHoldReturnPct,
			&r.ExcessReturnPct, &r.VolatilityPct, &r.SharpeRatio, &r.MaxDrawdownPct, &r.TotalTrades, &r.WinRatePct,
		); err != nil {
			return nil, fmt.Errorf("scan backtest run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
