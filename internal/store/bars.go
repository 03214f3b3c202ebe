package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cryptopairs/pairtrader/internal/models"
)

// UpsertBar inserts or replaces one bar. The operation is idempotent on
// (symbol, timestamp, timeframe); re-collecting a range simply refreshes
// the stored values.
func (s *Store) UpsertBar(ctx context.Context, bar models.PriceBar) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crypto_prices (symbol, timestamp, open, high, low, close, volume, timeframe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, timestamp, timeframe) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`,
		bar.Symbol, bar.Timestamp.UTC(), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.Timeframe,
	)
	if err != nil {
		return fmt.Errorf("upsert bar %s@%s: %w", bar.Symbol, bar.Timestamp, err)
	}
	return nil
}

// UpsertBars writes a batch of bars in one transaction.
func (s *Store) UpsertBars(ctx context.Context, bars []models.PriceBar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO crypto_prices (symbol, timestamp, open, high, low, close, volume, timeframe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, timestamp, timeframe) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		if _, err := stmt.ExecContext(ctx,
			bar.Symbol, bar.Timestamp.UTC(), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.Timeframe,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert bar %s@%s: %w", bar.Symbol, bar.Timestamp, err)
		}
	}
	return tx.Commit()
}

// LoadBars returns bars for symbol and timeframe, newest first by store
// convention; callers wanting chronological order must re-sort. Zero
// start/end leave the range open; limit 0 means no limit.
func (s *Store) LoadBars(ctx context.Context, symbol, timeframe string, start, end time.Time, limit int) ([]models.PriceBar, error) {
	var (
		where = []string{"symbol = ?", "timeframe = ?"}
		args  = []any{symbol, timeframe}
	)
	if !start.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, start.UTC())
	}
	if !end.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, end.UTC())
	}

	query := `
		SELECT symbol, timestamp, open, high, low, close, volume, timeframe
		FROM crypto_prices
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY timestamp DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load bars %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Timeframe); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// sqliteTimeLayouts are the text forms go-sqlite3 writes for DATETIME
// columns. MIN/MAX strip the column decltype, so the driver hands the
// raw text back and the caller parses it.
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range sqliteTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized stored timestamp %q", s)
}

// DataRange reports the stored coverage for a symbol and timeframe.
func (s *Store) DataRange(ctx context.Context, symbol, timeframe string) (first, last time.Time, count int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT MIN(timestamp), MAX(timestamp), COUNT(*)
		FROM crypto_prices
		WHERE symbol = ? AND timeframe = ?`, symbol, timeframe)

	var minTS, maxTS sql.NullString
	if err = row.Scan(&minTS, &maxTS, &count); err != nil {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("data range %s: %w", symbol, err)
	}
	if minTS.Valid {
		if first, err = parseStoredTime(minTS.String); err != nil {
			return time.Time{}, time.Time{}, 0, fmt.Errorf("data range %s: %w", symbol, err)
		}
	}
	if maxTS.Valid {
		if last, err = parseStoredTime(maxTS.String); err != nil {
			return time.Time{}, time.Time{}, 0, fmt.Errorf("data range %s: %w", symbol, err)
		}
	}
	return first, last, count, nil
}

// MissingBars scans the stored series for holes: expected bar timestamps
// between the first and last stored bar with no row. Used by the collect
// command to report gaps worth backfilling.
func (s *Store) MissingBars(ctx context.Context, symbol, timeframe string) ([]time.Time, error) {
	step, err := models.TimeframeDuration(timeframe)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp FROM crypto_prices
		WHERE symbol = ? AND timeframe = ?
		ORDER BY timestamp ASC`, symbol, timeframe)
	if err != nil {
		return nil, fmt.Errorf("scan gaps %s: %w", symbol, err)
	}
	defer rows.Close()

	var stamps []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan timestamp: %w", err)
		}
		stamps = append(stamps, ts.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []time.Time
	for i := 1; i < len(stamps); i++ {
		for expected := stamps[i-1].Add(step); expected.Before(stamps[i]); expected = expected.Add(step) {
			missing = append(missing, expected)
		}
	}
	return missing, nil
}
