package store

// Schema creates the price and backtest tables. The unique index on
// (symbol, timestamp, timeframe) is what makes bar upserts idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS crypto_prices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	timeframe TEXT NOT NULL DEFAULT '1h',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_symbol_timestamp_timeframe
	ON crypto_prices(symbol, timestamp, timeframe);

CREATE INDEX IF NOT EXISTS idx_symbol_timestamp
	ON crypto_prices(symbol, timestamp);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	symbol1 TEXT NOT NULL,
	symbol2 TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	lookback INTEGER NOT NULL,
	z_threshold REAL NOT NULL,
	trade_size_pct REAL NOT NULL,
	start_ts DATETIME NOT NULL,
	end_ts DATETIME NOT NULL,
	initial_capital REAL NOT NULL,
	final_value REAL NOT NULL,
	total_return_pct REAL NOT NULL,
	buy_hold_return_pct REAL NOT NULL,
	excess_return_pct REAL NOT NULL,
	volatility_pct REAL NOT NULL,
	sharpe_ratio REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	total_trades INTEGER NOT NULL,
	win_rate_pct REAL NOT NULL
);
`
