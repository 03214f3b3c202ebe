// Package exchange wraps the Binance spot REST and websocket APIs in the
// two capabilities the rest of the system needs: historical OHLCV series
// and latest ticker prices.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptopairs/pairtrader/internal/config"
	"github.com/cryptopairs/pairtrader/internal/models"
)

// Client is a thin wrapper around the Binance REST API.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new exchange client.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		baseURL: cfg.BinanceBaseURL,
	}
}

// doRequest performs a GET with the optional API key header.
func (c *Client) doRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.BinanceAPIKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.cfg.BinanceAPIKey)
	}
	return c.httpClient.Do(req)
}

// classifyStatus maps an HTTP status to a fetch error kind. Rate limits
// and server errors are retryable; other client errors are not.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests || status == 418:
		return KindTransient
	case status >= 500:
		return KindTransient
	default:
		return KindFatal
	}
}

// FetchOHLCV fetches up to limit bars of the given timeframe for symbol,
// starting at since (zero means the exchange default, i.e. most recent).
// Bars come back in ascending timestamp order with UTC, bar-aligned
// timestamps.
func (c *Client) FetchOHLCV(ctx context.Context, symbol, timeframe string, since time.Time, limit int) ([]models.PriceBar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", timeframe)
	if !since.IsZero() {
		params.Set("startTime", fmt.Sprintf("%d", since.UnixMilli()))
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	resp, err := c.doRequest(ctx, c.baseURL+"/api/v3/klines?"+params.Encode())
	if err != nil {
		return nil, fetchErr(KindTransient, "fetch ohlcv", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fetchErr(classifyStatus(resp.StatusCode), "fetch ohlcv", symbol,
			fmt.Errorf("API error %d: %s", resp.StatusCode, string(body)))
	}

	// Klines are heterogeneous JSON arrays: open time in ms, then the
	// OHLCV fields as strings.
	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fetchErr(KindTransient, "fetch ohlcv", symbol, fmt.Errorf("decode klines: %w", err))
	}
	if len(raw) == 0 {
		return nil, fetchErr(KindNoData, "fetch ohlcv", symbol, nil)
	}

	bars := make([]models.PriceBar, 0, len(raw))
	for _, k := range raw {
		bar, err := parseKline(symbol, timeframe, k)
		if err != nil {
			return nil, fetchErr(KindFatal, "fetch ohlcv", symbol, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// FetchLastPrice returns the latest traded price for symbol.
func (c *Client) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	t, err := c.FetchTicker(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return t.Last, nil
}

// FetchTicker returns the latest ticker for symbol.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	resp, err := c.doRequest(ctx, c.baseURL+"/api/v3/ticker/price?"+params.Encode())
	if err != nil {
		return nil, fetchErr(KindTransient, "fetch ticker", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fetchErr(classifyStatus(resp.StatusCode), "fetch ticker", symbol,
			fmt.Errorf("API error %d: %s", resp.StatusCode, string(body)))
	}

	var result struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fetchErr(KindTransient, "fetch ticker", symbol, fmt.Errorf("decode ticker: %w", err))
	}

	price, err := decimal.NewFromString(result.Price)
	if err != nil {
		return nil, fetchErr(KindFatal, "fetch ticker", symbol, fmt.Errorf("parse price %q: %w", result.Price, err))
	}
	if price.IsZero() {
		return nil, fetchErr(KindNoData, "fetch ticker", symbol, nil)
	}

	return &models.Ticker{
		Symbol:    result.Symbol,
		Last:      price.InexactFloat64(),
		Timestamp: time.Now().UTC(),
	}, nil
}

// parseKline converts one raw kline array into a PriceBar. Prices arrive
// as JSON strings; they go through decimal to avoid locale/precision
// surprises before landing as float64.
func parseKline(symbol, timeframe string, k []json.RawMessage) (models.PriceBar, error) {
	if len(k) < 6 {
		return models.PriceBar{}, fmt.Errorf("kline has %d fields, want at least 6", len(k))
	}

	var openTime int64
	if err := json.Unmarshal(k[0], &openTime); err != nil {
		return models.PriceBar{}, fmt.Errorf("parse kline open time: %w", err)
	}

	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		var s string
		if err := json.Unmarshal(k[i], &s); err != nil {
			return models.PriceBar{}, fmt.Errorf("parse kline field %d: %w", i, err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return models.PriceBar{}, fmt.Errorf("parse kline value %q: %w", s, err)
		}
		fields[i-1] = d.InexactFloat64()
	}

	return models.PriceBar{
		Symbol:    symbol,
		Timestamp: time.UnixMilli(openTime).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
		Timeframe: timeframe,
	}, nil
}
