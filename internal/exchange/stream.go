package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cryptopairs/pairtrader/internal/cache"
	"github.com/cryptopairs/pairtrader/internal/config"
	"github.com/cryptopairs/pairtrader/internal/models"
)

const (
	streamReadDeadline = 30 * time.Second
	streamPingInterval = 15 * time.Second
	maxReconnectDelay  = 30 * time.Second
)

// Stream subscribes to Binance miniTicker streams for a set of symbols
// and keeps the ticker cache current. It reconnects with exponential
// backoff until its context is cancelled; the live loop falls back to
// REST whenever the cache entry is stale.
type Stream struct {
	cfg     *config.Config
	cache   *cache.Cache
	logger  *zap.Logger
	symbols []string
}

// NewStream creates a stream for the given symbols.
func NewStream(cfg *config.Config, dataCache *cache.Cache, logger *zap.Logger, symbols ...string) *Stream {
	return &Stream{
		cfg:     cfg,
		cache:   dataCache,
		logger:  logger.With(zap.String("component", "stream")),
		symbols: symbols,
	}
}

type miniTickerEnvelope struct {
	Stream string         `json:"stream"`
	Data   miniTickerData `json:"data"`
}

type miniTickerData struct {
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

// Run connects and consumes until ctx is cancelled. Disconnects are
// logged and retried; Run only returns the context error.
func (s *Stream) Run(ctx context.Context) error {
	if len(s.symbols) == 0 {
		return fmt.Errorf("stream requires at least one symbol")
	}

	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = strings.ToLower(sym) + "@miniTicker"
	}
	url := fmt.Sprintf("%s/stream?streams=%s", s.cfg.BinanceStreamURL, strings.Join(streams, "/"))

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx, url); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("ticker stream disconnected, retrying",
				zap.Error(err),
				zap.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxReconnectDelay), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (s *Stream) consume(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.logger.Info("connected ticker stream", zap.Strings("symbols", s.symbols))

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(streamReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(streamReadDeadline))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(streamPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.logger.Warn("stream ping failed", zap.Error(err))
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(streamReadDeadline))

		var env miniTickerEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			s.logger.Debug("skipping unparseable stream message", zap.Error(err))
			continue
		}
		if env.Data.Symbol == "" {
			continue
		}

		price, err := decimal.NewFromString(env.Data.Close)
		if err != nil || price.IsZero() {
			s.logger.Debug("skipping ticker with bad price",
				zap.String("symbol", env.Data.Symbol),
				zap.String("price", env.Data.Close))
			continue
		}

		s.cache.SetTicker(&models.Ticker{
			Symbol:    env.Data.Symbol,
			Last:      price.InexactFloat64(),
			Timestamp: time.UnixMilli(env.Data.EventTime).UTC(),
		})
	}
}
