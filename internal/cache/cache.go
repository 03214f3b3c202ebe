// Package cache provides a short-lived in-memory cache for ticker data,
// fed by the websocket stream and read by the live trading loop so a
// healthy stream saves one REST round trip per tick.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/cryptopairs/pairtrader/internal/models"
)

// Cache wraps go-cache with typed accessors for tickers.
type Cache struct {
	tickers *gocache.Cache
	ttl     time.Duration
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		tickers: gocache.New(ttl, ttl*2),
		ttl:     ttl,
	}
}

// GetTicker returns the cached ticker for symbol, if fresh.
func (c *Cache) GetTicker(symbol string) (*models.Ticker, bool) {
	if val, found := c.tickers.Get(symbol); found {
		if t, ok := val.(*models.Ticker); ok {
			return t, true
		}
	}
	return nil, false
}

// SetTicker caches a ticker under its symbol.
func (c *Cache) SetTicker(t *models.Ticker) {
	c.tickers.Set(t.Symbol, t, c.ttl)
}

// Clear drops all cached entries.
func (c *Cache) Clear() {
	c.tickers.Flush()
}

// ItemCount returns the number of cached tickers including expired ones
// not yet evicted.
func (c *Cache) ItemCount() int {
	return c.tickers.ItemCount()
}
