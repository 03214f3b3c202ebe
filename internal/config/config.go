package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is built once at process
// start and passed into the components that need it; there is no ambient
// global state.
type Config struct {
	// Exchange API
	BinanceAPIKey    string
	BinanceSecretKey string
	BinanceBaseURL   string
	BinanceStreamURL string

	// Persistence
	DatabasePath string
	StateFile    string

	// Pair strategy
	Symbol1        string
	Symbol2        string
	Timeframe      string
	InitialCapital float64
	LookbackPeriod int
	ZThreshold     float64
	TradeSizePct   float64

	// Live loop
	UpdateInterval time.Duration
	PaperTrading   bool

	// Performance
	HTTPTimeout time.Duration
	CacheTTL    time.Duration
}

// Load reads configuration from an optional YAML file, environment
// variables, and a .env file, in increasing order of precedence for the
// environment. Defaults mirror the hourly ADA/BNB pair setup.
func Load(configFile string) (*Config, error) {
	// Ignore a missing .env; explicit env vars still apply.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("binance_api_key", "")
	v.SetDefault("binance_secret_key", "")
	v.SetDefault("binance_base_url", "https://api.binance.us")
	v.SetDefault("binance_stream_url", "wss://stream.binance.us:9443")
	v.SetDefault("database_path", "crypto_data.db")
	v.SetDefault("state_file", "trading_state.json")
	v.SetDefault("symbol1", "ADAUSDT")
	v.SetDefault("symbol2", "BNBUSDT")
	v.SetDefault("timeframe", "1h")
	v.SetDefault("initial_capital", 1000.0)
	v.SetDefault("lookback_period", 20)
	v.SetDefault("z_threshold", 2.0)
	v.SetDefault("trade_size_pct", 0.25)
	v.SetDefault("update_interval_sec", 60)
	v.SetDefault("paper_trading", true)
	v.SetDefault("http_timeout_ms", 10000)
	v.SetDefault("cache_ttl_ms", 5000)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		BinanceAPIKey:    v.GetString("binance_api_key"),
		BinanceSecretKey: v.GetString("binance_secret_key"),
		BinanceBaseURL:   v.GetString("binance_base_url"),
		BinanceStreamURL: v.GetString("binance_stream_url"),
		DatabasePath:     v.GetString("database_path"),
		StateFile:        v.GetString("state_file"),
		Symbol1:          v.GetString("symbol1"),
		Symbol2:          v.GetString("symbol2"),
		Timeframe:        v.GetString("timeframe"),
		InitialCapital:   v.GetFloat64("initial_capital"),
		LookbackPeriod:   v.GetInt("lookback_period"),
		ZThreshold:       v.GetFloat64("z_threshold"),
		TradeSizePct:     v.GetFloat64("trade_size_pct"),
		UpdateInterval:   time.Duration(v.GetInt("update_interval_sec")) * time.Second,
		PaperTrading:     v.GetBool("paper_trading"),
		HTTPTimeout:      time.Duration(v.GetInt("http_timeout_ms")) * time.Millisecond,
		CacheTTL:         time.Duration(v.GetInt("cache_ttl_ms")) * time.Millisecond,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Symbol1 == "" || c.Symbol2 == "" {
		return fmt.Errorf("SYMBOL1 and SYMBOL2 must be set")
	}
	if c.Symbol1 == c.Symbol2 {
		return fmt.Errorf("pair legs must differ, got %s twice", c.Symbol1)
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("INITIAL_CAPITAL must be positive, got %f", c.InitialCapital)
	}
	if c.LookbackPeriod < 2 {
		return fmt.Errorf("LOOKBACK_PERIOD must be at least 2, got %d", c.LookbackPeriod)
	}
	if c.ZThreshold <= 0 {
		return fmt.Errorf("Z_THRESHOLD must be positive, got %f", c.ZThreshold)
	}
	if c.TradeSizePct <= 0 || c.TradeSizePct > 1 {
		return fmt.Errorf("TRADE_SIZE_PCT must be in (0, 1], got %f", c.TradeSizePct)
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("UPDATE_INTERVAL_SEC must be positive")
	}
	return nil
}
