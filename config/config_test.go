package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuzzy-advisor/internal/fuzzy"
	"fuzzy-advisor/internal/indicator"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"ADVISOR_SYMBOL", "SMA_WINDOW", "RSI_PERIOD", "RSI_SMOOTHING",
		"PRICE_STORE", "CACHE_TTL", "NOTIFY_ON_CHANGE", "FUZZY_DEFINITION"} {
		t.Setenv(k, "")
	}
	c := Load()

	assert.Equal(t, "BTC-USD", c.Symbol)
	assert.Equal(t, StoreSQLite, c.PriceStore)
	assert.Equal(t, 15*time.Minute, c.CacheTTL)
	assert.True(t, c.NotifyOnChange)
	require.NoError(t, c.Validate())

	ic, err := c.Indicators()
	require.NoError(t, err)
	assert.Equal(t, indicator.DefaultConfig(), ic)

	def, err := c.FuzzyDefinition()
	require.NoError(t, err)
	assert.Equal(t, fuzzy.DefaultDefinition(), def)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ADVISOR_SYMBOL", "ETH-USD")
	t.Setenv("RSI_PERIOD", "9")
	t.Setenv("RSI_SMOOTHING", "Wilder")
	t.Setenv("BUY_THRESHOLD", "6.5")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("NOTIFY_ON_CHANGE", "false")
	t.Setenv("SMA_WINDOW", "not-a-number")

	c := Load()
	assert.Equal(t, "ETH-USD", c.Symbol)
	assert.Equal(t, 6.5, c.Thresholds().Buy)
	assert.Equal(t, 2*time.Minute, c.CacheTTL)
	assert.False(t, c.NotifyOnChange)

	ic, err := c.Indicators()
	require.NoError(t, err)
	assert.Equal(t, 9, ic.RSIPeriod)
	assert.Equal(t, 30, ic.SMAWindow)
	assert.Equal(t, indicator.SmoothingWilder, ic.Smoothing)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{PriceStore: StoreNone, SMAWindow: 30, RSIPeriod: 14, RSISmoothing: "simple",
			BuyThreshold: 7, SellThreshold: 3}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.PriceStore = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.PriceStore = StorePostgres }},
		{"half telegram", func(c *Config) { c.TelegramBotToken = "123:abc" }},
		{"bad smoothing", func(c *Config) { c.RSISmoothing = "ema" }},
		{"zero period", func(c *Config) { c.RSIPeriod = 0 }},
		{"inverted thresholds", func(c *Config) { c.BuyThreshold, c.SellThreshold = 3, 7 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.env")
	require.NoError(t, os.WriteFile(path, []byte("ADVISOR_SYMBOL=SOL-USD\n"), 0o644))
	t.Setenv("ADVISOR_SYMBOL", "")
	os.Unsetenv("ADVISOR_SYMBOL")

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "SOL-USD", c.Symbol)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestWatchlist(t *testing.T) {
	c := &Config{Symbol: "btc-usd"}
	assert.Equal(t, []string{"BTC-USD"}, c.Watchlist())

	c.WatchSymbols = " eth-usd, ,SOL-USD "
	assert.Equal(t, []string{"ETH-USD", "SOL-USD"}, c.Watchlist())
}
