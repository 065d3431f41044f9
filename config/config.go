package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"fuzzy-advisor/internal/decision"
	"fuzzy-advisor/internal/fuzzy"
	"fuzzy-advisor/internal/indicator"
)

// Price store backends.
const (
	StoreNone     = "none"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Analysis
	Symbol        string
	SMAWindow     int
	RSIPeriod     int
	RSISmoothing  string // "simple" or "wilder"
	FuzzyDefPath  string // YAML rule base; empty uses the built-in one
	BuyThreshold  float64
	SellThreshold float64

	// Price provider
	ProviderURL     string
	ProviderTimeout time.Duration
	ProviderRetries int

	// Infrastructure
	PriceStore    string // none, sqlite or postgres
	SQLitePath    string
	PostgresDSN   string
	RedisAddr     string // empty disables the cache
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Outer surfaces
	HTTPAddr       string
	MetricsAddr    string // empty serves /metrics on HTTPAddr only
	RequestTimeout time.Duration
	TOTPSecret     string

	// Notifications
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string
	NotifyOnChange   bool

	// Scheduled re-analysis (serve only); empty schedule disables it
	WatchSchedule string
	WatchSymbols  string // comma-separated, default Symbol

	LogLevel      string
	LogFile       string // empty logs to the console only
	LogMaxSizeMB  int
	LogMaxAgeDays int
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()
	return fromEnv()
}

// LoadFile is Load with an explicit env file, which must exist.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return fromEnv(), nil
}

func fromEnv() *Config {
	return &Config{
		Symbol:        getEnv("ADVISOR_SYMBOL", "BTC-USD"),
		SMAWindow:     getEnvInt("SMA_WINDOW", 30),
		RSIPeriod:     getEnvInt("RSI_PERIOD", 14),
		RSISmoothing:  getEnv("RSI_SMOOTHING", "simple"),
		FuzzyDefPath:  getEnv("FUZZY_DEFINITION", ""),
		BuyThreshold:  getEnvFloat("BUY_THRESHOLD", 7),
		SellThreshold: getEnvFloat("SELL_THRESHOLD", 3),

		ProviderURL:     getEnv("PROVIDER_URL", "https://query1.finance.yahoo.com"),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 15*time.Second),
		ProviderRetries: getEnvInt("PROVIDER_RETRIES", 2),

		PriceStore:    strings.ToLower(getEnv("PRICE_STORE", StoreSQLite)),
		SQLitePath:    getEnv("SQLITE_PATH", "data/prices.db"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 15*time.Minute),

		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr:    getEnv("METRICS_ADDR", ""),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		TOTPSecret:     getEnv("API_TOTP_SECRET", ""),

		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		NotifyOnChange:   getEnvBool("NOTIFY_ON_CHANGE", true),

		WatchSchedule: getEnv("WATCH_SCHEDULE", ""),
		WatchSymbols:  getEnv("WATCH_SYMBOLS", ""),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 14),
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.PriceStore {
	case StoreNone, StoreSQLite:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("[config] PRICE_STORE=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("[config] unknown PRICE_STORE %q", c.PriceStore)
	}
	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("[config] TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	if _, err := c.Indicators(); err != nil {
		return err
	}
	return c.Thresholds().Validate()
}

// Indicators returns the indicator configuration.
func (c *Config) Indicators() (indicator.Config, error) {
	sm, err := indicator.ParseSmoothing(c.RSISmoothing)
	if err != nil {
		return indicator.Config{}, fmt.Errorf("[config] RSI_SMOOTHING: %w", err)
	}
	ic := indicator.Config{SMAWindow: c.SMAWindow, RSIPeriod: c.RSIPeriod, Smoothing: sm}
	if err := ic.Validate(); err != nil {
		return indicator.Config{}, fmt.Errorf("[config] %w", err)
	}
	return ic, nil
}

// Watchlist parses WATCH_SYMBOLS, falling back to the default symbol.
func (c *Config) Watchlist() []string {
	var out []string
	for _, p := range strings.Split(c.WatchSymbols, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 && c.Symbol != "" {
		out = append(out, strings.ToUpper(c.Symbol))
	}
	return out
}

// Thresholds returns the decision thresholds.
func (c *Config) Thresholds() decision.Thresholds {
	return decision.Thresholds{Buy: c.BuyThreshold, Sell: c.SellThreshold}
}

// FuzzyDefinition loads FUZZY_DEFINITION, or returns the built-in rule base.
func (c *Config) FuzzyDefinition() (fuzzy.Definition, error) {
	if c.FuzzyDefPath == "" {
		return fuzzy.DefaultDefinition(), nil
	}
	return fuzzy.LoadDefinition(c.FuzzyDefPath)
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
