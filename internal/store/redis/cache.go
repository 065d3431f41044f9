package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"fuzzy-advisor/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	keyPrefix  = "advisor:series:"
	defaultTTL = 15 * time.Minute
)

// CacheConfig configures the Redis series cache.
type CacheConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	// Breaker settings. Zero values give 5 failures and a 30s reset.
	MaxFailures  int
	ResetTimeout time.Duration
}

// Cache stores whole fetch results as JSON under a per-(symbol, range) key.
// It implements model.SeriesCache. Calls go through a circuit breaker so an
// unreachable Redis degrades to a miss quickly.
type Cache struct {
	client  *goredis.Client
	breaker *CircuitBreaker
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Breaker returns the circuit breaker guarding the client.
func (c *Cache) Breaker() *CircuitBreaker { return c.breaker }

// NewCache connects to Redis and pings the server.
func NewCache(cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewCacheWithClient(client, cfg.MaxFailures, cfg.ResetTimeout), nil
}

// NewCacheWithClient wraps an existing client.
func NewCacheWithClient(client *goredis.Client, maxFailures int, resetTimeout time.Duration) *Cache {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	cb := NewCircuitBreaker(maxFailures, resetTimeout)
	cb.IsFailure = func(err error) bool { return !errors.Is(err, goredis.Nil) }
	return &Cache{client: client, breaker: cb}
}

// Key returns the cache key for a symbol and date range.
// Format: advisor:series:{SYMBOL}:{from}:{to}
func Key(symbol string, r model.DateRange) string {
	return keyPrefix + strings.ToUpper(symbol) + ":" + r.Key()
}

// GetSeries returns the cached series. A missing key is a miss, not an error.
func (c *Cache) GetSeries(ctx context.Context, symbol string, r model.DateRange) (model.PriceSeries, bool, error) {
	var raw []byte
	err := c.breaker.Execute(func() error {
		b, err := c.client.Get(ctx, Key(symbol, r)).Bytes()
		raw = b
		return err
	})
	if errors.Is(err, goredis.Nil) {
		return model.PriceSeries{}, false, nil
	}
	if err != nil {
		return model.PriceSeries{}, false, fmt.Errorf("redis get %s: %w", Key(symbol, r), err)
	}

	var s model.PriceSeries
	if err := json.Unmarshal(raw, &s); err != nil {
		// Corrupt entries are treated as misses and overwritten on the next put
		log.Printf("[redis] discarding undecodable entry %s: %v", Key(symbol, r), err)
		return model.PriceSeries{}, false, nil
	}
	return s, true, nil
}

// PutSeries stores the series for ttl (15 minutes when ttl <= 0).
func (c *Cache) PutSeries(ctx context.Context, s model.PriceSeries, r model.DateRange, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode series %s: %w", s.Symbol, err)
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, Key(s.Symbol, r), data, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", Key(s.Symbol, r), err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
