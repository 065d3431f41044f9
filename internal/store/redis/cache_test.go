package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuzzy-advisor/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

var testRange = model.DateRange{
	From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
}

func TestKey(t *testing.T) {
	assert.Equal(t, "advisor:series:BTC-USD:2024-01-01:2024-03-01", Key("btc-usd", testRange))
}

func TestCache_UnreachableTripsBreaker(t *testing.T) {
	// Nothing listens on port 1; every call fails fast with a dial error.
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewCacheWithClient(client, 2, time.Minute)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, hit, err := c.GetSeries(ctx, "BTC-USD", testRange)
		require.Error(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, StateOpen, c.Breaker().CurrentState())

	err := c.PutSeries(ctx, model.PriceSeries{Symbol: "BTC-USD"}, testRange, time.Minute)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
}

// TestCache_RoundTrip runs against a live server when REDIS_TEST_ADDR is set.
func TestCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c, err := NewCache(CacheConfig{Addr: addr})
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	s := model.PriceSeries{Symbol: "TEST-" + time.Now().Format("150405.000"), Bars: []model.PriceBar{
		{Date: testRange.From, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
	}}

	_, hit, err := c.GetSeries(ctx, s.Symbol, testRange)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.PutSeries(ctx, s, testRange, time.Minute))
	got, hit, err := c.GetSeries(ctx, s.Symbol, testRange)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, s.Bars[0].Close, got.Bars[0].Close)
	assert.True(t, s.Bars[0].Date.Equal(got.Bars[0].Date))
	assert.Equal(t, StateClosed, c.Breaker().CurrentState())
}
