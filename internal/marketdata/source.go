// Package marketdata supplies daily price histories. CachedSource layers a
// Redis series cache and a durable bar store in front of a remote provider
// and writes remote results back into both.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"fuzzy-advisor/internal/metrics"
	"fuzzy-advisor/internal/model"
)

var (
	ErrNoData   = errors.New("no price data for symbol and range")
	ErrUpstream = errors.New("price provider unavailable")
)

// Options configures a CachedSource. Cache and Store are optional.
type Options struct {
	Cache        model.SeriesCache
	Store        model.BarStore
	CacheTTL     time.Duration
	FetchTimeout time.Duration // bounds a shared remote call; default 1m
	Metrics      *metrics.Metrics
	Health       *metrics.HealthStatus
	Now          func() time.Time
}

// CachedSource implements model.PriceSource. Lookups go cache → store →
// remote. Cache and store failures are logged and treated as misses; only
// remote failures reach the caller. Concurrent misses for the same symbol and
// range share one remote call; each caller waits on its own context, and a
// caller that gives up does not cancel the call for the others.
type CachedSource struct {
	sf singleflight.Group

	remote model.PriceSource
	cache  model.SeriesCache
	store  model.BarStore
	ttl    time.Duration
	limit  time.Duration
	m      *metrics.Metrics
	health *metrics.HealthStatus
	now    func() time.Time
}

// NewCachedSource wraps remote.
func NewCachedSource(remote model.PriceSource, opts Options) *CachedSource {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 15 * time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = time.Minute
	}
	return &CachedSource{
		remote: remote,
		cache:  opts.Cache,
		store:  opts.Store,
		ttl:    opts.CacheTTL,
		limit:  opts.FetchTimeout,
		m:      opts.Metrics,
		health: opts.Health,
		now:    opts.Now,
	}
}

// Fetch returns the daily bars for symbol with dates in [r.From, r.To).
func (s *CachedSource) Fetch(ctx context.Context, symbol string, r model.DateRange) (model.PriceSeries, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return model.PriceSeries{}, fmt.Errorf("%w: empty symbol", ErrNoData)
	}
	if err := r.Validate(s.now()); err != nil {
		return model.PriceSeries{}, err
	}

	if series, ok := s.fromCache(ctx, symbol, r); ok {
		return series, nil
	}
	if series, ok := s.fromStore(ctx, symbol, r); ok {
		s.putCache(ctx, series, r)
		return series, nil
	}

	ch := s.sf.DoChan(symbol+"|"+r.Key(), func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.limit)
		defer cancel()
		return s.fetchRemote(fctx, symbol, r)
	})
	select {
	case <-ctx.Done():
		return model.PriceSeries{}, fmt.Errorf("fetch %s %s: %w", symbol, r.Key(), ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return model.PriceSeries{}, res.Err
		}
		series := res.Val.(model.PriceSeries)
		if res.Shared {
			series.Bars = append([]model.PriceBar(nil), series.Bars...)
		}
		return series, nil
	}
}

// fetchRemote calls the provider and writes the result back to both layers.
func (s *CachedSource) fetchRemote(ctx context.Context, symbol string, r model.DateRange) (model.PriceSeries, error) {
	start := time.Now()
	series, err := s.remote.Fetch(ctx, symbol, r)
	s.observeFetch("remote", start)
	if s.health != nil {
		s.health.RecordFetch(err)
	}
	if err != nil {
		if s.m != nil && errors.Is(err, ErrUpstream) {
			s.m.UpstreamErrors.Inc()
		}
		return model.PriceSeries{}, err
	}
	series.Symbol = symbol

	s.writeStore(ctx, series, r)
	s.putCache(ctx, series, r)
	return series, nil
}

func (s *CachedSource) fromCache(ctx context.Context, symbol string, r model.DateRange) (model.PriceSeries, bool) {
	if s.cache == nil {
		return model.PriceSeries{}, false
	}
	start := time.Now()
	series, hit, err := s.cache.GetSeries(ctx, symbol, r)
	s.observeFetch("cache", start)
	if err != nil {
		log.Printf("[marketdata] cache get %s %s: %v", symbol, r.Key(), err)
	}
	s.countLookup("cache", hit && err == nil)
	return series, hit && err == nil
}

func (s *CachedSource) fromStore(ctx context.Context, symbol string, r model.DateRange) (model.PriceSeries, bool) {
	if s.store == nil {
		return model.PriceSeries{}, false
	}
	start := time.Now()
	defer s.observeFetch("store", start)

	covered, err := s.store.Covered(ctx, symbol, r)
	if err != nil {
		log.Printf("[marketdata] store coverage %s %s: %v", symbol, r.Key(), err)
	}
	if err != nil || !covered {
		s.countLookup("store", false)
		return model.PriceSeries{}, false
	}

	bars, err := s.store.ReadBars(ctx, symbol, r)
	if err != nil {
		log.Printf("[marketdata] store read %s %s: %v", symbol, r.Key(), err)
	}
	ok := err == nil && len(bars) > 0
	s.countLookup("store", ok)
	return model.PriceSeries{Symbol: symbol, Bars: bars}, ok
}

// writeStore persists the bars but only records coverage up to the start of
// today, so a bar for the current session is fetched again until it closes.
func (s *CachedSource) writeStore(ctx context.Context, series model.PriceSeries, r model.DateRange) {
	if s.store == nil {
		return
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	final := model.DateRange{From: r.From, To: r.To}
	if final.To.After(today) {
		final.To = today
	}
	if !final.From.Before(final.To) {
		return
	}

	bars := make([]model.PriceBar, 0, len(series.Bars))
	for _, b := range series.Bars {
		if final.Contains(b.Date) {
			bars = append(bars, b)
		}
	}

	start := time.Now()
	if err := s.store.WriteBars(ctx, series.Symbol, final, bars); err != nil {
		log.Printf("[marketdata] store write %s %s: %v", series.Symbol, final.Key(), err)
		return
	}
	if s.m != nil {
		s.m.StoreWriteDur.Observe(time.Since(start).Seconds())
	}
}

func (s *CachedSource) putCache(ctx context.Context, series model.PriceSeries, r model.DateRange) {
	if s.cache == nil {
		return
	}
	if err := s.cache.PutSeries(ctx, series, r, s.ttl); err != nil {
		log.Printf("[marketdata] cache put %s %s: %v", series.Symbol, r.Key(), err)
	}
}

func (s *CachedSource) observeFetch(source string, start time.Time) {
	if s.m != nil {
		s.m.FetchDur.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}
}

func (s *CachedSource) countLookup(layer string, hit bool) {
	if s.m == nil {
		return
	}
	if hit {
		s.m.CacheHits.WithLabelValues(layer).Inc()
	} else {
		s.m.CacheMisses.WithLabelValues(layer).Inc()
	}
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
