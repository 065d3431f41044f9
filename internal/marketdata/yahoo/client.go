// Package yahoo fetches daily bars from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"fuzzy-advisor/internal/marketdata"
	"fuzzy-advisor/internal/model"
)

const (
	defaultBaseURL   = "https://query1.finance.yahoo.com"
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; fuzzy-advisor/1.0)"
	maxBodyBytes     = 16 << 20
)

// Config configures the client. Zero values select the defaults.
type Config struct {
	BaseURL    string        // default: https://query1.finance.yahoo.com
	Timeout    time.Duration // default: 10s
	MaxRetries int           // retries on 429 and 5xx, default 2
	UserAgent  string
	Debug      bool
	Now        func() time.Time
}

// Client implements model.PriceSource.
type Client struct {
	baseURL    string
	userAgent  string
	maxRetries int
	debug      bool
	now        func() time.Time
	httpClient *http.Client
}

// New creates a client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		debug:      cfg.Debug,
		now:        cfg.Now,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// ---- wire format ----

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Fetch downloads daily bars with session dates in [r.From, r.To).
// Transport and non-2xx failures wrap marketdata.ErrUpstream; an empty
// result wraps marketdata.ErrNoData.
func (c *Client) Fetch(ctx context.Context, symbol string, r model.DateRange) (model.PriceSeries, error) {
	symbol = marketdata.NormalizeSymbol(symbol)
	if symbol == "" {
		return model.PriceSeries{}, fmt.Errorf("%w: empty symbol", marketdata.ErrNoData)
	}
	if err := r.Validate(c.now()); err != nil {
		return model.PriceSeries{}, err
	}

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(r.From.Unix(), 10))
	q.Set("period2", strconv.FormatInt(r.To.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")
	endpoint := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + q.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("yahoo %s %s: %w", symbol, r.Key(), err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.PriceSeries{}, fmt.Errorf("yahoo %s: decode: %v: %w", symbol, err, marketdata.ErrUpstream)
	}
	if e := resp.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return model.PriceSeries{}, fmt.Errorf("yahoo %s: %s: %w", symbol, e.Description, marketdata.ErrNoData)
		}
		return model.PriceSeries{}, fmt.Errorf("yahoo %s: %s: %s: %w", symbol, e.Code, e.Description, marketdata.ErrUpstream)
	}
	if len(resp.Chart.Result) == 0 {
		return model.PriceSeries{}, fmt.Errorf("yahoo %s %s: %w", symbol, r.Key(), marketdata.ErrNoData)
	}

	bars := toBars(resp.Chart.Result[0], r)
	if len(bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("yahoo %s %s: %w", symbol, r.Key(), marketdata.ErrNoData)
	}
	if c.debug {
		log.Printf("[yahoo] %s %s: %d bars", symbol, r.Key(), len(bars))
	}
	return model.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

// get performs the request, retrying 429 and 5xx responses with a linear backoff.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ctx.Err(), marketdata.ErrUpstream)
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%v: %w: %w", err, ctx.Err(), marketdata.ErrUpstream)
			}
			lastErr = fmt.Errorf("%v: %w", err, marketdata.ErrUpstream)
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read body: %v: %w", err, marketdata.ErrUpstream)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			// Unknown symbols come back as 404 with a chart.error payload
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("http %d: %w", resp.StatusCode, marketdata.ErrUpstream)
			continue
		case resp.StatusCode >= 300:
			return nil, fmt.Errorf("http %d: %w", resp.StatusCode, marketdata.ErrUpstream)
		}
		return body, nil
	}
	return nil, lastErr
}

// toBars converts the columnar payload into dated bars. Timestamps are
// shifted by the exchange offset before taking the calendar date; rows with a
// null close are dropped and a repeated date keeps the later row.
func toBars(res chartResult, r model.DateRange) []model.PriceBar {
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	q := res.Indicators.Quote[0]
	at := func(vs []*float64, i int) float64 {
		if i < len(vs) && vs[i] != nil {
			return *vs[i]
		}
		return 0
	}

	byDate := make(map[time.Time]model.PriceBar, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		local := time.Unix(ts+res.Meta.GMTOffset, 0).UTC()
		d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		if !r.Contains(d) {
			continue
		}
		byDate[d] = model.PriceBar{
			Date:   d,
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  *q.Close[i],
			Volume: at(q.Volume, i),
		}
	}

	bars := make([]model.PriceBar, 0, len(byDate))
	for _, b := range byDate {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}
