package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuzzy-advisor/internal/advisor"
	"fuzzy-advisor/internal/marketdata"
	"fuzzy-advisor/internal/model"
)

var (
	testNow   = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	testRange = model.DateRange{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
	}
)

// Jan 1, a null Jan 2 close, two Jan 3 rows and a Jan 4 row outside the range.
const chartBody = `{"chart":{"result":[{
  "meta":{"symbol":"BTC-USD","gmtoffset":0},
  "timestamp":[1704067200,1704153600,1704240000,1704283200,1704326400],
  "indicators":{"quote":[{
    "open":  [42000,null,44900,45100,46000],
    "high":  [44500,null,45300,45600,47000],
    "low":   [41800,null,44800,44900,45000],
    "close": [44100,null,45000,45200,46500],
    "volume":[100,null,200,300,400]
  }]}
}],"error":null}}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second, Now: func() time.Time { return testNow }})
}

func TestFetch_ParsesChart(t *testing.T) {
	var gotPath, gotInterval, gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(chartBody))
	})

	s, err := c.Fetch(context.Background(), "btc-usd", testRange)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/BTC-USD", gotPath)
	assert.Equal(t, "1d", gotInterval)
	assert.NotEmpty(t, gotUA)

	assert.Equal(t, "BTC-USD", s.Symbol)
	require.Len(t, s.Bars, 2, "null close dropped, duplicate collapsed, out-of-range excluded")
	assert.True(t, s.Bars[0].Date.Equal(testRange.From))
	assert.Equal(t, 44100.0, s.Bars[0].Close)
	assert.True(t, s.Bars[1].Date.Equal(testRange.From.AddDate(0, 0, 2)))
	assert.Equal(t, 45200.0, s.Bars[1].Close, "later row wins for a repeated date")
	assert.NoError(t, s.Validate())
}

func TestFetch_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})
	_, err := c.Fetch(context.Background(), "NOPE", testRange)
	assert.ErrorIs(t, err, marketdata.ErrNoData)
}

func TestFetch_EmptyResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"meta":{},"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`))
	})
	_, err := c.Fetch(context.Background(), "BTC-USD", testRange)
	assert.ErrorIs(t, err, marketdata.ErrNoData)
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(chartBody))
	})
	s, err := c.Fetch(context.Background(), "BTC-USD", testRange)
	require.NoError(t, err)
	assert.Len(t, s.Bars, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetch_UpstreamFailures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.Fetch(context.Background(), "BTC-USD", testRange)
	assert.ErrorIs(t, err, marketdata.ErrUpstream)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err = c.Fetch(context.Background(), "BTC-USD", testRange)
	assert.ErrorIs(t, err, marketdata.ErrUpstream)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	})
	_, err = c.Fetch(context.Background(), "BTC-USD", testRange)
	assert.ErrorIs(t, err, marketdata.ErrUpstream)

	// Closed server: transport error
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c = New(Config{BaseURL: srv.URL, MaxRetries: -1, Now: func() time.Time { return testNow }})
	_, err = c.Fetch(context.Background(), "BTC-USD", testRange)
	assert.ErrorIs(t, err, marketdata.ErrUpstream)
}

func TestFetch_ContextErrorsStayClassifiable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := c.Fetch(ctx, "BTC-USD", testRange)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, marketdata.ErrUpstream)
	assert.Equal(t, advisor.KindCanceled, advisor.ErrorKind(err))

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = c.Fetch(ctx, "BTC-USD", testRange)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, advisor.KindCanceled, advisor.ErrorKind(err))
}

func TestFetch_ValidatesRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.Fetch(context.Background(), "BTC-USD", model.DateRange{From: testRange.To, To: testRange.From})
	assert.ErrorIs(t, err, model.ErrInvalidRange)

	future := model.DateRange{From: testNow.AddDate(0, 0, 2), To: testNow.AddDate(0, 0, 5)}
	_, err = c.Fetch(context.Background(), "BTC-USD", future)
	assert.ErrorIs(t, err, model.ErrInvalidRange)
}
