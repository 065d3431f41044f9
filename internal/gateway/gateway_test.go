package gateway

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuzzy-advisor/internal/advisor"
	"fuzzy-advisor/internal/analysis"
	"fuzzy-advisor/internal/marketdata"
	"fuzzy-advisor/internal/metrics"
	"fuzzy-advisor/internal/model"
)

var (
	testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	day0    = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	bars := make([]model.PriceBar, 60)
	for i := range bars {
		bars[i] = model.PriceBar{Date: day0.AddDate(0, 0, i), Close: 200 - float64(i)}
	}
	svc, err := advisor.New(advisor.Config{
		Source:   marketdata.NewStatic(model.PriceSeries{Symbol: "BTC-USD", Bars: bars}),
		Analyzer: analysis.Default(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	hub := NewHub(svc, "BTC-USD", m, func() time.Time { return testNow })
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestSession_AnalyzeReturnsChart(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Request{
		Type: TypeAnalyze, ReqID: "r1", Symbol: "btc-usd", From: "2024-01-01", To: "2024-03-01",
	}))
	msg := readMessage(t, conn)

	require.Equal(t, TypeAnalysis, msg.Type, msg.Error)
	assert.Equal(t, "r1", msg.ReqID)
	require.NotNil(t, msg.Data)
	assert.Equal(t, "BTC-USD", msg.Data.Symbol)
	assert.Equal(t, 60, msg.Data.Bars)
	assert.Equal(t, model.RecommendBuy, msg.Data.Recommendation)
	assert.NotEmpty(t, msg.Data.RunID)
	require.NotNil(t, msg.Data.Chart)
	assert.Len(t, msg.Data.Chart.Dates, 60)
}

func TestSession_DefaultSymbolAndType(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]string{"req_id": "r2", "from": "2024-01-01", "to": "2024-03-01"}))
	msg := readMessage(t, conn)
	require.Equal(t, TypeAnalysis, msg.Type, msg.Error)
	assert.Equal(t, "BTC-USD", msg.Data.Symbol)
}

func TestSession_Errors(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv)

	tests := []struct {
		name string
		req  Request
		kind string
	}{
		{"reversed range", Request{ReqID: "a", From: "2024-03-01", To: "2024-01-01"}, advisor.KindInvalidRange},
		{"bad date", Request{ReqID: "b", From: "01/01/2024", To: "2024-03-01"}, advisor.KindInvalidRange},
		{"short history", Request{ReqID: "c", From: "2024-01-01", To: "2024-01-10"}, advisor.KindInsufficientHistory},
		{"unknown symbol", Request{ReqID: "d", Symbol: "NOPE", From: "2024-01-01", To: "2024-03-01"}, advisor.KindNoData},
		{"unknown type", Request{ReqID: "e", Type: "SUBSCRIBE"}, "invalid_message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteJSON(tt.req))
			msg := readMessage(t, conn)
			assert.Equal(t, TypeError, msg.Type)
			assert.Equal(t, tt.req.ReqID, msg.ReqID)
			assert.Equal(t, tt.kind, msg.Kind)
			assert.NotEmpty(t, msg.Error)
		})
	}
}

func TestSession_InvalidJSONKeepsSessionOpen(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := readMessage(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, "invalid_message", msg.Kind)

	require.NoError(t, conn.WriteJSON(Request{From: "2024-01-01", To: "2024-03-01"}))
	msg = readMessage(t, conn)
	assert.Equal(t, TypeAnalysis, msg.Type, msg.Error)
}

func TestSession_Ping(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Request{Ping: 42}))
	msg := readMessage(t, conn)
	assert.Equal(t, TypePong, msg.Type)
	assert.Equal(t, int64(42), msg.Ping)
	assert.Positive(t, msg.ServerTS)
}

func TestHub_TracksSessions(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv)

	assert.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseEndsSessions(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv)
	assert.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Count())

	// new sessions are refused after Close
	late := dial(t, srv)
	late.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = late.ReadMessage()
	assert.Error(t, err)
}
