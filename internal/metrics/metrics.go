package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the advisor.
type Metrics struct {
	// Analysis metrics
	AnalysesTotal   *prometheus.CounterVec // labels: recommendation
	AnalysisErrors  *prometheus.CounterVec // labels: kind
	AnalysisDur     prometheus.Histogram
	InferenceDur    prometheus.Histogram
	LastScore       *prometheus.GaugeVec // labels: symbol
	LastOscillator  *prometheus.GaugeVec // labels: symbol
	BarsPerAnalysis prometheus.Histogram

	// Data path metrics
	FetchDur       *prometheus.HistogramVec // labels: source
	CacheHits      *prometheus.CounterVec   // labels: layer
	CacheMisses    *prometheus.CounterVec   // labels: layer
	StoreWriteDur  prometheus.Histogram
	UpstreamErrors prometheus.Counter

	// Circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// Outer surfaces
	WSSessions    prometheus.Gauge
	Notifications *prometheus.CounterVec // labels: channel, status
}

// NewMetrics registers all metrics on the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_analyses_total",
			Help: "Completed analyses by recommendation",
		}, []string{"recommendation"}),
		AnalysisErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_analysis_errors_total",
			Help: "Failed analyses by error kind",
		}, []string{"kind"}),
		AnalysisDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "advisor_analysis_duration_seconds",
			Help:    "End-to-end latency of one advisor run (fetch + analyze)",
			Buckets: prometheus.DefBuckets,
		}),
		InferenceDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "advisor_inference_duration_seconds",
			Help:    "Indicator and fuzzy inference latency",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		LastScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "advisor_last_score",
			Help: "Most recent defuzzified score (0-10)",
		}, []string{"symbol"}),
		LastOscillator: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "advisor_last_rsi",
			Help: "Most recent RSI value fed to the fuzzy engine",
		}, []string{"symbol"}),
		BarsPerAnalysis: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "advisor_bars_per_analysis",
			Help:    "Number of daily bars per analysis",
			Buckets: []float64{15, 30, 60, 120, 250, 500, 1000, 2500},
		}),

		FetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "advisor_fetch_duration_seconds",
			Help:    "Price history fetch latency by source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_cache_hits_total",
			Help: "Price history served from a cache layer",
		}, []string{"layer"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_cache_misses_total",
			Help: "Price history lookups that fell through a cache layer",
		}, []string{"layer"}),
		StoreWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "advisor_store_write_duration_seconds",
			Help:    "Bar store write-back latency",
			Buckets: prometheus.DefBuckets,
		}),
		UpstreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "advisor_upstream_errors_total",
			Help: "Failed requests to the remote price provider",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "advisor_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "advisor_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		WSSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "advisor_ws_sessions",
			Help: "Open chart websocket sessions",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_notifications_total",
			Help: "Recommendation notifications by channel and status",
		}, []string{"channel", "status"}),
	}

	reg.MustRegister(
		m.AnalysesTotal,
		m.AnalysisErrors,
		m.AnalysisDur,
		m.InferenceDur,
		m.LastScore,
		m.LastOscillator,
		m.BarsPerAnalysis,
		m.FetchDur,
		m.CacheHits,
		m.CacheMisses,
		m.StoreWriteDur,
		m.UpstreamErrors,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.WSSessions,
		m.Notifications,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisEnabled   bool      `json:"redis_enabled"`
	RedisConnected bool      `json:"redis_connected"`
	StoreEnabled   bool      `json:"store_enabled"`
	StoreOK        bool      `json:"store_ok"`
	ProviderOK     bool      `json:"provider_ok"`
	LastAnalysisAt time.Time `json:"last_analysis_at"`
	LastError      string    `json:"last_error"`

	// Liveness probe results
	RedisLatencyMs float64   `json:"redis_latency_ms"`
	StoreLatencyMs float64   `json:"store_latency_ms"`
	LastCheckAt    time.Time `json:"last_check_at"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status. The provider is assumed
// reachable until a fetch fails.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		ProviderOK: true,
		StartedAt:  time.Now(),
	}
}

// EnableRedis marks the Redis cache as configured; its probe then counts
// toward overall health.
func (h *HealthStatus) EnableRedis() {
	h.mu.Lock()
	h.RedisEnabled = true
	h.mu.Unlock()
}

// EnableStore marks the bar store as configured.
func (h *HealthStatus) EnableStore() {
	h.mu.Lock()
	h.StoreEnabled = true
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetStoreOK(v bool) {
	h.mu.Lock()
	h.StoreOK = v
	h.mu.Unlock()
}

// RecordFetch notes the outcome of the last remote fetch.
func (h *HealthStatus) RecordFetch(err error) {
	h.mu.Lock()
	h.ProviderOK = err == nil
	if err != nil {
		h.LastError = err.Error()
	}
	h.mu.Unlock()
}

// RecordAnalysis stamps the time of the last completed analysis.
func (h *HealthStatus) RecordAnalysis(t time.Time) {
	h.mu.Lock()
	h.LastAnalysisAt = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckStore pings the bar store database and records latency + health.
func (h *HealthStatus) CheckStore(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.StoreOK = err == nil
	h.StoreLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil clients are skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if db != nil {
					h.CheckStore(probeCtx, db)
				}
				cancel()
			}
		}
	}()
}

// Status computes the overall state: healthy, degraded (an enabled
// dependency is down) or unhealthy (the provider is down and no local copy
// of prices is reachable).
func (h *HealthStatus) Status() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.statusLocked()
}

func (h *HealthStatus) statusLocked() string {
	redisDown := h.RedisEnabled && !h.RedisConnected
	storeDown := h.StoreEnabled && !h.StoreOK
	localAvailable := (h.RedisEnabled && h.RedisConnected) || (h.StoreEnabled && h.StoreOK)

	switch {
	case !h.ProviderOK && !localAvailable:
		return "unhealthy"
	case !h.ProviderOK || redisDown || storeDown:
		return "degraded"
	default:
		return "healthy"
	}
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := h.statusLocked()
	httpCode := http.StatusOK
	if overallStatus != "healthy" {
		httpCode = http.StatusServiceUnavailable
	}

	lastAnalysis := ""
	if !h.LastAnalysisAt.IsZero() {
		lastAnalysis = h.LastAnalysisAt.Format(time.RFC3339)
	}

	status := struct {
		Status         string  `json:"status"`
		Uptime         string  `json:"uptime"`
		ProviderOK     bool    `json:"provider_ok"`
		LastError      string  `json:"last_error,omitempty"`
		LastAnalysisAt string  `json:"last_analysis_at"`
		RedisEnabled   bool    `json:"redis_enabled"`
		RedisConnected bool    `json:"redis_connected"`
		RedisLatencyMs float64 `json:"redis_latency_ms"`
		StoreEnabled   bool    `json:"store_enabled"`
		StoreOK        bool    `json:"store_ok"`
		StoreLatencyMs float64 `json:"store_latency_ms"`
		LastCheckAt    string  `json:"last_check_at"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		ProviderOK:     h.ProviderOK,
		LastError:      h.LastError,
		LastAnalysisAt: lastAnalysis,
		RedisEnabled:   h.RedisEnabled,
		RedisConnected: h.RedisConnected,
		RedisLatencyMs: h.RedisLatencyMs,
		StoreEnabled:   h.StoreEnabled,
		StoreOK:        h.StoreOK,
		StoreLatencyMs: h.StoreLatencyMs,
		LastCheckAt:    h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
