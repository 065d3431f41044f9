package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"fuzzy-advisor/internal/advisor"
	"fuzzy-advisor/internal/api"
	"fuzzy-advisor/internal/gateway"
	"fuzzy-advisor/internal/metrics"
	"fuzzy-advisor/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket chart session and metrics",
	Long: `Serves:
  GET /api/v1/analyze       recommendation (+ chart) for a symbol and range
  GET /api/v1/fuzzy         active fuzzy rule base
  GET /api/v1/fuzzy/infer   evaluate the rule base on a raw RSI value
  GET /ws/chart             websocket chart session
  GET /healthz, /metrics    probes

With WATCH_SCHEDULE set (e.g. "0 1 * * *"), WATCH_SYMBOLS are re-analysed on
that schedule and alerts go out through the configured notifiers.

Ctrl+C shuts down gracefully.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log.Info("starting", "addr", cfg.HTTPAddr, "store", cfg.PriceStore, "redis", cfg.RedisAddr != "")

	// ---- Metrics & health ----
	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	var metricsSrv *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(cfg.MetricsAddr, health)
		metricsSrv.Start()
	}

	// ---- Data path ----
	comps := buildComponents(ctx, cfg, m, health)
	defer comps.Close()

	var rdb *goredis.Client
	if comps.cache != nil {
		rdb = comps.cache.Client()
	}
	health.StartLivenessChecker(ctx, rdb, comps.db, 10*time.Second)

	// ---- Analysis ----
	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return err
	}
	def, err := cfg.FuzzyDefinition()
	if err != nil {
		return err
	}
	svc, err := advisor.New(advisor.Config{
		Source:         comps.source,
		Analyzer:       analyzer,
		Notifier:       buildNotifier(cfg),
		Metrics:        m,
		Health:         health,
		Logger:         log,
		NotifyOnChange: cfg.NotifyOnChange,
	})
	if err != nil {
		return err
	}

	// ---- Scheduled re-analysis ----
	if cfg.WatchSchedule != "" {
		w, err := watch.New(svc, watch.Config{
			Schedule: cfg.WatchSchedule,
			Symbols:  cfg.Watchlist(),
			Timeout:  cfg.RequestTimeout,
		}, log)
		if err != nil {
			return err
		}
		w.Start()
		defer w.Stop()
	}

	// ---- HTTP ----
	hub := gateway.NewHub(svc, cfg.Symbol, m, nil)
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Config{
			Service:       svc,
			Definition:    def,
			DefaultSymbol: cfg.Symbol,
			Health:        health,
			Chart:         hub,
			TOTPSecret:    cfg.TOTPSecret,
			Timeout:       cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr, "auth", cfg.TOTPSecret != "")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ---- Wait for shutdown signal ----
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	if metricsSrv != nil {
		metricsSrv.Stop(shutdownCtx)
	}

	log.Info("shutdown complete")
	return nil
}
