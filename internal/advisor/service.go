// Package advisor runs one end-to-end recommendation: fetch the history,
// analyze it, build the chart, record metrics and send the alert.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fuzzy-advisor/internal/analysis"
	"fuzzy-advisor/internal/chart"
	"fuzzy-advisor/internal/fuzzy"
	"fuzzy-advisor/internal/indicator"
	"fuzzy-advisor/internal/logger"
	"fuzzy-advisor/internal/marketdata"
	"fuzzy-advisor/internal/metrics"
	"fuzzy-advisor/internal/model"
	"fuzzy-advisor/internal/notification"
)

// Request names the asset and the history window to analyze.
type Request struct {
	Symbol string
	Range  model.DateRange
}

// Report is the outcome of one run.
type Report struct {
	RunID    string          `json:"run_id"`
	Symbol   string          `json:"symbol"`
	Range    model.DateRange `json:"range"`
	Bars     int             `json:"bars"`
	Result   analysis.Result `json:"result"`
	Chart    chart.Chart     `json:"chart"`
	Duration time.Duration   `json:"duration_ns"`
}

// Config wires the service. Source and Analyzer are required.
type Config struct {
	Source   model.PriceSource
	Analyzer *analysis.Analyzer
	Notifier notification.Notifier
	Metrics  *metrics.Metrics
	Health   *metrics.HealthStatus
	Logger   *slog.Logger

	// NotifyOnChange sends an alert only when a symbol's label differs from
	// the previous run. Otherwise every run alerts.
	NotifyOnChange bool
}

// Service is safe for concurrent use.
type Service struct {
	source         model.PriceSource
	analyzer       *analysis.Analyzer
	notifier       notification.Notifier
	m              *metrics.Metrics
	health         *metrics.HealthStatus
	log            *slog.Logger
	notifyOnChange bool

	mu   sync.Mutex
	last map[string]model.Recommendation
}

// New validates the config.
func New(cfg Config) (*Service, error) {
	if cfg.Source == nil {
		return nil, errors.New("advisor: price source is required")
	}
	if cfg.Analyzer == nil {
		return nil, errors.New("advisor: analyzer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		source:         cfg.Source,
		analyzer:       cfg.Analyzer,
		notifier:       cfg.Notifier,
		m:              cfg.Metrics,
		health:         cfg.Health,
		log:            cfg.Logger,
		notifyOnChange: cfg.NotifyOnChange,
		last:           make(map[string]model.Recommendation),
	}, nil
}

// Analyzer returns the analyzer in use.
func (s *Service) Analyzer() *analysis.Analyzer { return s.analyzer }

// Run fetches, analyzes and reports. The context's run ID is reused when
// present, otherwise a new one is assigned.
func (s *Service) Run(ctx context.Context, req Request) (Report, error) {
	ctx, runID := logger.EnsureRunID(ctx)
	start := time.Now()
	symbol := marketdata.NormalizeSymbol(req.Symbol)
	log := s.log.With(logger.Attrs(ctx)...).With(
		slog.String("symbol", symbol),
		slog.String("range", req.Range.Key()),
	)

	series, err := s.source.Fetch(ctx, symbol, req.Range)
	if err != nil {
		s.fail(log, "fetch failed", err)
		return Report{}, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	inferStart := time.Now()
	res, err := s.analyzer.Analyze(series)
	if s.m != nil {
		s.m.InferenceDur.Observe(time.Since(inferStart).Seconds())
	}
	if err != nil {
		s.fail(log, "analysis failed", err, slog.Int("bars", series.Len()))
		return Report{}, err
	}

	rep := Report{
		RunID:    runID,
		Symbol:   symbol,
		Range:    req.Range,
		Bars:     series.Len(),
		Result:   res,
		Chart:    chart.Build(res),
		Duration: time.Since(start),
	}

	if s.m != nil {
		s.m.AnalysesTotal.WithLabelValues(res.Recommendation.String()).Inc()
		s.m.AnalysisDur.Observe(rep.Duration.Seconds())
		s.m.BarsPerAnalysis.Observe(float64(rep.Bars))
		s.m.LastScore.WithLabelValues(symbol).Set(res.Score)
		s.m.LastOscillator.WithLabelValues(symbol).Set(res.Oscillator)
	}
	if s.health != nil {
		s.health.RecordAnalysis(time.Now())
	}

	log.Info("analysis complete",
		slog.Int("bars", rep.Bars),
		slog.String("as_of", res.AsOf.Format(model.DateLayout)),
		slog.Float64("rsi", res.Oscillator),
		slog.Float64("score", res.Score),
		slog.String("recommendation", res.Recommendation.String()),
		slog.Duration("duration", rep.Duration),
	)

	s.notify(ctx, log, rep)
	return rep, nil
}

func (s *Service) fail(log *slog.Logger, msg string, err error, attrs ...any) {
	kind := ErrorKind(err)
	if s.m != nil {
		s.m.AnalysisErrors.WithLabelValues(kind).Inc()
	}
	args := append([]any{slog.String("kind", kind), slog.String("error", err.Error())}, attrs...)
	if kind == KindUpstream || kind == KindInternal {
		log.Error(msg, args...)
		return
	}
	log.Warn(msg, args...)
}

// notify sends the alert. Delivery failures are logged, never returned.
func (s *Service) notify(ctx context.Context, log *slog.Logger, rep Report) {
	if s.notifier == nil {
		return
	}
	rec := rep.Result.Recommendation

	s.mu.Lock()
	prev, seen := s.last[rep.Symbol]
	s.last[rep.Symbol] = rec
	s.mu.Unlock()

	if s.notifyOnChange && seen && prev == rec {
		return
	}

	alert := notification.RecommendationAlert(rep.Symbol, rec, rep.Result.Score, rep.Result.Oscillator, rep.Result.AsOf, rep.RunID)
	status := "sent"
	if err := s.notifier.Send(ctx, alert); err != nil {
		status = "failed"
		log.Warn("notification failed", slog.String("error", err.Error()))
	}
	if s.m != nil {
		s.m.Notifications.WithLabelValues(channelName(s.notifier), status).Inc()
	}
}

func channelName(n notification.Notifier) string {
	switch n.(type) {
	case *notification.WebhookNotifier:
		return "webhook"
	case *notification.TelegramNotifier:
		return "telegram"
	case *notification.LogNotifier:
		return "log"
	case notification.Multi:
		return "multi"
	default:
		return "other"
	}
}

// Error kinds used for metrics labels and HTTP status mapping.
const (
	KindInsufficientHistory = "insufficient_history"
	KindInvalidRange        = "invalid_range"
	KindInvalidSeries       = "invalid_series"
	KindNoData              = "no_data"
	KindUpstream            = "upstream"
	KindInference           = "undefined_inference"
	KindConfiguration       = "configuration"
	KindCanceled            = "canceled"
	KindInternal            = "internal"
)

// ErrorKind classifies an error from Run.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, indicator.ErrInsufficientHistory):
		return KindInsufficientHistory
	case errors.Is(err, model.ErrInvalidRange):
		return KindInvalidRange
	case errors.Is(err, model.ErrUnorderedSeries), errors.Is(err, model.ErrDuplicateDate),
		errors.Is(err, model.ErrInvalidPrice), errors.Is(err, model.ErrEmptySeries):
		return KindInvalidSeries
	case errors.Is(err, marketdata.ErrNoData):
		return KindNoData
	case errors.Is(err, marketdata.ErrUpstream):
		return KindUpstream
	case errors.Is(err, fuzzy.ErrUndefinedInference):
		return KindInference
	case errors.Is(err, fuzzy.ErrConfiguration), errors.Is(err, indicator.ErrInvalidPeriod):
		return KindConfiguration
	default:
		return KindInternal
	}
}
