// Package watch re-runs the analysis for a list of symbols on a cron
// schedule. Alerts come from the service's notifier, so with NotifyOnChange
// a scheduled run only alerts when a symbol's recommendation flips.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"fuzzy-advisor/internal/advisor"
	"fuzzy-advisor/internal/logger"
	"fuzzy-advisor/internal/model"
)

// Runner runs one analysis. *advisor.Service implements it.
type Runner interface {
	Run(ctx context.Context, req advisor.Request) (advisor.Report, error)
}

// Config configures a Watcher.
type Config struct {
	Schedule string   // standard 5-field cron spec or descriptor such as "@daily"
	Symbols  []string // analysed in order on every tick
	Timeout  time.Duration
	Now      func() time.Time
}

// Outcome is the result of one scheduled analysis.
type Outcome struct {
	Symbol         string
	Recommendation model.Recommendation
	Score          float64
	Err            error
}

// Watcher owns a cron scheduler with a single job.
type Watcher struct {
	runner  Runner
	symbols []string
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// New validates the schedule and registers the job. Start must be called to
// begin ticking.
func New(runner Runner, cfg Config, log *slog.Logger) (*Watcher, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("watch: no symbols")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		runner:  runner,
		symbols: cfg.Symbols,
		timeout: cfg.Timeout,
		now:     cfg.Now,
		log:     log.With(slog.String("component", "watch")),
		ctx:     ctx,
		cancel:  cancel,
	}

	cl := cronLogger{w.log}
	w.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := w.cron.AddFunc(cfg.Schedule, func() { w.RunOnce(w.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("watch: schedule %q: %w", cfg.Schedule, err)
	}
	return w, nil
}

// Start begins the schedule in its own goroutine.
func (w *Watcher) Start() {
	w.cron.Start()
	w.log.Info("watch started", "symbols", w.symbols, "next", w.Next())
}

// Stop halts the schedule, cancels a run in progress and waits for it.
func (w *Watcher) Stop() {
	done := w.cron.Stop()
	w.cancel()
	<-done.Done()
}

// Next returns the next scheduled run, or zero before Start.
func (w *Watcher) Next() time.Time {
	entries := w.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce analyses every symbol over the default lookback ending today.
// One symbol failing does not stop the others.
func (w *Watcher) RunOnce(ctx context.Context) []Outcome {
	out := make([]Outcome, 0, len(w.symbols))
	for _, sym := range w.symbols {
		if ctx.Err() != nil {
			break
		}
		out = append(out, w.runSymbol(ctx, sym))
	}
	return out
}

func (w *Watcher) runSymbol(ctx context.Context, symbol string) Outcome {
	req, err := advisor.ParseRequest(symbol, "", "", symbol, w.now())
	if err != nil {
		return Outcome{Symbol: symbol, Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	ctx = logger.WithRunID(ctx, logger.NewRunID())

	rep, err := w.runner.Run(ctx, req)
	if err != nil {
		// the service already logged the failure with its kind
		return Outcome{Symbol: req.Symbol, Err: err}
	}
	return Outcome{
		Symbol:         rep.Symbol,
		Recommendation: rep.Result.Recommendation,
		Score:          rep.Result.Score,
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
