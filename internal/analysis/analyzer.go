// Package analysis is the recommendation core: price series → RSI → fuzzy
// inference → label. It performs no I/O and keeps no state between calls.
package analysis

import (
	"errors"
	"fmt"
	"time"

	"fuzzy-advisor/internal/decision"
	"fuzzy-advisor/internal/fuzzy"
	"fuzzy-advisor/internal/indicator"
	"fuzzy-advisor/internal/model"
)

// Options configures an Analyzer. Zero values select the defaults.
type Options struct {
	Indicators indicator.Config
	Engine     *fuzzy.Engine
	Thresholds decision.Thresholds
}

// Analyzer holds immutable configuration and is safe for concurrent use as
// long as each call gets its own series.
type Analyzer struct {
	indicators indicator.Config
	engine     *fuzzy.Engine
	thresholds decision.Thresholds
}

// Result is the outcome of one analysis.
type Result struct {
	Symbol         string                `json:"symbol"`
	AsOf           time.Time             `json:"as_of"` // date of the last bar
	Recommendation model.Recommendation  `json:"recommendation"`
	Score          float64               `json:"score"`
	Oscillator     float64               `json:"rsi"`
	Inference      fuzzy.Inference       `json:"inference"`
	Indicators     model.IndicatorSeries `json:"-"`
}

// New validates the options. Invalid configuration wraps fuzzy.ErrConfiguration
// or indicator.ErrInvalidPeriod.
func New(opts Options) (*Analyzer, error) {
	if opts.Indicators == (indicator.Config{}) {
		opts.Indicators = indicator.DefaultConfig()
	}
	if err := opts.Indicators.Validate(); err != nil {
		return nil, err
	}
	if opts.Engine == nil {
		e, err := fuzzy.NewDefaultEngine()
		if err != nil {
			return nil, err
		}
		opts.Engine = e
	}
	if opts.Thresholds == (decision.Thresholds{}) {
		opts.Thresholds = decision.DefaultThresholds()
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{
		indicators: opts.Indicators,
		engine:     opts.Engine,
		thresholds: opts.Thresholds,
	}, nil
}

// Default returns an Analyzer with SMA 30, RSI 14, the built-in fuzzy
// system and 7/3 thresholds.
func Default() *Analyzer {
	a, err := New(Options{})
	if err != nil {
		// the built-in configuration is covered by tests
		panic(err)
	}
	return a
}

// Engine returns the fuzzy engine in use.
func (a *Analyzer) Engine() *fuzzy.Engine { return a.engine }

// IndicatorConfig returns the indicator configuration in use.
func (a *Analyzer) IndicatorConfig() indicator.Config { return a.indicators }

// Thresholds returns the decision thresholds in use.
func (a *Analyzer) Thresholds() decision.Thresholds { return a.thresholds }

// Analyze computes the indicators, runs inference on the latest RSI and
// classifies the score. A series with fewer than RSIPeriod+1 closes fails
// with indicator.ErrInsufficientHistory.
func (a *Analyzer) Analyze(series model.PriceSeries) (Result, error) {
	if err := series.Validate(); err != nil {
		if errors.Is(err, model.ErrEmptySeries) {
			return Result{}, fmt.Errorf("analyze %s: 0 closes: %w", series.Symbol, indicator.ErrInsufficientHistory)
		}
		return Result{}, fmt.Errorf("analyze %s: %w", series.Symbol, err)
	}

	ind, err := indicator.Compute(series, a.indicators)
	if err != nil {
		return Result{}, fmt.Errorf("analyze %s: %w", series.Symbol, err)
	}
	rsi, err := indicator.LatestOscillator(ind)
	if err != nil {
		return Result{}, fmt.Errorf("analyze %s: %w", series.Symbol, err)
	}
	inf, err := a.engine.Explain(rsi)
	if err != nil {
		return Result{}, fmt.Errorf("analyze %s: %w", series.Symbol, err)
	}

	last, _ := series.Last()
	return Result{
		Symbol:         series.Symbol,
		AsOf:           last.Date,
		Recommendation: a.thresholds.Classify(inf.Score),
		Score:          inf.Score,
		Oscillator:     rsi,
		Inference:      inf,
		Indicators:     ind,
	}, nil
}

// Infer runs the fuzzy engine on a raw oscillator value.
func (a *Analyzer) Infer(rsi float64) (float64, error) {
	return a.engine.Infer(rsi)
}

// Classify maps a score with the configured thresholds.
func (a *Analyzer) Classify(score float64) model.Recommendation {
	return a.thresholds.Classify(score)
}
