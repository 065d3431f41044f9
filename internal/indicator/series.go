package indicator

import (
	"fmt"
	"math"

	"fuzzy-advisor/internal/model"
)

// Config specifies the indicators computed for an analysis.
type Config struct {
	SMAWindow int       // moving-average window, 30 by default
	RSIPeriod int       // oscillator period, 14 by default
	Smoothing Smoothing // RSI averaging method
}

// DefaultConfig returns SMA 30 and a simple-average RSI 14.
func DefaultConfig() Config {
	return Config{SMAWindow: 30, RSIPeriod: 14, Smoothing: SmoothingSimple}
}

// Validate rejects non-positive windows.
func (c Config) Validate() error {
	if c.SMAWindow <= 0 {
		return fmt.Errorf("sma window %d: %w", c.SMAWindow, ErrInvalidPeriod)
	}
	if c.RSIPeriod <= 0 {
		return fmt.Errorf("rsi period %d: %w", c.RSIPeriod, ErrInvalidPeriod)
	}
	return nil
}

// MinHistory is the number of closes needed for one defined RSI value.
func (c Config) MinHistory() int { return c.RSIPeriod + 1 }

// Defined reports whether a series entry holds a value.
func Defined(v float64) bool { return !math.IsNaN(v) }

// SMASeries returns the moving average aligned with closes. Entries before
// the window fills are NaN.
func SMASeries(closes []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("sma window %d: %w", window, ErrInvalidPeriod)
	}
	return run(NewSMA(window), closes), nil
}

// RSISeries returns the oscillator aligned with closes. Entries before
// period+1 closes are NaN; a series shorter than that is all NaN.
func RSISeries(closes []float64, period int, smoothing Smoothing) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("rsi period %d: %w", period, ErrInvalidPeriod)
	}
	return run(NewRSI(period, smoothing), closes), nil
}

func run(ind Indicator, closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i, c := range closes {
		ind.Update(c)
		if ind.Ready() {
			out[i] = ind.Value()
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Compute derives the full moving-average and oscillator series for display
// and analysis. The input series is only read.
func Compute(series model.PriceSeries, cfg Config) (model.IndicatorSeries, error) {
	if err := cfg.Validate(); err != nil {
		return model.IndicatorSeries{}, err
	}

	n := series.Len()
	out := model.IndicatorSeries{
		Symbol:    series.Symbol,
		Dates:     series.Dates(),
		Close:     series.Closes(),
		SMA:       make([]float64, n),
		RSI:       make([]float64, n),
		SMAWindow: cfg.SMAWindow,
		RSIPeriod: cfg.RSIPeriod,
	}

	// One pass, both indicators
	sma := NewSMA(cfg.SMAWindow)
	rsi := NewRSI(cfg.RSIPeriod, cfg.Smoothing)
	for i, c := range out.Close {
		sma.Update(c)
		rsi.Update(c)
		out.SMA[i] = valueOrNaN(sma)
		out.RSI[i] = valueOrNaN(rsi)
	}
	return out, nil
}

func valueOrNaN(ind Indicator) float64 {
	if ind.Ready() {
		return ind.Value()
	}
	return math.NaN()
}

// LatestOscillator returns the most recent defined RSI value.
func LatestOscillator(ind model.IndicatorSeries) (float64, error) {
	idx, v := model.LastDefined(ind.RSI)
	if idx < 0 {
		return 0, fmt.Errorf("%d closes, need at least %d for RSI(%d): %w",
			ind.Len(), ind.RSIPeriod+1, ind.RSIPeriod, ErrInsufficientHistory)
	}
	return v, nil
}
