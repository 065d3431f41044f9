package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrEmptySeries     = errors.New("price series is empty")
	ErrUnorderedSeries = errors.New("price series is not in chronological order")
	ErrDuplicateDate   = errors.New("price series has a duplicate date")
	ErrInvalidPrice    = errors.New("invalid close price: must be finite and positive")
)

// PriceBar is one daily OHLCV record. Only Close feeds the indicators; the
// rest is carried for the chart.
type PriceBar struct {
	Date   time.Time `json:"date"` // session date, UTC midnight
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is a chronologically ordered daily history for one symbol.
// It is owned by the caller; nothing in the analysis path mutates it.
type PriceSeries struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Closes returns a fresh slice of closing prices.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Dates returns a fresh slice of bar dates.
func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// Last returns the most recent bar, false if the series is empty.
func (s PriceSeries) Last() (PriceBar, bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Validate checks ordering, date uniqueness and close prices.
func (s PriceSeries) Validate() error {
	if len(s.Bars) == 0 {
		return ErrEmptySeries
	}
	for i, b := range s.Bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			return fmt.Errorf("bar %d (%s): %w", i, b.Date.Format(DateLayout), ErrInvalidPrice)
		}
		if i == 0 {
			continue
		}
		prev := s.Bars[i-1].Date
		switch {
		case b.Date.Equal(prev):
			return fmt.Errorf("bar %d (%s): %w", i, b.Date.Format(DateLayout), ErrDuplicateDate)
		case b.Date.Before(prev):
			return fmt.Errorf("bar %d (%s after %s): %w", i, b.Date.Format(DateLayout), prev.Format(DateLayout), ErrUnorderedSeries)
		}
	}
	return nil
}
