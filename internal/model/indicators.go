package model

import (
	"math"
	"time"
)

// IndicatorSeries holds derived series aligned index-for-index with the
// PriceSeries it was computed from. Entries without enough history are NaN
// (absent), never zero. Treat as immutable once produced.
type IndicatorSeries struct {
	Symbol    string
	Dates     []time.Time
	Close     []float64
	SMA       []float64
	RSI       []float64
	SMAWindow int
	RSIPeriod int
}

// Len returns the number of aligned entries.
func (s IndicatorSeries) Len() int { return len(s.Close) }

// LastDefined returns the index and value of the most recent non-NaN entry
// in values, or -1 when every entry is absent.
func LastDefined(values []float64) (int, float64) {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return i, values[i]
		}
	}
	return -1, math.NaN()
}

// Recommendation is the discrete trading label.
type Recommendation string

const (
	RecommendBuy  Recommendation = "BUY"
	RecommendHold Recommendation = "HOLD"
	RecommendSell Recommendation = "SELL"
)

func (r Recommendation) String() string { return string(r) }
