// Package chart shapes an analysis into a two-panel chart payload: closing
// price with its moving average, and the RSI oscillator with overbought and
// oversold guide lines. Rendering is left to the client.
package chart

import (
	"fmt"
	"math"

	"fuzzy-advisor/internal/analysis"
	"fuzzy-advisor/internal/model"
)

const (
	Overbought = 70.0
	Oversold   = 30.0
)

// Series is one plotted line. Nil entries are gaps (no value for that date).
type Series struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// Line is a horizontal guide.
type Line struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Panel is one chart area sharing the payload's date axis.
type Panel struct {
	Title  string   `json:"title"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Series []Series `json:"series"`
	Lines  []Line   `json:"lines,omitempty"`
}

// Chart is the full payload.
type Chart struct {
	Symbol     string   `json:"symbol"`
	Dates      []string `json:"dates"`
	Price      Panel    `json:"price"`
	Oscillator Panel    `json:"oscillator"`
}

// Build produces the chart for a completed analysis.
func Build(res analysis.Result) Chart {
	return FromIndicators(res.Indicators)
}

// FromIndicators produces the chart from aligned indicator series.
func FromIndicators(ind model.IndicatorSeries) Chart {
	dates := make([]string, len(ind.Dates))
	for i, d := range ind.Dates {
		dates[i] = d.Format(model.DateLayout)
	}
	lo, hi := 0.0, 100.0

	return Chart{
		Symbol: ind.Symbol,
		Dates:  dates,
		Price: Panel{
			Title: fmt.Sprintf("%s close", ind.Symbol),
			Series: []Series{
				{Name: "Close", Values: points(ind.Close)},
				{Name: fmt.Sprintf("SMA %d", ind.SMAWindow), Values: points(ind.SMA)},
			},
		},
		Oscillator: Panel{
			Title: fmt.Sprintf("RSI %d", ind.RSIPeriod),
			Min:   &lo,
			Max:   &hi,
			Series: []Series{
				{Name: fmt.Sprintf("RSI %d", ind.RSIPeriod), Values: points(ind.RSI)},
			},
			Lines: []Line{
				{Name: "Overbought", Value: Overbought},
				{Name: "Oversold", Value: Oversold},
			},
		},
	}
}

// points converts NaN (absent) entries to nil so the payload encodes as JSON.
func points(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		v := values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = &v
	}
	return out
}
