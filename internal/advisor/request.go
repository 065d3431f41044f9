package advisor

import (
	"time"

	"fuzzy-advisor/internal/chart"
	"fuzzy-advisor/internal/fuzzy"
	"fuzzy-advisor/internal/marketdata"
	"fuzzy-advisor/internal/model"
)

// DefaultLookback is the history window used when no start date is given.
const DefaultLookback = 180 * 24 * time.Hour

// ParseRequest builds a Request from outer-surface strings. An empty symbol
// falls back to defaultSymbol; an empty end date means "through today" and an
// empty start date means DefaultLookback before the end.
func ParseRequest(symbol, from, to, defaultSymbol string, now time.Time) (Request, error) {
	symbol = marketdata.NormalizeSymbol(symbol)
	if symbol == "" {
		symbol = marketdata.NormalizeSymbol(defaultSymbol)
	}

	today := now.UTC().Truncate(24 * time.Hour)
	if to == "" {
		to = today.AddDate(0, 0, 1).Format(model.DateLayout)
	}
	if from == "" {
		end, err := time.Parse(model.DateLayout, to)
		if err == nil {
			from = end.Add(-DefaultLookback).Format(model.DateLayout)
		}
	}

	r, err := model.ParseDateRange(from, to, now)
	if err != nil {
		return Request{}, err
	}
	return Request{Symbol: symbol, Range: r}, nil
}

// Summary is the flat response shape shared by the HTTP API, the websocket
// chart session and the CLI's JSON output.
type Summary struct {
	RunID          string               `json:"run_id"`
	Symbol         string               `json:"symbol"`
	From           string               `json:"from"`
	To             string               `json:"to"`
	Bars           int                  `json:"bars"`
	AsOf           string               `json:"as_of"`
	Recommendation model.Recommendation `json:"recommendation"`
	Score          float64              `json:"score"`
	RSI            float64              `json:"rsi"`
	Degrees        fuzzy.Degrees        `json:"degrees"`
	Activations    []fuzzy.Activation   `json:"activations"`
	DurationMs     float64              `json:"duration_ms"`
	Chart          *chart.Chart         `json:"chart,omitempty"`
}

// Summary flattens the report. The chart is included when withChart is set.
func (r Report) Summary(withChart bool) Summary {
	s := Summary{
		RunID:          r.RunID,
		Symbol:         r.Symbol,
		From:           r.Range.From.Format(model.DateLayout),
		To:             r.Range.To.Format(model.DateLayout),
		Bars:           r.Bars,
		AsOf:           r.Result.AsOf.Format(model.DateLayout),
		Recommendation: r.Result.Recommendation,
		Score:          r.Result.Score,
		RSI:            r.Result.Oscillator,
		Degrees:        r.Result.Inference.Degrees,
		Activations:    r.Result.Inference.Activations,
		DurationMs:     float64(r.Duration.Microseconds()) / 1000.0,
	}
	if withChart {
		c := r.Chart
		s.Chart = &c
	}
	return s
}
