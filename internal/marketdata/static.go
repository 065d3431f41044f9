package marketdata

import (
	"context"
	"fmt"
	"sync"

	"fuzzy-advisor/internal/model"
)

// Static serves fixed in-memory histories. It backs offline runs (bars
// loaded from a file) and tests.
type Static struct {
	mu     sync.Mutex
	series map[string][]model.PriceBar
	calls  int
}

// NewStatic returns a source holding the given series keyed by symbol.
func NewStatic(series ...model.PriceSeries) *Static {
	s := &Static{series: make(map[string][]model.PriceBar, len(series))}
	for _, ps := range series {
		s.series[NormalizeSymbol(ps.Symbol)] = ps.Bars
	}
	return s
}

// Fetch returns the stored bars that fall inside r.
func (s *Static) Fetch(_ context.Context, symbol string, r model.DateRange) (model.PriceSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	symbol = NormalizeSymbol(symbol)
	all, ok := s.series[symbol]
	if !ok {
		return model.PriceSeries{}, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	out := model.PriceSeries{Symbol: symbol}
	for _, b := range all {
		if r.Contains(b.Date) {
			out.Bars = append(out.Bars, b)
		}
	}
	if len(out.Bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("%s %s: %w", symbol, r.Key(), ErrNoData)
	}
	return out, nil
}

// Calls returns how many times Fetch ran.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
