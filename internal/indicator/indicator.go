// Package indicator provides technical indicator calculations over daily
// closing prices.
//
// Streaming indicators implement the Indicator interface and are fed one close
// at a time. The batch helpers (SMASeries, RSISeries, Compute) drive the same
// streaming types across a whole series so both paths always agree.
package indicator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsufficientHistory is returned when a series is too short for any
	// indicator value to be defined.
	ErrInsufficientHistory = errors.New("insufficient price history")

	// ErrInvalidPeriod is returned for a window or period below 1.
	ErrInvalidPeriod = errors.New("indicator period must be positive")
)

// Indicator is the interface for all streaming technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "RSI").
	Name() string

	// Update feeds the next closing price.
	Update(close float64)

	// Value returns the current calculated value. Only meaningful when Ready.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Reset clears all accumulated state.
	Reset()
}

// Smoothing selects how the RSI averages gains and losses.
type Smoothing int

const (
	// SmoothingSimple averages the trailing period price changes.
	SmoothingSimple Smoothing = iota
	// SmoothingWilder seeds with a simple average, then applies Wilder's
	// recursive smoothing.
	SmoothingWilder
)

func (s Smoothing) String() string {
	switch s {
	case SmoothingSimple:
		return "simple"
	case SmoothingWilder:
		return "wilder"
	default:
		return "unknown"
	}
}

// ParseSmoothing maps "simple" / "wilder" (case-insensitive) to a Smoothing.
func ParseSmoothing(s string) (Smoothing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simple", "sma", "cutler":
		return SmoothingSimple, nil
	case "wilder", "smma", "ewm":
		return SmoothingWilder, nil
	default:
		return SmoothingSimple, fmt.Errorf("unknown RSI smoothing %q", s)
	}
}
