package model

import (
	"context"
	"time"
)

// ── Data Port Interfaces ──
// These decouple the advisor from concrete price providers and stores
// (Yahoo, SQLite, Postgres, Redis). The analysis core consumes none of them.

// PriceSource supplies a daily price history for a symbol and date range.
type PriceSource interface {
	// Fetch returns bars with dates in [r.From, r.To), oldest first.
	Fetch(ctx context.Context, symbol string, r DateRange) (PriceSeries, error)
}

// BarWriter persists daily bars. Writing a bar that already exists replaces it.
type BarWriter interface {
	// WriteBars upserts bars and records r as fully fetched, so later reads
	// inside r can be served without the remote source.
	WriteBars(ctx context.Context, symbol string, r DateRange, bars []PriceBar) error

	// Close releases underlying resources.
	Close() error
}

// BarReader reads persisted daily bars.
type BarReader interface {
	// ReadBars returns stored bars in [r.From, r.To), ordered by date ascending.
	ReadBars(ctx context.Context, symbol string, r DateRange) ([]PriceBar, error)

	// Covered reports whether r lies inside a single range recorded by WriteBars.
	Covered(ctx context.Context, symbol string, r DateRange) (bool, error)

	// Close releases underlying resources.
	Close() error
}

// BarStore is a BarReader and BarWriter backed by the same database.
type BarStore interface {
	BarReader
	BarWriter
}

// SeriesCache is a short-lived cache of whole fetch results.
type SeriesCache interface {
	// GetSeries returns the cached series and true on a hit.
	GetSeries(ctx context.Context, symbol string, r DateRange) (PriceSeries, bool, error)

	// PutSeries stores a series for ttl.
	PutSeries(ctx context.Context, series PriceSeries, r DateRange, ttl time.Duration) error

	// Close releases underlying resources.
	Close() error
}
