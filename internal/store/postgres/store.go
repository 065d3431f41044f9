// Package postgres is the PostgreSQL alternative to the SQLite bar store,
// for deployments where several advisor instances share one price cache.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"fuzzy-advisor/internal/model"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_bars (
	symbol TEXT             NOT NULL,
	day    DATE             NOT NULL,
	open   DOUBLE PRECISION NOT NULL,
	high   DOUBLE PRECISION NOT NULL,
	low    DOUBLE PRECISION NOT NULL,
	close  DOUBLE PRECISION NOT NULL,
	volume DOUBLE PRECISION,
	PRIMARY KEY (symbol, day)
);

CREATE TABLE IF NOT EXISTS fetched_ranges (
	symbol     TEXT        NOT NULL,
	from_day   DATE        NOT NULL,
	to_day     DATE        NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (symbol, from_day, to_day)
);
`

// Store implements model.BarStore on PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects with a lib/pq DSN, pings and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s, err := NewWithDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("[postgres] connected")
	return s, nil
}

// NewWithDB wraps an existing handle and migrates the schema.
func NewWithDB(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// executeWithTransaction runs fn in a transaction, rolling back on error.
func (s *Store) executeWithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if fnErr := fn(tx); fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %w (original error: %v)", rbErr, fnErr)
		}
		return fnErr
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// WriteBars upserts bars and records r.
func (s *Store) WriteBars(ctx context.Context, symbol string, r model.DateRange, bars []model.PriceBar) error {
	symbol = strings.ToUpper(symbol)
	return s.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_bars (symbol, day, open, high, low, close, volume)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (symbol, day) DO UPDATE SET
			open=EXCLUDED.open, high=EXCLUDED.high, low=EXCLUDED.low,
			close=EXCLUDED.close, volume=EXCLUDED.volume`)
		if err != nil {
			return fmt.Errorf("failed to prepare bar insert: %w", err)
		}
		defer stmt.Close()

		for _, b := range bars {
			if _, err := stmt.ExecContext(ctx, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
				return fmt.Errorf("failed to save bar %s %s: %w", symbol, b.Date.Format(model.DateLayout), err)
			}
		}

		_, err = tx.ExecContext(ctx, `
		INSERT INTO fetched_ranges (symbol, from_day, to_day)
		VALUES ($1,$2,$3)
		ON CONFLICT (symbol, from_day, to_day) DO UPDATE SET fetched_at=now()`,
			symbol, r.From, r.To)
		if err != nil {
			return fmt.Errorf("failed to record range %s %s: %w", symbol, r.Key(), err)
		}
		return nil
	})
}

// ReadBars returns stored bars in [r.From, r.To), oldest first.
func (s *Store) ReadBars(ctx context.Context, symbol string, r model.DateRange) ([]model.PriceBar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, open, high, low, close, volume
		FROM daily_bars
		WHERE symbol = $1 AND day >= $2 AND day < $3
		ORDER BY day ASC`, strings.ToUpper(symbol), r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		var volume sql.NullFloat64
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		// DATE columns come back at midnight in the session zone
		b.Date = time.Date(b.Date.Year(), b.Date.Month(), b.Date.Day(), 0, 0, 0, 0, time.UTC)
		b.Volume = volume.Float64
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Covered reports whether a recorded range contains r.
func (s *Store) Covered(ctx context.Context, symbol string, r model.DateRange) (bool, error) {
	var covered bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM fetched_ranges
			WHERE symbol = $1 AND from_day <= $2 AND to_day >= $3
		)`, strings.ToUpper(symbol), r.From, r.To).Scan(&covered)
	if err != nil {
		return false, fmt.Errorf("failed to query fetched ranges: %w", err)
	}
	return covered, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
