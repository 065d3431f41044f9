package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"fuzzy-advisor/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite bar store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/prices.db"
}

// Store keeps daily bars and the ranges already fetched for each symbol.
// It implements model.BarStore.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database with WAL mode and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_bars (
			symbol TEXT    NOT NULL,
			day    INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume REAL,
			PRIMARY KEY (symbol, day)
		);

		CREATE TABLE IF NOT EXISTS fetched_ranges (
			symbol     TEXT    NOT NULL,
			from_day   INTEGER NOT NULL,
			to_day     INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, from_day, to_day)
		);
	`)
	return err
}

// WriteBars upserts bars and records r in a single transaction.
func (s *Store) WriteBars(ctx context.Context, symbol string, r model.DateRange, bars []model.PriceBar) error {
	symbol = strings.ToUpper(symbol)
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO daily_bars (symbol, day, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, b.Date.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert bar %s %s: %w", symbol, b.Date.Format(model.DateLayout), err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO fetched_ranges (symbol, from_day, to_day, fetched_at)
		VALUES (?, ?, ?, ?)
	`, symbol, r.From.Unix(), r.To.Unix(), time.Now().Unix()); err != nil {
		tx.Rollback()
		return fmt.Errorf("record range %s %s: %w", symbol, r.Key(), err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[sqlite] committed %d bars for %s in %v", len(bars), symbol, time.Since(start))
	return nil
}

// ReadBars returns stored bars with dates in [r.From, r.To), oldest first.
func (s *Store) ReadBars(ctx context.Context, symbol string, r model.DateRange) ([]model.PriceBar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, open, high, low, close, volume
		FROM daily_bars
		WHERE symbol = ? AND day >= ? AND day < ?
		ORDER BY day ASC
	`, strings.ToUpper(symbol), r.From.Unix(), r.To.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query daily_bars: %w", err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		var day int64
		var volume sql.NullFloat64
		if err := rows.Scan(&day, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return nil, fmt.Errorf("sqlite scan daily_bars: %w", err)
		}
		b.Date = time.Unix(day, 0).UTC()
		b.Volume = volume.Float64
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Covered reports whether a previously recorded range contains r.
func (s *Store) Covered(ctx context.Context, symbol string, r model.DateRange) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM fetched_ranges
		WHERE symbol = ? AND from_day <= ? AND to_day >= ?
	`, strings.ToUpper(symbol), r.From.Unix(), r.To.Unix()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite query fetched_ranges: %w", err)
	}
	return n > 0, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
