package model

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used on every outer surface.
const DateLayout = "2006-01-02"

var ErrInvalidRange = errors.New("invalid date range")

// DateRange is a half-open [From, To) range of session dates.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ParseDateRange parses two YYYY-MM-DD strings into a validated range.
func ParseDateRange(from, to string, now time.Time) (DateRange, error) {
	if from == "" || to == "" {
		return DateRange{}, fmt.Errorf("%w: start and end dates are required", ErrInvalidRange)
	}
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start date %q: %v", ErrInvalidRange, from, err)
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end date %q: %v", ErrInvalidRange, to, err)
	}
	r := DateRange{From: f, To: t}
	if err := r.Validate(now); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate requires From < To and From not after today.
func (r DateRange) Validate(now time.Time) error {
	if !r.From.Before(r.To) {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidRange,
			r.From.Format(DateLayout), r.To.Format(DateLayout))
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if r.From.After(today) {
		return fmt.Errorf("%w: start %s is in the future", ErrInvalidRange, r.From.Format(DateLayout))
	}
	return nil
}

// Contains reports whether d falls inside [From, To).
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.From) && d.Before(r.To)
}

// Key returns "from:to" for cache keys.
func (r DateRange) Key() string {
	return r.From.Format(DateLayout) + ":" + r.To.Format(DateLayout)
}

// Days returns the number of calendar days covered.
func (r DateRange) Days() int {
	return int(r.To.Sub(r.From).Hours() / 24)
}
