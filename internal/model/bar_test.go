package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestPriceSeries_Validate(t *testing.T) {
	tests := []struct {
		name string
		bars []PriceBar
		want error
	}{
		{"ok", []PriceBar{{Date: day(0), Close: 10}, {Date: day(1), Close: 11}}, nil},
		{"empty", nil, ErrEmptySeries},
		{"duplicate", []PriceBar{{Date: day(0), Close: 10}, {Date: day(0), Close: 11}}, ErrDuplicateDate},
		{"unordered", []PriceBar{{Date: day(2), Close: 10}, {Date: day(1), Close: 11}}, ErrUnorderedSeries},
		{"zero close", []PriceBar{{Date: day(0), Close: 0}}, ErrInvalidPrice},
		{"nan close", []PriceBar{{Date: day(0), Close: math.NaN()}}, ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PriceSeries{Symbol: "BTC-USD", Bars: tt.bars}.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPriceSeries_ClosesIsACopy(t *testing.T) {
	s := PriceSeries{Bars: []PriceBar{{Date: day(0), Close: 10}}}
	closes := s.Closes()
	closes[0] = 99
	assert.Equal(t, 10.0, s.Bars[0].Close)
}

func TestParseDateRange(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	r, err := ParseDateRange("2024-01-01", "2024-03-01", now)
	require.NoError(t, err)
	assert.Equal(t, 60, r.Days())
	assert.True(t, r.Contains(day(0)))
	assert.False(t, r.Contains(r.To))
	assert.Equal(t, "2024-01-01:2024-03-01", r.Key())

	for _, tc := range [][2]string{
		{"", "2024-03-01"},
		{"2024-13-01", "2024-03-01"},
		{"2024-03-01", "2024-01-01"},
		{"2024-03-01", "2024-03-01"},
		{"2024-07-01", "2024-08-01"},
	} {
		_, err := ParseDateRange(tc[0], tc[1], now)
		assert.ErrorIs(t, err, ErrInvalidRange, "%v", tc)
	}
}

func TestLastDefined(t *testing.T) {
	i, v := LastDefined([]float64{1, 2, math.NaN()})
	assert.Equal(t, 1, i)
	assert.Equal(t, 2.0, v)

	i, v = LastDefined([]float64{math.NaN(), math.NaN()})
	assert.Equal(t, -1, i)
	assert.True(t, math.IsNaN(v))
}
