package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"fuzzy-advisor/internal/model"
)

// LoadCSV reads a daily history in the Yahoo export layout
// (Date,Open,High,Low,Close[,Adj Close],Volume). Columns are matched by
// header name; rows with a missing or "null" close are skipped.
func LoadCSV(path, symbol string) (model.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.PriceSeries{}, err
	}
	defer f.Close()
	return ReadCSV(f, symbol)
}

// ReadCSV is LoadCSV over a reader.
func ReadCSV(r io.Reader, symbol string) (model.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, need := range []string{"date", "close"} {
		if _, ok := col[need]; !ok {
			return model.PriceSeries{}, fmt.Errorf("csv: missing %q column", need)
		}
	}

	field := func(rec []string, name string) (float64, bool) {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		return v, err == nil
	}

	out := model.PriceSeries{Symbol: NormalizeSymbol(symbol)}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return model.PriceSeries{}, fmt.Errorf("csv line %d: %w", line, err)
		}
		d, err := time.Parse(model.DateLayout, strings.TrimSpace(rec[col["date"]]))
		if err != nil {
			return model.PriceSeries{}, fmt.Errorf("csv line %d: date: %w", line, err)
		}
		c, ok := field(rec, "close")
		if !ok {
			continue
		}
		b := model.PriceBar{Date: d, Close: c}
		b.Open, _ = field(rec, "open")
		b.High, _ = field(rec, "high")
		b.Low, _ = field(rec, "low")
		b.Volume, _ = field(rec, "volume")
		out.Bars = append(out.Bars, b)
	}

	sort.SliceStable(out.Bars, func(i, j int) bool { return out.Bars[i].Date.Before(out.Bars[j].Date) })
	if len(out.Bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("csv: %w", ErrNoData)
	}
	return out, nil
}
