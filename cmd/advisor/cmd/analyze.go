package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fuzzy-advisor/internal/advisor"
	"fuzzy-advisor/internal/marketdata"
	"fuzzy-advisor/internal/model"
)

var analyzeFlags struct {
	symbol string
	from   string
	to     string
	csv    string
	json   bool
	chart  bool
	notify bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "One-shot recommendation for a symbol and date range",
	Long: `Fetches daily closes for [from, to), computes the indicators and prints
the fuzzy score and recommendation.

Examples:
  advisor analyze --symbol BTC-USD --from 2024-01-01 --to 2024-06-01
  advisor analyze --csv data/BTC-USD.csv --json
  advisor analyze --symbol ETH-USD --json --chart`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.symbol, "symbol", "s", "", "ticker symbol (default ADVISOR_SYMBOL)")
	f.StringVar(&analyzeFlags.from, "from", "", "start date YYYY-MM-DD, inclusive (default 180 days before --to)")
	f.StringVar(&analyzeFlags.to, "to", "", "end date YYYY-MM-DD, exclusive (default tomorrow)")
	f.StringVar(&analyzeFlags.csv, "csv", "", "read prices from a CSV export instead of the provider")
	f.BoolVar(&analyzeFlags.json, "json", false, "print the result as JSON")
	f.BoolVar(&analyzeFlags.chart, "chart", false, "include the chart payload in JSON output")
	f.BoolVar(&analyzeFlags.notify, "notify", false, "send the recommendation to the configured notifiers")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return err
	}

	var source model.PriceSource
	from, to := analyzeFlags.from, analyzeFlags.to
	symbol := analyzeFlags.symbol
	if symbol == "" {
		symbol = cfg.Symbol
	}
	if analyzeFlags.csv != "" {
		series, err := marketdata.LoadCSV(analyzeFlags.csv, symbol)
		if err != nil {
			return err
		}
		// default to the whole file rather than the trailing lookback
		last, _ := series.Last()
		if from == "" {
			from = series.Bars[0].Date.Format(model.DateLayout)
		}
		if to == "" {
			to = last.Date.AddDate(0, 0, 1).Format(model.DateLayout)
		}
		symbol = series.Symbol
		source = marketdata.NewStatic(series)
	} else {
		comps := buildComponents(ctx, cfg, nil, nil)
		defer comps.Close()
		source = comps.source
	}

	req, err := advisor.ParseRequest(symbol, from, to, cfg.Symbol, time.Now())
	if err != nil {
		return err
	}

	svcCfg := advisor.Config{Source: source, Analyzer: analyzer, Logger: log}
	if analyzeFlags.notify {
		svcCfg.Notifier = buildNotifier(cfg)
	}
	svc, err := advisor.New(svcCfg)
	if err != nil {
		return err
	}

	rep, err := svc.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", advisor.ErrorKind(err), err)
	}

	if analyzeFlags.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rep.Summary(analyzeFlags.chart))
	}
	return printReport(cmd.OutOrStdout(), rep, analyzer.IndicatorConfig().RSIPeriod)
}

func printReport(w io.Writer, rep advisor.Report, period int) error {
	s := rep.Summary(false)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Symbol\t%s\n", s.Symbol)
	fmt.Fprintf(tw, "Range\t%s to %s (%d bars, as of %s)\n", s.From, s.To, s.Bars, s.AsOf)
	fmt.Fprintf(tw, "RSI(%d)\t%.2f\n", period, s.RSI)
	fmt.Fprintf(tw, "Memberships\t%s\n", formatDegrees(s.Degrees))
	fmt.Fprintf(tw, "Fuzzy score\t%.2f / 10\n", s.Score)
	fmt.Fprintf(tw, "Recommendation\t%s\n", s.Recommendation)
	return tw.Flush()
}

func formatDegrees(d map[string]float64) string {
	names := make([]string, 0, len(d))
	for n := range d {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%.2f", n, d[n])
	}
	return strings.Join(parts, " ")
}
