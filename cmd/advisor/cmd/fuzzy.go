package cmd

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"fuzzy-advisor/internal/fuzzy"
	"fuzzy-advisor/internal/model"
)

var fuzzyCmd = &cobra.Command{
	Use:   "fuzzy",
	Short: "Print the active fuzzy rule base as YAML",
	Long: `Prints the active rule base (FUZZY_DEFINITION or the built-in one) as YAML.
The output is a valid FUZZY_DEFINITION file and a starting point for tuning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := cfg.FuzzyDefinition()
		if err != nil {
			return err
		}
		data, err := def.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var inferRSI float64

var fuzzyInferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Evaluate the rule base on a raw RSI value",
	Long: `Evaluate the rule base on a raw RSI value.

Examples:
  advisor fuzzy infer --rsi 25
  advisor fuzzy infer --rsi 82.5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if math.IsInf(inferRSI, 0) {
			return fmt.Errorf("invalid_input: --rsi must be a finite number")
		}
		analyzer, err := buildAnalyzer(cfg)
		if err != nil {
			return err
		}
		inf, err := analyzer.Engine().Explain(inferRSI)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			fuzzy.Inference
			Recommendation model.Recommendation `json:"recommendation"`
		}{inf, analyzer.Classify(inf.Score)})
	},
}

func init() {
	fuzzyInferCmd.Flags().Float64Var(&inferRSI, "rsi", 50, "oscillator value in [0, 100]")
	if err := fuzzyInferCmd.MarkFlagRequired("rsi"); err != nil {
		panic(fmt.Sprintf("fuzzy infer: %v", err))
	}
	fuzzyCmd.AddCommand(fuzzyInferCmd)
}
