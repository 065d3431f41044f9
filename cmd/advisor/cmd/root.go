// Package cmd holds the advisor CLI commands.
package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fuzzy-advisor/config"
	"fuzzy-advisor/internal/logger"
)

var (
	cfgFile  string
	logLevel string

	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Fuzzy-logic RSI trading advisor",
	Long: `Fuzzy-logic RSI trading advisor.

Fetches daily prices, computes SMA and RSI, runs a Mamdani fuzzy system on
the latest RSI and labels the result BUY, HOLD or SELL.

Commands:
    analyze     one-shot recommendation for a symbol and date range
    serve       HTTP API, websocket chart session and metrics
    fuzzy       print the rule base or evaluate it on a raw RSI value
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel its context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "env file (default is .env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fuzzyCmd)
}

// initConfig loads the env file and environment, then sets up logging. Only
// serve logs to stdout; the one-shot commands keep stdout for their output.
func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		c, err := config.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
	} else {
		cfg = config.Load()
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	var w io.Writer = os.Stderr
	if cmd.Name() == serveCmd.Name() {
		w = os.Stdout
	}
	if cfg.LogFile != "" {
		fw, err := logger.NewFileWriter(logger.FileConfig{
			Path:       cfg.LogFile,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxAgeDays: cfg.LogMaxAgeDays,
		})
		if err != nil {
			return err
		}
		w = io.MultiWriter(w, fw)
	}
	log = logger.InitWriter(w, "advisor", logger.ParseLevel(cfg.LogLevel))
	return nil
}
