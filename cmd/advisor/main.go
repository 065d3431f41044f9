// Package main - advisor CLI
//
// Usage:
//
//	go run ./cmd/advisor analyze --symbol BTC-USD --from 2024-01-01 --to 2024-06-01
//	go run ./cmd/advisor serve
//	go run ./cmd/advisor fuzzy infer --rsi 25
package main

import (
	"os"

	"fuzzy-advisor/cmd/advisor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
