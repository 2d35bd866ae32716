// Package main provides the entry point for the devrag CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/devinsight/devrag/cmd/devrag/cmd"
)

func main() {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
