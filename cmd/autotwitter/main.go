// Package main is the entry point for the autotwitter binary.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/janic0/autotwitter/internal/cli"
)

// Version information (set by goreleaser).
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// A local .env is convenient in development; absence is fine.
	_ = godotenv.Load()

	if err := cli.Execute(version, commit, date); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
