// Package main provides the CLI for the crossfilter aggregation engine.
package main

import (
	"os"

	"github.com/leapstack-labs/crossfilter/internal/cli"

	// Store adapters register themselves on import.
	_ "github.com/leapstack-labs/crossfilter/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/crossfilter/pkg/adapters/postgres"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
