package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/crossfilter/pkg/adapter"
)

func init() {
	adapter.Register(adapter.Registration{
		Name:       "duckdb",
		Factory:    func(logger *slog.Logger) adapter.Adapter { return New(logger) },
		FileBacked: true,
	})
}
