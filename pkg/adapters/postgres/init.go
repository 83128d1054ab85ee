package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/crossfilter/pkg/adapter"
)

// DefaultPort is the PostgreSQL server port used when a target sets none.
const DefaultPort = 5432

func init() {
	adapter.Register(adapter.Registration{
		Name:        "postgres",
		Factory:     func(logger *slog.Logger) adapter.Adapter { return New(logger) },
		DefaultPort: DefaultPort,
	})
}
