// Package adapter provides the analytical store adapter contract and the
// shared database/sql plumbing used by concrete adapters.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves with this package in their init() functions.
package adapter

import "github.com/leapstack-labs/crossfilter/pkg/core"

// Type aliases so adapter implementations can stay within this package's vocabulary.
type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)
