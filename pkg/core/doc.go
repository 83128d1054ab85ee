// Package core defines the shared language of the crossfilter system.
//
// This package contains:
//   - Dataset entities (TableDescriptor, Relationship, ColumnInfo)
//   - Aggregation results (ColumnAggregation, Category, HistogramBin)
//   - Service interfaces (Adapter)
//   - Configuration types (TargetConfig, DialectConfig)
//
// pkg/core imports only the standard library.
// All other packages depend on core, not the reverse.
package core
