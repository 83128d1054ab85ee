package engine

import (
	"context"

	"github.com/leapstack-labs/crossfilter/internal/aggregate"
	"github.com/leapstack-labs/crossfilter/internal/compiler"
	"github.com/leapstack-labs/crossfilter/internal/filter"
	"github.com/leapstack-labs/crossfilter/internal/state"
	"github.com/leapstack-labs/crossfilter/pkg/core"
)

// ColumnResult is one column's aggregation with the warnings raised while
// compiling its condition.
type ColumnResult struct {
	Table       string                  `json:"table"`
	Aggregation *core.ColumnAggregation `json:"aggregation"`
	Warnings    []compiler.Warning      `json:"warnings,omitempty"`
}

// ColumnFailure names a column whose aggregation failed.
type ColumnFailure struct {
	Column string `json:"column"`
	Error  string `json:"error"`
}

// TableResult holds every column of a table that aggregated successfully,
// in table order, and the ones that did not.
type TableResult struct {
	Table    string                    `json:"table"`
	Columns  []*core.ColumnAggregation `json:"columns"`
	Failed   []ColumnFailure           `json:"failed,omitempty"`
	Warnings []compiler.Warning        `json:"warnings,omitempty"`
}

// Option tunes a single aggregation call.
type Option func(*callOptions)

type callOptions struct {
	bins          int
	categoryLimit int
}

// WithBins overrides the histogram bin count.
func WithBins(n int) Option {
	return func(o *callOptions) { o.bins = n }
}

// WithCategoryLimit overrides the category cap.
func WithCategoryLimit(n int) Option {
	return func(o *callOptions) { o.categoryLimit = n }
}

// GetEffectiveFilters classifies filters for every table of the dataset.
func (e *Engine) GetEffectiveFilters(ctx context.Context, datasetRef string, filters []filter.Node) (map[string]*filter.Effective, error) {
	snap, err := e.load(ctx, datasetRef)
	if err != nil {
		return nil, err
	}
	return filter.ClassifyWith(filters, snap.tables, snap.graph, e.classify), nil
}

// condition classifies filters and compiles the ones acting on table.
func (e *Engine) condition(ctx context.Context, snap *snapshot, table string, filters []filter.Node) (*compiler.Condition, error) {
	eff := filter.ClassifyWith(filters, snap.tables, snap.graph, e.classify)[table]
	var acting []filter.Node
	if eff != nil {
		acting = eff.All()
	}

	cond, err := e.compiler.Compile(table, acting, snap.graph, liveColumns{ctx: ctx, e: e, snap: snap})
	if err != nil {
		return nil, err
	}
	e.metrics.countWarnings(cond.Warnings)
	return cond, nil
}

// GetColumnAggregation aggregates one column under the filters acting on its
// table. Invalid filter values fail the call with an error matching
// filter.ErrInvalidValue; dropped filters are reported as warnings.
func (e *Engine) GetColumnAggregation(ctx context.Context, datasetRef, table, column string, filters []filter.Node, opts ...Option) (*ColumnResult, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	snap, err := e.load(ctx, datasetRef)
	if err != nil {
		return nil, err
	}
	td, ok := snap.table(table)
	if !ok {
		return nil, &state.NotFoundError{Kind: "table", Name: table}
	}
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	cols, err := e.tableColumns(ctx, snap, td)
	if err != nil {
		return nil, err
	}
	col, ok := findColumn(cols, column)
	if !ok {
		return nil, &state.NotFoundError{Kind: "column", Name: table + "." + column}
	}

	cond, err := e.condition(ctx, snap, table, filters)
	if err != nil {
		return nil, err
	}

	agg, err := e.agg.Column(ctx, aggregate.Request{
		Table:          table,
		Column:         column,
		DisplayType:    col.DisplayType,
		Condition:      cond,
		UnfilteredRows: td.RowCount,
		Bins:           o.bins,
		CategoryLimit:  o.categoryLimit,
	})
	if err != nil {
		return nil, err
	}
	return &ColumnResult{Table: table, Aggregation: agg, Warnings: cond.Warnings}, nil
}

// GetTableAggregations aggregates every column of table concurrently. Column
// failures are collected in Failed and never fail the call. An invalid filter
// value fails every column.
func (e *Engine) GetTableAggregations(ctx context.Context, datasetRef, table string, filters []filter.Node, opts ...Option) (*TableResult, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	snap, err := e.load(ctx, datasetRef)
	if err != nil {
		return nil, err
	}
	td, ok := snap.table(table)
	if !ok {
		return nil, &state.NotFoundError{Kind: "table", Name: table}
	}
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	cols, err := e.tableColumns(ctx, snap, td)
	if err != nil {
		return nil, err
	}
	res := &TableResult{Table: table, Columns: []*core.ColumnAggregation{}}
	cond, err := e.condition(ctx, snap, table, filters)
	if err != nil {
		if !compiler.IsInvalidValue(err) {
			return nil, err
		}
		for _, c := range cols {
			res.Failed = append(res.Failed, ColumnFailure{Column: c.Name, Error: err.Error()})
		}
		return res, nil
	}
	res.Warnings = cond.Warnings

	reqs := make([]aggregate.Request, len(cols))
	for i, c := range cols {
		reqs[i] = aggregate.Request{
			Table:          table,
			Column:         c.Name,
			DisplayType:    c.DisplayType,
			Condition:      cond,
			UnfilteredRows: td.RowCount,
			Bins:           o.bins,
			CategoryLimit:  o.categoryLimit,
		}
	}

	for _, r := range e.agg.Table(ctx, reqs) {
		if r.Err != nil {
			res.Failed = append(res.Failed, ColumnFailure{Column: r.Request.Column, Error: r.Err.Error()})
			continue
		}
		res.Columns = append(res.Columns, r.Aggregation)
	}

	e.logger.Info("table aggregated",
		"dataset", snap.dataset.Name,
		"table", table,
		"columns", len(res.Columns),
		"failed", len(res.Failed))
	return res, nil
}

func findColumn(cols []core.ColumnInfo, name string) (core.ColumnInfo, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return core.ColumnInfo{}, false
}
