// Package aggregate computes per-column summaries under a compiled filter
// condition: row and null counts, category frequencies for categorical and
// id columns, and statistics plus an equal-width histogram for numeric ones.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/leapstack-labs/crossfilter/internal/compiler"
	"github.com/leapstack-labs/crossfilter/pkg/core"
	"github.com/leapstack-labs/crossfilter/pkg/dialect"
	"golang.org/x/sync/errgroup"
)

// Querier runs read queries against the analytical store. core.Adapter
// satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (*core.Rows, error)
}

// Options are the aggregation defaults.
type Options struct {
	// CategoryLimit caps the categories returned per column.
	CategoryLimit int `koanf:"category_limit"`
	// Bins is the default histogram bin count.
	Bins int `koanf:"bins"`
	// Workers bounds concurrent column aggregations in Table.
	Workers int `koanf:"workers"`
}

// DefaultOptions returns the stock aggregation options.
func DefaultOptions() Options {
	return Options{CategoryLimit: 50, Bins: 20, Workers: 4}
}

// Request asks for one column's summary.
type Request struct {
	Table       string
	Column      string
	DisplayType core.DisplayType
	// Condition restricts the rows; nil or empty means all rows.
	Condition *compiler.Condition
	// UnfilteredRows is the cached table row count, reused when the
	// condition is empty. Negative means unknown.
	UnfilteredRows int64
	// Bins and CategoryLimit override Options when positive.
	Bins          int
	CategoryLimit int
}

// Result pairs a request with its outcome in Table.
type Result struct {
	Request     Request
	Aggregation *core.ColumnAggregation
	Err         error
}

// Aggregator runs aggregation queries through a Querier.
type Aggregator struct {
	querier Querier
	dialect *dialect.Dialect
	opts    Options
	logger  *slog.Logger
	metrics *Metrics
}

// New creates an aggregator. Zero option fields take their defaults; a nil
// dialect means DuckDB; nil logger and metrics are allowed.
func New(q Querier, d *dialect.Dialect, opts Options, logger *slog.Logger, metrics *Metrics) *Aggregator {
	def := DefaultOptions()
	if opts.CategoryLimit <= 0 {
		opts.CategoryLimit = def.CategoryLimit
	}
	if opts.Bins <= 0 {
		opts.Bins = def.Bins
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if d == nil {
		d = dialect.DuckDB()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{querier: q, dialect: d, opts: opts, logger: logger, metrics: metrics}
}

// Options returns the effective options.
func (a *Aggregator) Options() Options {
	return a.opts
}

// Column computes the summary of one column. Queries run sequentially; any
// store failure aborts the column with a *QueryError.
func (a *Aggregator) Column(ctx context.Context, req Request) (agg *core.ColumnAggregation, err error) {
	defer func() { a.metrics.countColumn(err) }()

	if req.Table == "" || req.Column == "" {
		return nil, fmt.Errorf("table and column are required")
	}
	if req.DisplayType == "" {
		req.DisplayType = core.DisplayCategorical
	}
	if !req.DisplayType.Valid() {
		return nil, fmt.Errorf("unsupported display type %q", req.DisplayType)
	}

	total, err := a.rowCount(ctx, req)
	if err != nil {
		return nil, err
	}

	nulls, unique, err := a.basicStats(ctx, req)
	if err != nil {
		return nil, err
	}

	agg = &core.ColumnAggregation{
		ColumnName:  req.Column,
		DisplayType: req.DisplayType,
		TotalRows:   total,
		NullCount:   nulls,
		UniqueCount: unique,
	}

	switch req.DisplayType {
	case core.DisplayNumeric:
		stats, nonNull, err := a.numericStats(ctx, req)
		if err != nil {
			return nil, err
		}
		agg.NumericStats = stats
		agg.Histogram, err = a.histogram(ctx, req, stats, nonNull)
		if err != nil {
			return nil, err
		}
	default:
		agg.Categories, err = a.categories(ctx, req, total)
		if err != nil {
			return nil, err
		}
	}

	a.logger.Debug("column aggregated",
		slog.String("table", req.Table),
		slog.String("column", req.Column),
		slog.String("display_type", string(req.DisplayType)),
		slog.Int64("total_rows", total))
	return agg, nil
}

// Table aggregates every request concurrently, bounded by Options.Workers.
// A failing column never cancels its siblings; its error lands in its Result.
// Results keep the order of reqs.
func (a *Aggregator) Table(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	var g errgroup.Group
	g.SetLimit(a.opts.Workers)
	for i, req := range reqs {
		g.Go(func() error {
			agg, err := a.Column(ctx, req)
			results[i] = Result{Request: req, Aggregation: agg, Err: err}
			if err != nil {
				a.logger.Warn("column aggregation failed",
					slog.String("table", req.Table),
					slog.String("column", req.Column),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *Aggregator) from(req Request) string {
	return a.dialect.QuoteIdentifier(req.Table)
}

func (a *Aggregator) col(req Request) string {
	return a.dialect.Qualify(req.Table, req.Column)
}

// run renders b, executes it, and hands each row to scan.
func (a *Aggregator) run(ctx context.Context, req Request, stage Stage, b sq.SelectBuilder, scan func(*core.Rows) error) error {
	query, args, err := a.dialect.Render(b)
	if err != nil {
		return &QueryError{Stage: stage, Table: req.Table, Column: req.Column, Err: fmt.Errorf("failed to build query: %w", err)}
	}

	a.logger.Debug("store query",
		slog.String("stage", string(stage)),
		slog.String("table", req.Table),
		slog.String("column", req.Column),
		slog.String("sql", query))

	start := time.Now()
	defer a.metrics.observeQuery(stage, start)

	rows, err := a.querier.Query(ctx, query, args...)
	if err != nil {
		return &QueryError{Stage: stage, Table: req.Table, Column: req.Column, Err: err}
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return &QueryError{Stage: stage, Table: req.Table, Column: req.Column, Err: fmt.Errorf("failed to scan row: %w", err)}
		}
	}
	if err := rows.Err(); err != nil {
		return &QueryError{Stage: stage, Table: req.Table, Column: req.Column, Err: err}
	}
	return nil
}

func (a *Aggregator) rowCount(ctx context.Context, req Request) (int64, error) {
	if req.Condition.Empty() && req.UnfilteredRows >= 0 {
		return req.UnfilteredRows, nil
	}

	var n int64
	b := req.Condition.Where(sq.Select("COUNT(*)").From(a.from(req)))
	err := a.run(ctx, req, StageRowCount, b, func(r *core.Rows) error {
		return r.Scan(&n)
	})
	return n, err
}

func (a *Aggregator) basicStats(ctx context.Context, req Request) (nulls, unique int64, err error) {
	col := a.col(req)
	b := req.Condition.Where(sq.Select(
		"COUNT(*) - COUNT("+col+")",
		"COUNT(DISTINCT "+col+")",
	).From(a.from(req)))
	err = a.run(ctx, req, StageBasicStats, b, func(r *core.Rows) error {
		return r.Scan(&nulls, &unique)
	})
	return nulls, unique, err
}

func percentage(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) * 100 / float64(total)
}
