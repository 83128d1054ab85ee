package aggregate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/leapstack-labs/crossfilter/pkg/core"
)

// numericStats returns nil stats when the column has no numeric values under
// the condition.
func (a *Aggregator) numericStats(ctx context.Context, req Request) (*core.NumericStats, int64, error) {
	x := a.dialect.CastNumeric(a.col(req))
	b := req.Condition.Where(sq.Select(
		"MIN("+x+")",
		"MAX("+x+")",
		"AVG("+x+")",
		a.dialect.Median(x),
		"STDDEV_POP("+x+")",
		a.dialect.Quantile(x, 0.25),
		a.dialect.Quantile(x, 0.75),
		"COUNT("+x+")",
	).From(a.from(req)))

	var (
		vals    [7]sql.NullFloat64
		nonNull int64
	)
	err := a.run(ctx, req, StageNumericStats, b, func(r *core.Rows) error {
		return r.Scan(&vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5], &vals[6], &nonNull)
	})
	if err != nil {
		return nil, 0, err
	}
	if nonNull == 0 {
		return nil, 0, nil
	}

	return &core.NumericStats{
		Min:    vals[0].Float64,
		Max:    vals[1].Float64,
		Mean:   vals[2].Float64,
		Median: vals[3].Float64,
		StdDev: vals[4].Float64,
		Q25:    vals[5].Float64,
		Q75:    vals[6].Float64,
	}, nonNull, nil
}

// histogram buckets values into equal-width bins between the column's min
// and max.
func (a *Aggregator) histogram(ctx context.Context, req Request, stats *core.NumericStats, nonNull int64) ([]core.HistogramBin, error) {
	if stats == nil || nonNull == 0 {
		return []core.HistogramBin{}, nil
	}

	bins := req.Bins
	if bins <= 0 {
		bins = a.opts.Bins
	}
	if stats.Min == stats.Max {
		return BuildHistogram(stats.Min, stats.Max, bins, nil, nonNull), nil
	}

	width := (stats.Max - stats.Min) / float64(bins)
	x := a.dialect.CastNumeric(a.col(req))
	bucket := fmt.Sprintf("GREATEST(LEAST(CAST(FLOOR((%s - %s) / %s) AS INTEGER), %d), 0) AS bucket",
		x, a.floatLiteral(stats.Min), a.floatLiteral(width), bins-1)
	b := req.Condition.Where(
		sq.Select(bucket, "COUNT(*) AS cnt").
			From(a.from(req)).
			Where(x + " IS NOT NULL"),
	).GroupBy("1").OrderBy("1")

	var counts []BucketCount
	err := a.run(ctx, req, StageHistogram, b, func(r *core.Rows) error {
		var bc BucketCount
		if err := r.Scan(&bc.Index, &bc.Count); err != nil {
			return err
		}
		counts = append(counts, bc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return BuildHistogram(stats.Min, stats.Max, bins, counts, nonNull), nil
}

// floatLiteral renders a computed bound as a typed SQL literal.
func (a *Aggregator) floatLiteral(f float64) string {
	return fmt.Sprintf("CAST(%s AS %s)", strconv.FormatFloat(f, 'g', -1, 64), a.dialect.FloatType)
}
