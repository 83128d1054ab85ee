package aggregate

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/leapstack-labs/crossfilter/pkg/core"
)

// Category buckets.
const (
	bucketValue = 0
	bucketEmpty = 1
	bucketNA    = 2
)

// Display labels and filter values of the two synthetic categories.
const (
	EmptyLabel = "(Empty)"
	NALabel    = "(N/A)"
	EmptyValue = ""
	NAValue    = "N/A"
)

// categories groups trimmed values, folding null and blank into (Empty) and
// any casing of "n/a" into (N/A). Sorted by count descending, then value.
func (a *Aggregator) categories(ctx context.Context, req Request, total int64) ([]core.Category, error) {
	limit := req.CategoryLimit
	if limit <= 0 {
		limit = a.opts.CategoryLimit
	}

	normalized := req.Condition.Where(
		sq.Select(fmt.Sprintf("NULLIF(TRIM(%s), '') AS v", a.dialect.CastText(a.col(req)))).
			From(a.from(req)),
	)

	b := sq.Select(
		fmt.Sprintf("CASE WHEN v IS NULL THEN %d WHEN LOWER(v) = 'n/a' THEN %d ELSE %d END AS bucket", bucketEmpty, bucketNA, bucketValue),
		"CASE WHEN v IS NULL OR LOWER(v) = 'n/a' THEN '' ELSE v END AS category",
		"COUNT(*) AS cnt",
	).
		FromSelect(normalized, "normalized").
		GroupBy("1", "2").
		OrderBy("cnt DESC", "category ASC", "bucket ASC").
		Limit(uint64(limit))

	cats := []core.Category{}
	err := a.run(ctx, req, StageCategories, b, func(r *core.Rows) error {
		var (
			bucket int64
			value  string
			count  int64
		)
		if err := r.Scan(&bucket, &value, &count); err != nil {
			return err
		}
		c := core.Category{Value: value, DisplayValue: value, Count: count, Percentage: percentage(count, total)}
		switch bucket {
		case bucketEmpty:
			c.Value, c.DisplayValue = EmptyValue, EmptyLabel
		case bucketNA:
			c.Value, c.DisplayValue = NAValue, NALabel
		}
		cats = append(cats, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cats, nil
}
