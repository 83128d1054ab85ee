package commands

import (
	"fmt"

	"github.com/leapstack-labs/crossfilter/internal/cli/output"
	"github.com/leapstack-labs/crossfilter/internal/compiler"
	"github.com/leapstack-labs/crossfilter/internal/engine"
	"github.com/leapstack-labs/crossfilter/pkg/core"
	"github.com/spf13/cobra"
)

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate <table> [column]",
		Short: "Summarize a column, or every column of a table, under filters",
		Long: `Summarize columns of a table with the given filters applied.

Filters tagged with another table reach this one through the relationship
graph. Categorical columns report value counts; numeric columns report
statistics and a histogram.`,
		Example: `  # Sample types of active patients
  crossfilter aggregate samples sample_type \
    --where '[{"column":"status","operator":"eq","value":"Active","tableName":"patients"}]'

  # Every column of a table, filters from a file
  crossfilter aggregate patients -f filters.yaml --bins 10`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runAggregate,
	}
	addFilterFlags(cmd)
	cmd.Flags().Int("bins", 0, "histogram bins (default from config)")
	cmd.Flags().Int("limit", 0, "maximum categories per column (default from config)")
	return cmd
}

func runAggregate(cmd *cobra.Command, args []string) error {
	filters, err := readFilters(cmd)
	if err != nil {
		return err
	}
	bins, _ := cmd.Flags().GetInt("bins")
	limit, _ := cmd.Flags().GetInt("limit")
	opts := []engine.Option{engine.WithBins(bins), engine.WithCategoryLimit(limit)}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	dataset, err := cmdCtx.Dataset()
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	if len(args) == 2 {
		res, err := cmdCtx.Engine.GetColumnAggregation(ctx, dataset, args[0], args[1], filters, opts...)
		if err != nil {
			return err
		}
		if r.IsJSON() {
			return r.JSON(res)
		}
		renderColumn(r, res.Table, res.Aggregation)
		renderWarnings(r, res.Warnings)
		return nil
	}

	res, err := cmdCtx.Engine.GetTableAggregations(ctx, dataset, args[0], filters, opts...)
	if err != nil {
		return err
	}
	if r.IsJSON() {
		return r.JSON(res)
	}
	for i, agg := range res.Columns {
		if i > 0 {
			r.Println()
		}
		renderColumn(r, res.Table, agg)
	}
	for _, f := range res.Failed {
		r.Warn(fmt.Sprintf("%s.%s failed: %s", res.Table, f.Column, f.Error))
	}
	renderWarnings(r, res.Warnings)
	return nil
}

func renderColumn(r *output.Renderer, table string, agg *core.ColumnAggregation) {
	r.Header(1, table+"."+agg.ColumnName)
	r.KeyValue("Display", agg.DisplayType)
	r.KeyValue("Rows", agg.TotalRows)
	r.KeyValue("Nulls", agg.NullCount)
	r.KeyValue("Unique", agg.UniqueCount)

	if len(agg.Categories) > 0 {
		rows := make([][]any, len(agg.Categories))
		for i, c := range agg.Categories {
			rows[i] = []any{c.DisplayValue, c.Count, fmt.Sprintf("%.1f%%", c.Percentage)}
		}
		r.Table([]string{"Value", "Count", "Share"}, rows)
	}

	if s := agg.NumericStats; s != nil {
		r.KeyValue("Min", s.Min)
		r.KeyValue("Max", s.Max)
		r.KeyValue("Mean", fmt.Sprintf("%.4g", s.Mean))
		r.KeyValue("Median", s.Median)
		r.KeyValue("Std dev", fmt.Sprintf("%.4g", s.StdDev))
		r.KeyValue("IQR", fmt.Sprintf("%g – %g", s.Q25, s.Q75))
	}
	if len(agg.Histogram) > 0 {
		rows := make([][]any, len(agg.Histogram))
		for i, b := range agg.Histogram {
			rows[i] = []any{fmt.Sprintf("%g – %g", b.BinStart, b.BinEnd), b.Count, fmt.Sprintf("%.1f%%", b.Percentage)}
		}
		r.Table([]string{"Range", "Count", "Share"}, rows)
	}
}

func renderWarnings(r *output.Renderer, warnings []compiler.Warning) {
	for _, w := range warnings {
		r.Warn(w.String())
	}
}
