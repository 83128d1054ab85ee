package commands

import (
	"testing"

	"github.com/leapstack-labs/crossfilter/internal/cli/output"
	"github.com/leapstack-labs/crossfilter/internal/cli/testutil"
	"github.com/leapstack-labs/crossfilter/internal/compiler"
	"github.com/leapstack-labs/crossfilter/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestRenderColumn(t *testing.T) {
	tests := []struct {
		name    string
		agg     *core.ColumnAggregation
		want    []string
		notWant []string
	}{
		{
			name: "categorical",
			agg: &core.ColumnAggregation{
				ColumnName:  "sample_type",
				DisplayType: core.DisplayCategorical,
				TotalRows:   7,
				UniqueCount: 3,
				Categories: []core.Category{
					{Value: "Blood", DisplayValue: "Blood", Count: 4, Percentage: 57.142857},
					{Value: "", DisplayValue: "(Empty)", Count: 1, Percentage: 14.285714},
				},
			},
			want:    []string{"Rows:", "Blood", "57.1%", "(Empty)"},
			notWant: []string{"Median:"},
		},
		{
			name: "numeric",
			agg: &core.ColumnAggregation{
				ColumnName:   "age",
				DisplayType:  core.DisplayNumeric,
				TotalRows:    5,
				NumericStats: &core.NumericStats{Min: 29, Max: 67, Mean: 45.2, Median: 45, Q25: 34, Q75: 51},
				Histogram: []core.HistogramBin{
					{BinStart: 29, BinEnd: 48, Count: 3, Percentage: 60},
					{BinStart: 48, BinEnd: 67, Count: 2, Percentage: 40},
				},
			},
			want:    []string{"Median:", "45.2", "29 – 48", "60.0%"},
			notWant: []string{"Value"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := testutil.NewTestRenderer(output.ModeText, false)
			renderColumn(tr.Renderer, "samples", tt.agg)

			out := tr.Output()
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, out, s)
			}
			testutil.AssertNoANSI(t, out)
		})
	}
}

func TestRenderWarnings(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeText, false)
	renderWarnings(tr.Renderer, []compiler.Warning{
		{Kind: compiler.UnknownColumn, Table: "samples", Column: "ghost", Filter: `samples.ghost eq "x"`},
		{Kind: compiler.NoRelationshipPath, Table: "visits", Owner: "patients", Filter: `patients.status eq "Active"`},
	})

	assert.Empty(t, tr.Output())
	assert.Contains(t, tr.ErrorOutput(), `warning: column "ghost" does not exist on samples`)
	assert.Contains(t, tr.ErrorOutput(), "warning: no relationship between visits and patients")
}
