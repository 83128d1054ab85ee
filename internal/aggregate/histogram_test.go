package aggregate

import (
	"testing"

	"github.com/leapstack-labs/crossfilter/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHistogram(t *testing.T) {
	tests := []struct {
		name    string
		lo, hi  float64
		bins    int
		counts  []BucketCount
		nonNull int64
		want    []core.HistogramBin
	}{
		{
			name:    "degenerate range",
			lo:      7,
			hi:      7,
			bins:    20,
			nonNull: 12,
			want:    []core.HistogramBin{{BinStart: 7, BinEnd: 7, Count: 12, Percentage: 100}},
		},
		{
			name:    "no values",
			lo:      0,
			hi:      10,
			bins:    5,
			nonNull: 0,
			want:    []core.HistogramBin{},
		},
		{
			name:    "empty buckets omitted",
			lo:      0,
			hi:      10,
			bins:    5,
			counts:  []BucketCount{{Index: 0, Count: 3}, {Index: 3, Count: 1}},
			nonNull: 4,
			want: []core.HistogramBin{
				{BinStart: 0, BinEnd: 2, Count: 3, Percentage: 75},
				{BinStart: 6, BinEnd: 8, Count: 1, Percentage: 25},
			},
		},
		{
			name:    "out of range buckets are clamped",
			lo:      0,
			hi:      4,
			bins:    2,
			counts:  []BucketCount{{Index: 2, Count: 1}, {Index: 1, Count: 1}, {Index: -1, Count: 2}},
			nonNull: 4,
			want: []core.HistogramBin{
				{BinStart: 0, BinEnd: 2, Count: 2, Percentage: 50},
				{BinStart: 2, BinEnd: 4, Count: 2, Percentage: 50},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildHistogram(tt.lo, tt.hi, tt.bins, tt.counts, tt.nonNull)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildHistogram_LastBinEndsAtMax(t *testing.T) {
	got := BuildHistogram(0, 1, 3, []BucketCount{{Index: 2, Count: 1}}, 1)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].BinEnd)
	assert.InDelta(t, 2.0/3.0, got[0].BinStart, 1e-12)
}

func TestPercentage_ZeroTotal(t *testing.T) {
	assert.Equal(t, 0.0, percentage(5, 0))
	assert.Equal(t, 0.0, percentage(0, 0))
	assert.Equal(t, 50.0, percentage(1, 2))
}
