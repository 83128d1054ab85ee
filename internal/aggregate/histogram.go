package aggregate

import (
	"sort"

	"github.com/leapstack-labs/crossfilter/pkg/core"
)

// BucketCount is the row count of one equal-width bucket.
type BucketCount struct {
	Index int
	Count int64
}

// BuildHistogram turns bucket counts into bins of width (max-min)/bins.
// Empty buckets are omitted; percentages are relative to nonNull. When
// min == max the result is a single bin holding every value.
func BuildHistogram(lo, hi float64, bins int, counts []BucketCount, nonNull int64) []core.HistogramBin {
	if nonNull <= 0 {
		return []core.HistogramBin{}
	}
	if lo == hi || bins <= 0 {
		return []core.HistogramBin{{BinStart: lo, BinEnd: hi, Count: nonNull, Percentage: 100}}
	}

	merged := map[int]int64{}
	for _, c := range counts {
		idx := c.Index
		if idx < 0 {
			idx = 0
		}
		if idx > bins-1 {
			idx = bins - 1
		}
		merged[idx] += c.Count
	}
	idxs := make([]int, 0, len(merged))
	for idx, n := range merged {
		if n > 0 {
			idxs = append(idxs, idx)
		}
	}
	sort.Ints(idxs)

	width := (hi - lo) / float64(bins)
	out := make([]core.HistogramBin, 0, len(idxs))
	for _, idx := range idxs {
		end := lo + float64(idx+1)*width
		if idx == bins-1 {
			end = hi
		}
		out = append(out, core.HistogramBin{
			BinStart:   lo + float64(idx)*width,
			BinEnd:     end,
			Count:      merged[idx],
			Percentage: percentage(merged[idx], nonNull),
		})
	}
	return out
}
