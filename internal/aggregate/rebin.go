package aggregate

import (
	"math"

	"github.com/leapstack-labs/crossfilter/pkg/core"
)

const rebinEpsilon = 1e-9

// RebinOptions bound Rebin.
type RebinOptions struct {
	// MaxBins caps the requested bin count.
	MaxBins int `koanf:"max_bins"`
	// MaxIterations caps width widening when aligned bins overshoot.
	MaxIterations int `koanf:"max_iterations"`
}

// DefaultRebinOptions returns the stock rebinning bounds.
func DefaultRebinOptions() RebinOptions {
	return RebinOptions{MaxBins: 60, MaxIterations: 10}
}

// Rebin redistributes an existing histogram over about desired bins with a
// "nice" width (1, 2 or 5 times a power of ten), without touching the store.
// Each original bin's count is spread over the new bins in proportion to
// their overlap and rounded to the nearest integer. Asking for the original
// bin count returns hist unchanged.
func Rebin(hist []core.HistogramBin, stats *core.NumericStats, desired int, opts RebinOptions) []core.HistogramBin {
	def := DefaultRebinOptions()
	if opts.MaxBins <= 0 {
		opts.MaxBins = def.MaxBins
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if len(hist) == 0 || desired <= 0 {
		return hist
	}
	if desired > opts.MaxBins {
		desired = opts.MaxBins
	}

	lo, hi := hist[0].BinStart, hist[len(hist)-1].BinEnd
	if stats != nil {
		lo, hi = stats.Min, stats.Max
	}
	if hi <= lo || !finite(hi-lo) {
		return hist
	}
	if originalBins(hist, lo, hi) == desired {
		return hist
	}

	width := niceCeil((hi - lo) / float64(desired))
	if !finite(width) || !finite(math.Floor(lo/width)*width) || !finite(math.Ceil(hi/width)*width) {
		return hist
	}
	start, n := align(lo, hi, width)
	for i := 0; n > desired && i < opts.MaxIterations; i++ {
		next := niceCeil(width * (1 + 1e-6))
		if !finite(next) || !finite(math.Floor(lo/next)*next) || !finite(math.Ceil(hi/next)*next) {
			break
		}
		width = next
		start, n = align(lo, hi, width)
	}

	acc := make([]float64, n)
	var total int64
	for _, b := range hist {
		total += b.Count
		span := b.BinEnd - b.BinStart
		if span <= 0 {
			idx := int(math.Floor((b.BinStart - start) / width))
			acc[clamp(idx, 0, n-1)] += float64(b.Count)
			continue
		}
		first := clamp(int(math.Floor((b.BinStart-start)/width)), 0, n-1)
		last := clamp(int(math.Ceil((b.BinEnd-start)/width))-1, 0, n-1)
		for i := first; i <= last; i++ {
			ns := start + float64(i)*width
			ne := ns + width
			overlap := math.Min(b.BinEnd, ne) - math.Max(b.BinStart, ns)
			if overlap > 0 {
				acc[i] += overlap / span * float64(b.Count)
			}
		}
	}

	out := make([]core.HistogramBin, 0, n)
	for i, v := range acc {
		count := int64(math.Round(v))
		if count == 0 {
			continue
		}
		out = append(out, core.HistogramBin{
			BinStart:   start + float64(i)*width,
			BinEnd:     start + float64(i+1)*width,
			Count:      count,
			Percentage: percentage(count, total),
		})
	}
	return out
}

// originalBins infers the bin count of an equal-width histogram over
// [lo, hi] from the width of its first bin.
func originalBins(hist []core.HistogramBin, lo, hi float64) int {
	w := hist[0].BinEnd - hist[0].BinStart
	if w <= 0 {
		return len(hist)
	}
	return int(math.Round((hi - lo) / w))
}

// align snaps [lo, hi] outward to multiples of width.
func align(lo, hi, width float64) (start float64, n int) {
	start = math.Floor(lo/width+rebinEpsilon) * width
	end := math.Ceil(hi/width-rebinEpsilon) * width
	n = int(math.Round((end - start) / width))
	if n < 1 {
		n = 1
	}
	return start, n
}

// niceCeil rounds x up to 1, 2, 5 or 10 times a power of ten.
func niceCeil(x float64) float64 {
	if x <= 0 {
		return 1
	}
	exp := math.Floor(math.Log10(x))
	base := math.Pow(10, exp)
	f := x / base
	switch {
	case f <= 1+rebinEpsilon:
		return base
	case f <= 2+rebinEpsilon:
		return 2 * base
	case f <= 5+rebinEpsilon:
		return 5 * base
	}
	return 10 * base
}

func finite(x float64) bool {
	return !math.IsInf(x, 0) && !math.IsNaN(x)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
