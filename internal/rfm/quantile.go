package rfm

import (
	"math"
	"sort"
)

// Quantiles returns the linearly interpolated quantiles of values at probs,
// matching the default method of numpy/pandas. values is not modified
func Quantiles(values []float64, probs []float64) []float64 {
	out := make([]float64, len(probs))
	if len(values) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	last := len(sorted) - 1

	for i, p := range probs {
		p = clip(p, 0, 1)
		h := float64(last) * p
		lo := int(math.Floor(h))
		if lo >= last {
			out[i] = sorted[last]
			continue
		}
		out[i] = lerp(sorted[lo], sorted[lo+1], h-float64(lo))
	}
	return out
}

// lerp mirrors numpy's two-sided interpolation so that edges land exactly on
// sample values when t is 0 or 1
func lerp(a, b, t float64) float64 {
	diff := b - a
	if t >= 0.5 {
		return b - diff*(1-t)
	}
	return a + diff*t
}

// FirstRank assigns ranks 1..n in ascending order of values, breaking ties by
// position so that every rank is unique
func FirstRank(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})

	ranks := make([]float64, len(values))
	for r, i := range idx {
		ranks[i] = float64(r + 1)
	}
	return ranks
}

// quintileEdges returns the six bucket edges of values
func quintileEdges(values []float64) []float64 {
	probs := make([]float64, buckets+1)
	for i := range probs {
		probs[i] = float64(i) / float64(buckets)
	}
	return Quantiles(values, probs)
}

// strictlyIncreasing reports whether every edge is above the previous one
func strictlyIncreasing(edges []float64) bool {
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return false
		}
	}
	return true
}

// bucketOf places v in (edges[i], edges[i+1]]; the lowest edge belongs to
// bucket 0. Returned index is in [0, len(edges)-2]
func bucketOf(v float64, edges []float64) int {
	upper := edges[1:]
	i := sort.SearchFloat64s(upper, v)
	if i >= len(upper) {
		return len(upper) - 1
	}
	return i
}

func distinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
