package dataset

import (
	"math/rand/v2"
)

// DefaultSampleSize is the number of rows shown in the data snapshot
const DefaultSampleSize = 200

// Sample draws min(n, len) orders without replacement. The picked rows keep
// the draw order. A nil rng uses the global source
func Sample(orders *Orders, n int, rng *rand.Rand) *Orders {
	if orders == nil {
		return nil
	}
	if n > len(orders.Rows) {
		n = len(orders.Rows)
	}
	if n <= 0 {
		return orders.with([]Order{})
	}

	intn := rand.IntN
	if rng != nil {
		intn = rng.IntN
	}

	idx := make([]int, len(orders.Rows))
	for i := range idx {
		idx[i] = i
	}
	// partial Fisher-Yates
	for i := 0; i < n; i++ {
		j := i + intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}

	rows := make([]Order, n)
	for i := 0; i < n; i++ {
		rows[i] = orders.Rows[idx[i]]
	}
	return orders.with(rows)
}
