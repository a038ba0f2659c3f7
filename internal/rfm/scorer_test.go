package rfm

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customersFrom(recency, frequency, monetary []float64) []Customer {
	out := make([]Customer, len(recency))
	for i := range recency {
		out[i] = Customer{
			CustomerID: string(rune('A' + i%26)),
			Recency:    recency[i],
			Frequency:  frequency[i],
			Monetary:   monetary[i],
		}
	}
	return out
}

func randomCustomers(n int, seed uint64) []Customer {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]Customer, n)
	for i := range out {
		out[i] = Customer{
			CustomerID: string(rune('a'+i%26)) + string(rune('0'+i%10)),
			Recency:    float64(rng.IntN(365)),
			Frequency:  float64(1 + rng.IntN(12)), // plenty of ties
			Monetary:   math.Round(rng.Float64()*5000*100) / 100,
		}
	}
	return out
}

func TestScore_ExactQuintileSplit(t *testing.T) {
	customers := customersFrom(
		[]float64{1, 10, 20, 30, 40},
		[]float64{5, 4, 3, 2, 1},
		[]float64{100, 80, 60, 40, 20},
	)

	scored, err := Score(customers)
	require.NoError(t, err)
	require.Len(t, scored, 5)

	var r, f, m []int
	var codes []string
	for _, s := range scored {
		r = append(r, s.RecencyScore)
		f = append(f, s.FrequencyScore)
		m = append(m, s.MonetaryScore)
		codes = append(codes, s.Code)
	}

	assert.Equal(t, []int{5, 4, 3, 2, 1}, r)
	assert.Equal(t, []int{5, 4, 3, 2, 1}, f)
	assert.Equal(t, []int{5, 4, 3, 2, 1}, m)
	assert.Equal(t, []string{"555", "444", "333", "222", "111"}, codes)
}

func TestScore_TwoPerBucket(t *testing.T) {
	recency := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	scored, err := Score(customersFrom(recency, recency, recency))
	require.NoError(t, err)

	want := []int{5, 5, 4, 4, 3, 3, 2, 2, 1, 1}
	for i, s := range scored {
		assert.Equal(t, want[i], s.RecencyScore, "recency row %d", i)
		assert.Equal(t, 6-want[i], s.MonetaryScore, "monetary row %d", i)
		assert.Equal(t, 6-want[i], s.FrequencyScore, "frequency row %d", i)
	}
}

func TestScore_InsufficientData(t *testing.T) {
	tests := []struct {
		name      string
		customers []Customer
		metric    string
	}{
		{
			name: "three rows",
			customers: customersFrom(
				[]float64{1, 2, 3},
				[]float64{1, 2, 3},
				[]float64{1, 2, 3},
			),
			metric: "",
		},
		{
			name:      "empty table",
			customers: nil,
			metric:    "",
		},
		{
			name: "recency with four distinct values",
			customers: customersFrom(
				[]float64{1, 1, 2, 2, 3, 4},
				[]float64{1, 2, 3, 4, 5, 6},
				[]float64{10, 20, 30, 40, 50, 60},
			),
			metric: MetricRecency,
		},
		{
			name: "monetary with collapsed edges",
			customers: customersFrom(
				[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
				[]float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
				[]float64{1, 1, 1, 1, 1, 1, 1, 1, 2, 3, 4, 5},
			),
			metric: MetricMonetary,
		},
		{
			name: "non-finite monetary",
			customers: customersFrom(
				[]float64{1, 2, 3, 4, 5},
				[]float64{1, 2, 3, 4, 5},
				[]float64{1, 2, math.NaN(), 4, 5},
			),
			metric: MetricMonetary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scored, err := Score(tt.customers)
			require.Error(t, err)
			assert.Nil(t, scored)
			assert.True(t, errors.Is(err, ErrInsufficientData))

			var insufficient *InsufficientDataError
			require.True(t, errors.As(err, &insufficient))
			assert.Equal(t, tt.metric, insufficient.Metric)
			assert.Equal(t, len(tt.customers), insufficient.Rows)
		})
	}
}

func TestScore_FrequencyTiesAreRanked(t *testing.T) {
	customers := customersFrom(
		[]float64{5, 4, 3, 2, 1},
		[]float64{7, 7, 7, 7, 7},
		[]float64{1, 2, 3, 4, 5},
	)

	scored, err := Score(customers)
	require.NoError(t, err)

	for i, s := range scored {
		assert.Equal(t, i+1, s.FrequencyScore)
	}
}

func TestScore_Properties(t *testing.T) {
	customers := randomCustomers(500, 42)

	scored, err := Score(customers)
	require.NoError(t, err)
	require.Len(t, scored, len(customers))

	for i, s := range scored {
		assert.Equal(t, customers[i], s.Customer, "input order is kept")
		for _, v := range []int{s.RecencyScore, s.FrequencyScore, s.MonetaryScore} {
			assert.GreaterOrEqual(t, v, 1)
			assert.LessOrEqual(t, v, 5)
		}
		require.Len(t, s.Code, 3)
		for _, ch := range s.Code {
			assert.True(t, ch >= '1' && ch <= '5', "code %q", s.Code)
		}
		assert.Equal(t, Code(s.RecencyScore, s.FrequencyScore, s.MonetaryScore), s.Code)
	}

	for i := range scored {
		for j := range scored {
			a, b := scored[i], scored[j]
			if a.Recency < b.Recency {
				assert.GreaterOrEqual(t, a.RecencyScore, b.RecencyScore)
			}
			if a.Frequency > b.Frequency {
				assert.GreaterOrEqual(t, a.FrequencyScore, b.FrequencyScore)
			}
			if a.Monetary > b.Monetary {
				assert.GreaterOrEqual(t, a.MonetaryScore, b.MonetaryScore)
			}
		}
	}
}

func TestScore_Idempotent(t *testing.T) {
	customers := randomCustomers(120, 7)

	first, err := Score(customers)
	require.NoError(t, err)

	again := make([]Customer, len(first))
	for i, s := range first {
		again[i] = s.Customer
	}
	second, err := Score(again)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScore_DoesNotMutateInput(t *testing.T) {
	customers := customersFrom(
		[]float64{40, 30, 20, 10, 1},
		[]float64{1, 2, 3, 4, 5},
		[]float64{20, 40, 60, 80, 100},
	)
	snapshot := append([]Customer(nil), customers...)

	_, err := Score(customers)
	require.NoError(t, err)
	assert.Equal(t, snapshot, customers)
}

func TestInsufficientDataError_Message(t *testing.T) {
	err := &InsufficientDataError{Metric: MetricRecency, Rows: 6, Distinct: 3, Reason: "at least 5 distinct values are required"}
	assert.Contains(t, err.Error(), "recency")
	assert.Contains(t, err.Error(), "distinct=3")

	err = &InsufficientDataError{Rows: 3, Reason: "at least 5 customers are required"}
	assert.Contains(t, err.Error(), "rows=3")
	assert.NotContains(t, err.Error(), "distinct")
}
