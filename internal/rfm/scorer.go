package rfm

import (
	"math"
	"strconv"
)

const (
	buckets = 5
	// MinCustomers is the smallest table that can be split into quintiles
	MinCustomers = buckets

	MetricRecency   = "recency"
	MetricFrequency = "frequency"
	MetricMonetary  = "monetary"
)

// Score computes recency, frequency and monetary quintile scores for every
// customer. Recency is inverted (most recent = 5); frequency is ranked first so
// that ties cannot collapse a bucket. The result keeps input order
func Score(customers []Customer) ([]Scored, error) {
	n := len(customers)
	if n < MinCustomers {
		return nil, &InsufficientDataError{
			Rows:   n,
			Reason: "at least 5 customers are required",
		}
	}

	recency := make([]float64, n)
	frequency := make([]float64, n)
	monetary := make([]float64, n)
	for i, c := range customers {
		recency[i] = c.Recency
		frequency[i] = c.Frequency
		monetary[i] = c.Monetary
	}

	for _, m := range []struct {
		name   string
		values []float64
	}{
		{MetricRecency, recency},
		{MetricFrequency, frequency},
		{MetricMonetary, monetary},
	} {
		if err := checkFinite(m.name, m.values); err != nil {
			return nil, err
		}
	}

	rBuckets, err := quintileBuckets(MetricRecency, recency)
	if err != nil {
		return nil, err
	}
	fBuckets, err := quintileBuckets(MetricFrequency, FirstRank(frequency))
	if err != nil {
		return nil, err
	}
	mBuckets, err := quintileBuckets(MetricMonetary, monetary)
	if err != nil {
		return nil, err
	}

	out := make([]Scored, n)
	for i, c := range customers {
		r := buckets - rBuckets[i]
		f := fBuckets[i] + 1
		m := mBuckets[i] + 1
		out[i] = Scored{
			Customer:       c,
			RecencyScore:   r,
			FrequencyScore: f,
			MonetaryScore:  m,
			Code:           Code(r, f, m),
		}
	}
	return out, nil
}

// Code concatenates three scores into the rfm code, e.g. 5,4,3 -> "543"
func Code(r, f, m int) string {
	return strconv.Itoa(r) + strconv.Itoa(f) + strconv.Itoa(m)
}

// Codes extracts the rfm codes of a scored table
func Codes(scored []Scored) []string {
	codes := make([]string, len(scored))
	for i, s := range scored {
		codes[i] = s.Code
	}
	return codes
}

func quintileBuckets(metric string, values []float64) ([]int, error) {
	if d := distinct(values); d < buckets {
		return nil, &InsufficientDataError{
			Metric:   metric,
			Rows:     len(values),
			Distinct: d,
			Reason:   "at least 5 distinct values are required",
		}
	}

	edges := quintileEdges(values)
	if !strictlyIncreasing(edges) {
		return nil, &InsufficientDataError{
			Metric:   metric,
			Rows:     len(values),
			Distinct: distinct(values),
			Reason:   "quintile edges are not unique",
		}
	}

	out := make([]int, len(values))
	for i, v := range values {
		out[i] = bucketOf(v, edges)
	}
	return out, nil
}

func checkFinite(metric string, values []float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InsufficientDataError{
				Metric:   metric,
				Rows:     len(values),
				Distinct: distinct(values),
				Reason:   "values must be finite",
			}
		}
	}
	return nil
}
