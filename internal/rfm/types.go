package rfm

// Customer is one row of the RFM summary table
type Customer struct {
	CustomerID string  `json:"customer_id"`
	Recency    float64 `json:"recency"`
	Frequency  float64 `json:"frequency"`
	Monetary   float64 `json:"monetary"`
}

// Scored is a Customer enriched with its quintile scores
type Scored struct {
	Customer
	RecencyScore   int    `json:"recency_score"`
	FrequencyScore int    `json:"frequency_score"`
	MonetaryScore  int    `json:"monetary_score"`
	Code           string `json:"rfm_code"`
}

// SegmentCount is one slice of the top segments breakdown
type SegmentCount struct {
	Code    string `json:"rfm"`
	Count   int    `json:"count"`
	Segment string `json:"segment,omitempty"`
}

// LabelCount is one bar of a categorical value count (e.g. cluster sizes)
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}
