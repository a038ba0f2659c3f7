// Package types holds the JSON shapes exchanged over the HTTP API
package types

import (
	"time"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dataset"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/rfm"
)

// DateLayout is the format of the start/end query parameters
const DateLayout = "2006-01-02"

// DashboardQuery represents the query string of the dashboard endpoint
type DashboardQuery struct {
	Start   string  `form:"start"`
	End     string  `form:"end"`
	Country string  `form:"country"`
	Seed    *uint64 `form:"seed"`
	Size    int     `form:"size"`
}

// Filters echoes the applied filters and the options the sidebar offers
type Filters struct {
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Country   string   `json:"country"`
	MinDate   string   `json:"min_date"`
	MaxDate   string   `json:"max_date"`
	Countries []string `json:"countries"`
}

// RevenueBlock feeds the monthly revenue line chart
type RevenueBlock struct {
	Points []dataset.RevenuePoint `json:"points"`
	Total  string                 `json:"total"`
}

// CohortBlock feeds the retention section
type CohortBlock struct {
	Message    string           `json:"message"`
	HeatmapURL string           `json:"heatmap_url,omitempty"`
	Cohorts    []dataset.Cohort `json:"cohorts"`
}

// SegmentsBlock feeds the top RFM segments pie chart
type SegmentsBlock struct {
	Source   string             `json:"source"` // precomputed, scored or none
	Segments []rfm.SegmentCount `json:"segments"`
	Message  string             `json:"message,omitempty"`
}

// ClustersBlock feeds the cluster size bar chart
type ClustersBlock struct {
	Available bool             `json:"available"`
	Clusters  []rfm.LabelCount `json:"clusters"`
	Message   string           `json:"message,omitempty"`
}

// SnapshotBlock is the random data sample below the charts
type SnapshotBlock struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
	Total   int                 `json:"total"`
}

// Dashboard is the full payload of GET /api/dashboard
type Dashboard struct {
	Filters     Filters        `json:"filters"`
	Revenue     RevenueBlock   `json:"revenue"`
	Cohort      CohortBlock    `json:"cohort"`
	Segments    SegmentsBlock  `json:"segments"`
	Clusters    ClustersBlock  `json:"clusters"`
	Snapshot    SnapshotBlock  `json:"snapshot"`
	Sources     []dataset.Meta `json:"sources"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// ScoreRequest is the body of POST /api/rfm/score
type ScoreRequest struct {
	Customers []rfm.Customer `json:"customers" binding:"required"`
	Top       int            `json:"top,omitempty"`
}

// ScoredCustomer is a scored row with its named segment
type ScoredCustomer struct {
	rfm.Scored
	Segment string `json:"segment"`
}

// ScoreResponse is returned by both scoring endpoints
type ScoreResponse struct {
	Customers []ScoredCustomer   `json:"customers"`
	Segments  []rfm.SegmentCount `json:"segments"`
	Count     int                `json:"count"`
}

// NewScoreResponse wraps scorer output for the API
func NewScoreResponse(scored []rfm.Scored, top int) ScoreResponse {
	customers := make([]ScoredCustomer, len(scored))
	for i, s := range scored {
		customers[i] = ScoredCustomer{Scored: s, Segment: rfm.Segment(s.Code)}
	}
	if top <= 0 {
		top = rfm.DefaultTopSegments
	}
	return ScoreResponse{
		Customers: customers,
		Segments:  rfm.TopSegments(rfm.Codes(scored), top),
		Count:     len(scored),
	}
}

// UploadResponse is returned after a dataset upload
type UploadResponse struct {
	ID        string       `json:"id"`
	Kind      dataset.Kind `json:"kind"`
	Name      string       `json:"name"`
	Rows      int          `json:"rows"`
	Size      int64        `json:"size"`
	CreatedAt time.Time    `json:"created_at"`
	Message   string       `json:"message"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
}
