// Package dashboard assembles the data behind every dashboard widget from the
// two loaded datasets. Nothing is cached between requests
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dataset"
	apperrors "github.com/ZanzyTHEbar/rfm-dashboard/internal/errors"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/monitoring"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/rfm"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/types"
)

// User facing messages
const (
	MissingDataMessage         = "CSV files not found in the app folder. Please upload them (use the same files you exported from the notebook)."
	CohortMessage              = "Loading Error. Serverside Issue."
	SegmentsUnavailableMessage = "RFM segments not available in the uploaded RFM file."
	ClustersMissingMessage     = "Cluster column not found in RFM file. Please include 'cluster' in rfm_customers.csv if available."
)

// HeatmapURL is where the cohort image is served when present
const HeatmapURL = "/api/cohort/heatmap"

// Segment block sources
const (
	SegmentsPrecomputed = "precomputed"
	SegmentsScored      = "scored"
	SegmentsNone        = "none"
)

// SnapshotOptions controls the random data sample
type SnapshotOptions struct {
	Size int
	Seed *uint64
}

// Service builds dashboards from whatever the loader finds
type Service struct {
	loader       *dataset.Loader
	recorder     *monitoring.Recorder
	dataDir      string
	snapshotSize int
	now          func() time.Time
}

// NewService creates a dashboard service. recorder may be nil
func NewService(loader *dataset.Loader, recorder *monitoring.Recorder, dataDir string, snapshotSize int) *Service {
	if snapshotSize <= 0 {
		snapshotSize = dataset.DefaultSampleSize
	}
	return &Service{
		loader:       loader,
		recorder:     recorder,
		dataDir:      dataDir,
		snapshotSize: snapshotSize,
		now:          time.Now,
	}
}

// HeatmapPath returns the cohort image path and whether the file exists
func (s *Service) HeatmapPath() (string, bool) {
	path := filepath.Join(s.dataDir, dataset.CohortHeatmapFile)
	info, err := os.Stat(path)
	return path, err == nil && !info.IsDir()
}

// ParseQuery turns query parameters into a filter. Empty dates are left zero
// and resolved against the data later
func ParseQuery(q types.DashboardQuery) (dataset.Filter, SnapshotOptions, error) {
	var f dataset.Filter
	var err error

	if q.Start != "" {
		if f.Start, err = time.Parse(types.DateLayout, q.Start); err != nil {
			return f, SnapshotOptions{}, apperrors.NewValidationError("start must be a YYYY-MM-DD date", q.Start)
		}
	}
	if q.End != "" {
		if f.End, err = time.Parse(types.DateLayout, q.End); err != nil {
			return f, SnapshotOptions{}, apperrors.NewValidationError("end must be a YYYY-MM-DD date", q.End)
		}
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return f, SnapshotOptions{}, apperrors.NewValidationError("start must not be after end", q.Start+" > "+q.End)
	}
	if q.Size < 0 {
		return f, SnapshotOptions{}, apperrors.NewValidationError("size must not be negative", q.Size)
	}

	f.Country = q.Country
	return f, SnapshotOptions{Size: q.Size, Seed: q.Seed}, nil
}

// Build assembles the full dashboard
func (s *Service) Build(ctx context.Context, f dataset.Filter, opts SnapshotOptions) (*types.Dashboard, error) {
	orders, ordersMeta, err := s.loadOrders(ctx)
	if err != nil {
		return nil, err
	}
	customers, rfmMeta, err := s.loadCustomers(ctx)
	if err != nil {
		return nil, err
	}

	f = resolveDates(orders, f)
	filtered := orders.Filter(f)
	minDate, maxDate, _ := orders.DateBounds()

	country := f.Country
	if country == "" {
		country = dataset.AllCountries
	}

	d := &types.Dashboard{
		Filters: types.Filters{
			Start:     formatDate(f.Start),
			End:       formatDate(f.End),
			Country:   country,
			MinDate:   formatDate(minDate),
			MaxDate:   formatDate(maxDate),
			Countries: orders.Countries(),
		},
		Revenue: types.RevenueBlock{
			Points: dataset.MonthlyRevenue(filtered),
			Total:  dataset.TotalRevenue(filtered).StringFixed(2),
		},
		Cohort:      s.cohortBlock(filtered),
		Segments:    s.segmentsBlock(customers),
		Clusters:    clustersBlock(customers),
		Snapshot:    s.snapshot(filtered, opts),
		Sources:     []dataset.Meta{ordersMeta, rfmMeta},
		GeneratedAt: s.now().UTC(),
	}
	return d, nil
}

// FilteredOrders returns the orders the export button downloads
func (s *Service) FilteredOrders(ctx context.Context, f dataset.Filter) (*dataset.Orders, error) {
	orders, _, err := s.loadOrders(ctx)
	if err != nil {
		return nil, err
	}
	return orders.Filter(resolveDates(orders, f)), nil
}

// Customers returns the RFM table as loaded
func (s *Service) Customers(ctx context.Context) (*dataset.Customers, dataset.Meta, error) {
	return s.loadCustomers(ctx)
}

// Scored runs the quintile scorer over the loaded RFM table
func (s *Service) Scored(ctx context.Context) ([]rfm.Scored, error) {
	customers, _, err := s.loadCustomers(ctx)
	if err != nil {
		return nil, err
	}
	return s.score(customers)
}

// Score runs the scorer on caller supplied customers
func (s *Service) Score(customers []rfm.Customer) ([]rfm.Scored, error) {
	start := time.Now()
	scored, err := rfm.Score(customers)
	s.recorder.Scored(outcomeOf(err, monitoring.OutcomeScored), len(customers), time.Since(start))
	return scored, err
}

func (s *Service) score(customers *dataset.Customers) ([]rfm.Scored, error) {
	if !customers.HasRFM {
		s.recorder.Scored(monitoring.OutcomeUnavailable, customers.Len(), 0)
		return nil, &rfm.InsufficientDataError{
			Rows:   customers.Len(),
			Reason: fmt.Sprintf("%s, %s and %s columns are required", dataset.ColRecency, dataset.ColFrequency, dataset.ColMonetary),
		}
	}
	return s.Score(customers.RFMCustomers())
}

func outcomeOf(err error, ok string) string {
	if err == nil {
		return ok
	}
	if errors.Is(err, rfm.ErrInsufficientData) {
		return monitoring.OutcomeInsufficient
	}
	return monitoring.OutcomeUnavailable
}

func (s *Service) cohortBlock(orders *dataset.Orders) types.CohortBlock {
	block := types.CohortBlock{Cohorts: dataset.Cohorts(orders)}
	if block.Cohorts == nil {
		block.Cohorts = []dataset.Cohort{}
	}
	if _, ok := s.HeatmapPath(); ok {
		block.HeatmapURL = HeatmapURL
	} else {
		block.Message = CohortMessage
	}
	return block
}

// segmentsBlock prefers the precomputed RFM_score column and falls back to
// scoring Recency/Frequency/Monetary
func (s *Service) segmentsBlock(customers *dataset.Customers) types.SegmentsBlock {
	block := types.SegmentsBlock{Source: SegmentsNone, Segments: []rfm.SegmentCount{}}

	switch {
	case customers.HasScore:
		block.Source = SegmentsPrecomputed
		block.Segments = rfm.TopSegments(customers.Scores(), rfm.DefaultTopSegments)
		s.recorder.Scored(monitoring.OutcomePrecomputed, customers.Len(), 0)
	case customers.HasRFM:
		if scored, err := s.score(customers); err == nil {
			block.Source = SegmentsScored
			block.Segments = rfm.TopSegments(rfm.Codes(scored), rfm.DefaultTopSegments)
		}
	default:
		s.recorder.Scored(monitoring.OutcomeUnavailable, customers.Len(), 0)
	}

	if len(block.Segments) == 0 {
		block.Source = SegmentsNone
		block.Message = SegmentsUnavailableMessage
	}
	return block
}

func clustersBlock(customers *dataset.Customers) types.ClustersBlock {
	if !customers.HasCluster {
		return types.ClustersBlock{Clusters: []rfm.LabelCount{}, Message: ClustersMissingMessage}
	}
	clusters := rfm.CountLabels(customers.Clusters())
	if clusters == nil {
		clusters = []rfm.LabelCount{}
	}
	return types.ClustersBlock{Available: true, Clusters: clusters}
}

func (s *Service) snapshot(orders *dataset.Orders, opts SnapshotOptions) types.SnapshotBlock {
	size := opts.Size
	if size <= 0 {
		size = s.snapshotSize
	}
	var rng *rand.Rand
	if opts.Seed != nil {
		rng = rand.New(rand.NewPCG(*opts.Seed, *opts.Seed))
	}

	sample := dataset.Sample(orders, size, rng)
	return types.SnapshotBlock{
		Columns: orders.Header,
		Rows:    sample.Records(),
		Total:   orders.Len(),
	}
}

func (s *Service) loadOrders(ctx context.Context) (*dataset.Orders, dataset.Meta, error) {
	start := time.Now()
	orders, meta, err := s.loader.LoadOrders(ctx)
	rows := 0
	if orders != nil {
		rows = orders.Len()
	}
	s.recorder.DatasetLoaded(string(dataset.KindOrders), meta.Source, meta.Name, rows, time.Since(start), err)
	return orders, meta, missing(err)
}

func (s *Service) loadCustomers(ctx context.Context) (*dataset.Customers, dataset.Meta, error) {
	start := time.Now()
	customers, meta, err := s.loader.LoadCustomers(ctx)
	rows := 0
	if customers != nil {
		rows = customers.Len()
	}
	s.recorder.DatasetLoaded(string(dataset.KindRFM), meta.Source, meta.Name, rows, time.Since(start), err)
	return customers, meta, missing(err)
}

func missing(err error) error {
	if errors.Is(err, dataset.ErrNotFound) {
		return apperrors.NewDataUnavailableError(MissingDataMessage, err)
	}
	return err
}

// resolveDates fills an open date range with the data's first and last day
func resolveDates(orders *dataset.Orders, f dataset.Filter) dataset.Filter {
	first, last, ok := orders.DateBounds()
	if !ok {
		return f
	}
	if f.Start.IsZero() {
		f.Start = first
	}
	if f.End.IsZero() {
		f.End = last
	}
	return f
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(types.DateLayout)
}
