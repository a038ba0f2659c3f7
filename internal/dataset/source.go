package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Default file names in the data directory
const (
	OrdersFile        = "sample_orders.csv"
	CustomersFile     = "rfm_customers.csv"
	CohortHeatmapFile = "cohort_heatmap.png"
)

// SourceUpload names the source holding client uploads
const SourceUpload = "upload"

// Source provides the raw CSV bytes of a dataset. Open returns ErrNotFound
// (possibly wrapped) when the source does not hold the dataset
type Source interface {
	Name() string
	Open(ctx context.Context, kind Kind) (io.ReadCloser, Meta, error)
}

// FileSource reads the exported CSV files from a directory
type FileSource struct {
	Dir string
}

// NewFileSource creates a source rooted at dir
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) Name() string { return "file" }

// Path returns the file a kind is read from
func (s *FileSource) Path(kind Kind) string {
	name := OrdersFile
	if kind == KindRFM {
		name = CustomersFile
	}
	return filepath.Join(s.Dir, name)
}

func (s *FileSource) Open(ctx context.Context, kind Kind) (io.ReadCloser, Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, Meta{}, err
	}
	path := s.Path(kind)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Meta{}, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, Meta{}, fmt.Errorf("open %s: %w", path, err)
	}
	return f, Meta{
		Kind:     kind,
		Source:   s.Name(),
		Name:     filepath.Base(path),
		LoadedAt: time.Now().UTC(),
	}, nil
}

// LoadError reports a dataset that was found but could not be read
type LoadError struct {
	Source string
	Name   string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to read %s from %s: %v", e.Name, e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FromUpload reports whether the unreadable dataset was supplied by a client
// rather than held by the server
func (e *LoadError) FromUpload() bool { return e.Source == SourceUpload }

// Loader resolves datasets from an ordered list of sources. The first source
// that holds the dataset wins; a parse failure is reported instead of
// falling through to the next source
type Loader struct {
	sources []Source
}

// NewLoader creates a loader over sources, tried in order. Nil entries are skipped
func NewLoader(sources ...Source) *Loader {
	l := &Loader{}
	for _, s := range sources {
		if s != nil {
			l.sources = append(l.sources, s)
		}
	}
	return l
}

// Sources returns the configured source names in lookup order
func (l *Loader) Sources() []string {
	names := make([]string, len(l.sources))
	for i, s := range l.sources {
		names[i] = s.Name()
	}
	return names
}

// LoadOrders parses the first available order log
func (l *Loader) LoadOrders(ctx context.Context) (*Orders, Meta, error) {
	var orders *Orders
	meta, err := l.load(ctx, KindOrders, func(r io.Reader) error {
		var err error
		orders, err = ParseOrders(r)
		return err
	})
	return orders, meta, err
}

// LoadCustomers parses the first available RFM table
func (l *Loader) LoadCustomers(ctx context.Context) (*Customers, Meta, error) {
	var customers *Customers
	meta, err := l.load(ctx, KindRFM, func(r io.Reader) error {
		var err error
		customers, err = ParseCustomers(r)
		return err
	})
	return customers, meta, err
}

func (l *Loader) load(ctx context.Context, kind Kind, parse func(io.Reader) error) (Meta, error) {
	for _, src := range l.sources {
		rc, meta, err := src.Open(ctx, kind)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Meta{}, fmt.Errorf("%s source: %w", src.Name(), err)
		}

		err = parse(rc)
		rc.Close()
		if err != nil {
			return meta, &LoadError{Source: src.Name(), Name: meta.Name, Err: err}
		}
		return meta, nil
	}
	return Meta{}, fmt.Errorf("%s: %w", kind, ErrNotFound)
}
