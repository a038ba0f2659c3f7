package dataset

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	name  string
	files map[Kind]string
	err   error
	opens int
}

func (s *memorySource) Name() string { return s.name }

func (s *memorySource) Open(_ context.Context, kind Kind) (io.ReadCloser, Meta, error) {
	s.opens++
	if s.err != nil {
		return nil, Meta{}, s.err
	}
	body, ok := s.files[kind]
	if !ok {
		return nil, Meta{}, ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), Meta{Kind: kind, Source: s.name, Name: string(kind)}, nil
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	src := NewFileSource(dir)

	_, _, err := src.Open(context.Background(), KindOrders)
	assert.ErrorIs(t, err, ErrNotFound)

	writeFile(t, dir, OrdersFile, ordersCSV)
	rc, meta, err := src.Open(context.Background(), KindOrders)
	require.NoError(t, err)
	defer rc.Close()

	assert.Equal(t, KindOrders, meta.Kind)
	assert.Equal(t, "file", meta.Source)
	assert.Equal(t, OrdersFile, meta.Name)
	assert.Equal(t, filepath.Join(dir, CustomersFile), src.Path(KindRFM))
}

func TestLoader_FallsThroughMissingSources(t *testing.T) {
	empty := &memorySource{name: "empty", files: map[Kind]string{}}
	uploads := &memorySource{name: "upload", files: map[Kind]string{KindOrders: ordersCSV, KindRFM: customersCSV}}
	loader := NewLoader(empty, nil, uploads)

	assert.Equal(t, []string{"empty", "upload"}, loader.Sources())

	orders, meta, err := loader.LoadOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, orders.Len())
	assert.Equal(t, "upload", meta.Source)

	customers, _, err := loader.LoadCustomers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, customers.Len())
}

func TestLoader_NotFound(t *testing.T) {
	loader := NewLoader(&memorySource{name: "empty", files: map[Kind]string{}})
	_, _, err := loader.LoadOrders(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = NewLoader().LoadCustomers(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoader_ParseErrorStopsLookup(t *testing.T) {
	broken := &memorySource{name: "file", files: map[Kind]string{KindOrders: "InvoiceDate,TotalAmount\nnever,1\n"}}
	fallback := &memorySource{name: "upload", files: map[Kind]string{KindOrders: ordersCSV}}

	_, _, err := NewLoader(broken, fallback).LoadOrders(context.Background())
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "file", loadErr.Source)
	assert.Contains(t, err.Error(), "failed to read orders from file")

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 0, fallback.opens)
}

func TestLoader_SourceFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	loader := NewLoader(&memorySource{name: "file", err: boom})

	_, _, err := loader.LoadOrders(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("rfm")
	require.NoError(t, err)
	assert.Equal(t, KindRFM, kind)

	_, err = ParseKind("invoices")
	assert.Error(t, err)
}
