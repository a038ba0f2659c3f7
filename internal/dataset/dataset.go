// Package dataset reads, filters, aggregates and exports the two tables the
// dashboard works on: the order log and the per-customer RFM summary
package dataset

import (
	"errors"
	"fmt"
	"time"
)

// Kind names one of the two datasets
type Kind string

const (
	KindOrders Kind = "orders"
	KindRFM    Kind = "rfm"
)

// Column names as exported by the analysis notebook
const (
	ColInvoiceDate = "InvoiceDate"
	ColTotalAmount = "TotalAmount"
	ColCountry     = "Country"
	ColCustomerID  = "CustomerID"
	ColRecency     = "Recency"
	ColFrequency   = "Frequency"
	ColMonetary    = "Monetary"
	ColRFMScore    = "RFM_score"
	ColCluster     = "cluster"
)

// AllCountries disables the country filter
const AllCountries = "All"

// ErrNotFound is returned when no source holds the requested dataset
var ErrNotFound = errors.New("dataset not found")

// ParseKind validates a user supplied dataset kind
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindOrders, KindRFM:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown dataset kind %q", s)
}

// ParseError locates a malformed cell or header
type ParseError struct {
	Kind   Kind
	Row    int // 1-based data row, 0 for header problems
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Row == 0 && e.Column == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Row == 0:
		return fmt.Sprintf("%s: column %s: %v", e.Kind, e.Column, e.Err)
	case e.Column == "":
		return fmt.Sprintf("%s: row %d: %v", e.Kind, e.Row, e.Err)
	}
	return fmt.Sprintf("%s: row %d, column %s: %v", e.Kind, e.Row, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Meta describes where a loaded dataset came from
type Meta struct {
	Kind     Kind      `json:"kind"`
	Source   string    `json:"source"`
	Name     string    `json:"name"`
	ID       string    `json:"id,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}
