package rfm

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is matched by every InsufficientDataError via errors.Is
var ErrInsufficientData = errors.New("insufficient data for quintile scoring")

// InsufficientDataError reports that the input cannot be split into five
// non-degenerate buckets
type InsufficientDataError struct {
	Metric   string // empty when the whole table is too small
	Rows     int
	Distinct int
	Reason   string
}

func (e *InsufficientDataError) Error() string {
	if e.Metric == "" {
		return fmt.Sprintf("%s: %s (rows=%d)", ErrInsufficientData, e.Reason, e.Rows)
	}
	return fmt.Sprintf("%s: %s: %s (rows=%d, distinct=%d)", ErrInsufficientData, e.Metric, e.Reason, e.Rows, e.Distinct)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
