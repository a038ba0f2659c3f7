package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// readTable reads a CSV table with a header row. Every row must have as many
// cells as the header
func readTable(r io.Reader, kind Kind) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, &ParseError{Kind: kind, Err: errors.New("file is empty")}
		}
		return nil, nil, &ParseError{Kind: kind, Err: fmt.Errorf("read header: %w", err)}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, &ParseError{Kind: kind, Row: len(rows) + 1, Err: err}
		}
		rows = append(rows, record)
	}
	return header, rows, nil
}

// columnIndex maps header names to positions; the first occurrence wins
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

// record renders one row as a header-keyed map
func record(header, fields []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(fields) {
			m[h] = fields[i]
		}
	}
	return m
}
