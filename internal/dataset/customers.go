package dataset

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/rfm"
)

// CustomerRow is one row of the RFM summary table
type CustomerRow struct {
	ID        string
	Recency   float64
	Frequency float64
	Monetary  float64
	Score     string
	Cluster   string
	Fields    []string
}

// Customers is the per-customer RFM table with its original header
type Customers struct {
	Header     []string
	Rows       []CustomerRow
	HasRFM     bool
	HasScore   bool
	HasCluster bool
}

var metricColumns = map[string]bool{
	ColRecency:   true,
	ColFrequency: true,
	ColMonetary:  true,
	ColRFMScore:  true,
	ColCluster:   true,
}

// ParseCustomers reads the RFM summary. The first column holds the customer
// id unless it is one of the known metric columns, in which case the 1-based
// row number is used. Recency, Frequency and Monetary are parsed only when all
// three are present; an empty metric cell is an error unless the table also
// carries a precomputed RFM_score, in which case it is kept as NaN so that
// rescoring the table fails instead of treating the gap as zero
func ParseCustomers(r io.Reader) (*Customers, error) {
	header, rows, err := readTable(r, KindRFM)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, &ParseError{Kind: KindRFM, Err: fmt.Errorf("header is empty")}
	}

	cols := columnIndex(header)
	rCol, hasR := cols[ColRecency]
	fCol, hasF := cols[ColFrequency]
	mCol, hasM := cols[ColMonetary]
	scoreCol, hasScore := cols[ColRFMScore]
	clusterCol, hasCluster := cols[ColCluster]
	idFromColumn := !metricColumns[header[0]]

	customers := &Customers{
		Header:     header,
		Rows:       make([]CustomerRow, 0, len(rows)),
		HasRFM:     hasR && hasF && hasM,
		HasScore:   hasScore,
		HasCluster: hasCluster,
	}

	for i, fields := range rows {
		row := CustomerRow{Fields: fields}
		if idFromColumn {
			row.ID = normaliseID(fields[0])
		} else {
			row.ID = strconv.Itoa(i + 1)
		}
		if hasScore {
			row.Score = normaliseID(fields[scoreCol])
		}
		if hasCluster {
			row.Cluster = normaliseID(fields[clusterCol])
		}

		if customers.HasRFM {
			for _, m := range []struct {
				col  string
				idx  int
				dest *float64
			}{
				{ColRecency, rCol, &row.Recency},
				{ColFrequency, fCol, &row.Frequency},
				{ColMonetary, mCol, &row.Monetary},
			} {
				cell := strings.TrimSpace(fields[m.idx])
				if cell == "" && hasScore {
					*m.dest = math.NaN()
					continue
				}
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, &ParseError{Kind: KindRFM, Row: i + 1, Column: m.col, Err: err}
				}
				*m.dest = v
			}
		}

		customers.Rows = append(customers.Rows, row)
	}

	return customers, nil
}

// Len returns the number of rows
func (c *Customers) Len() int { return len(c.Rows) }

// RFMCustomers converts the table into scorer input
func (c *Customers) RFMCustomers() []rfm.Customer {
	out := make([]rfm.Customer, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = rfm.Customer{
			CustomerID: r.ID,
			Recency:    r.Recency,
			Frequency:  r.Frequency,
			Monetary:   r.Monetary,
		}
	}
	return out
}

// Scores returns the precomputed RFM_score column
func (c *Customers) Scores() []string {
	out := make([]string, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = r.Score
	}
	return out
}

// Clusters returns the cluster column
func (c *Customers) Clusters() []string {
	out := make([]string, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = r.Cluster
	}
	return out
}
