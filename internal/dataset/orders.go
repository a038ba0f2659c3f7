package dataset

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// Order is one invoice line
type Order struct {
	InvoiceDate time.Time
	TotalAmount decimal.Decimal
	Country     string
	CustomerID  string
	Fields      []string // raw cells aligned with Orders.Header
}

// Orders is the order log with its original header
type Orders struct {
	Header      []string
	Rows        []Order
	HasCountry  bool
	HasCustomer bool

	amountCol int
}

// Filter restricts orders to an inclusive calendar date range and a country.
// Zero dates leave that side open; "" or AllCountries disables the country filter
type Filter struct {
	Start   time.Time
	End     time.Time
	Country string
}

// ParseDate accepts the timestamp formats seen in exported order logs
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ParseOrders reads an order log. InvoiceDate and TotalAmount are required
func ParseOrders(r io.Reader) (*Orders, error) {
	header, rows, err := readTable(r, KindOrders)
	if err != nil {
		return nil, err
	}

	cols := columnIndex(header)
	dateCol, ok := cols[ColInvoiceDate]
	if !ok {
		return nil, &ParseError{Kind: KindOrders, Column: ColInvoiceDate, Err: fmt.Errorf("missing required column")}
	}
	amountCol, ok := cols[ColTotalAmount]
	if !ok {
		return nil, &ParseError{Kind: KindOrders, Column: ColTotalAmount, Err: fmt.Errorf("missing required column")}
	}
	countryCol, hasCountry := cols[ColCountry]
	customerCol, hasCustomer := cols[ColCustomerID]

	orders := &Orders{
		Header:      header,
		Rows:        make([]Order, 0, len(rows)),
		HasCountry:  hasCountry,
		HasCustomer: hasCustomer,
		amountCol:   amountCol,
	}

	for i, fields := range rows {
		date, err := ParseDate(fields[dateCol])
		if err != nil {
			return nil, &ParseError{Kind: KindOrders, Row: i + 1, Column: ColInvoiceDate, Err: err}
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(fields[amountCol]))
		if err != nil {
			return nil, &ParseError{Kind: KindOrders, Row: i + 1, Column: ColTotalAmount, Err: err}
		}

		o := Order{InvoiceDate: date, TotalAmount: amount, Fields: fields}
		if hasCountry {
			o.Country = strings.TrimSpace(fields[countryCol])
		}
		if hasCustomer {
			o.CustomerID = normaliseID(fields[customerCol])
		}
		orders.Rows = append(orders.Rows, o)
	}

	return orders, nil
}

// normaliseID strips the ".0" pandas appends to float-typed id columns
func normaliseID(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, ".0")
}

// Len returns the number of rows
func (o *Orders) Len() int { return len(o.Rows) }

// with returns a table sharing o's header and column layout
func (o *Orders) with(rows []Order) *Orders {
	return &Orders{
		Header:      o.Header,
		Rows:        rows,
		HasCountry:  o.HasCountry,
		HasCustomer: o.HasCustomer,
		amountCol:   o.amountCol,
	}
}

// DateBounds returns the first and last invoice calendar dates
func (o *Orders) DateBounds() (first, last time.Time, ok bool) {
	if len(o.Rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = o.Rows[0].InvoiceDate, o.Rows[0].InvoiceDate
	for _, r := range o.Rows[1:] {
		if r.InvoiceDate.Before(first) {
			first = r.InvoiceDate
		}
		if r.InvoiceDate.After(last) {
			last = r.InvoiceDate
		}
	}
	return truncateDay(first), truncateDay(last), true
}

// Countries lists the filter options: AllCountries first, then every country
// present in sorted order
func (o *Orders) Countries() []string {
	options := []string{AllCountries}
	if !o.HasCountry {
		return options
	}

	seen := make(map[string]struct{})
	var countries []string
	for _, r := range o.Rows {
		if r.Country == "" {
			continue
		}
		if _, ok := seen[r.Country]; ok {
			continue
		}
		seen[r.Country] = struct{}{}
		countries = append(countries, r.Country)
	}
	sort.Strings(countries)
	return append(options, countries...)
}

// Filter returns the rows matching f. The receiver is not modified
func (o *Orders) Filter(f Filter) *Orders {
	start, end := truncateDay(f.Start), truncateDay(f.End)
	byCountry := f.Country != "" && f.Country != AllCountries

	rows := make([]Order, 0, len(o.Rows))
	for _, r := range o.Rows {
		day := truncateDay(r.InvoiceDate)
		if !f.Start.IsZero() && day.Before(start) {
			continue
		}
		if !f.End.IsZero() && day.After(end) {
			continue
		}
		if byCountry && r.Country != f.Country {
			continue
		}
		rows = append(rows, r)
	}
	return o.with(rows)
}

// Records renders every row as a header-keyed map
func (o *Orders) Records() []map[string]string {
	out := make([]map[string]string, len(o.Rows))
	for i, r := range o.Rows {
		out[i] = record(o.Header, r.Fields)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
